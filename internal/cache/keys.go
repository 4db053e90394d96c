package cache

import "fmt"

func JobStatusKey(jobID string) string {
	return fmt.Sprintf("cockpit:job:%s", jobID)
}

func SubmissionsKey(tenantID string) string {
	return fmt.Sprintf("cockpit:submissions:%s", tenantID)
}

func AuditKey(tenantID, submissionID string) string {
	return fmt.Sprintf("cockpit:audit:%s:%s", tenantID, submissionID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
