package models

import "time"

// SubmissionListItem is one row of GET /submissions.
type SubmissionListItem struct {
	SubmissionID string    `json:"submission_id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	Status       string    `json:"status"`
	JobStatus    string    `json:"job_status"`
	JobID        *string   `json:"job_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditLogItem is one event of a submission's audit trail.
type AuditLogItem struct {
	EventType string    `json:"event_type"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
