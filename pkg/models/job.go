package models

// Job statuses reported by the backend. Only succeeded and failed are terminal;
// any other value is treated as pending.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// JobHandle identifies one enqueued pipeline job. The backend returns it on
// POST /pipeline/run-async; the client polls GET /pipeline/jobs/{job_id} until
// the status is succeeded or failed.
type JobHandle struct {
	JobID        string `json:"job_id"`
	SubmissionID string `json:"submission_id"`
}

// JobState is one observation of a job's status.
type JobState struct {
	JobID  string          `json:"job_id"`
	Status string          `json:"status"`
	Result *PipelineResult `json:"result,omitempty"`
	Error  *string         `json:"error,omitempty"`
}

// Terminal reports whether the status ends polling.
func (s JobState) Terminal() bool {
	return s.Status == JobStatusSucceeded || s.Status == JobStatusFailed
}
