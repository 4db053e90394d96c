package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Run is the local ledger entry for one cockpit pipeline run.
type Run struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	TenantID        string     `db:"tenant_id"        json:"tenant_id"`
	ArtifactName    string     `db:"artifact_name"    json:"artifact_name"`
	JobID           *string    `db:"job_id"           json:"job_id,omitempty"`
	SubmissionID    *string    `db:"submission_id"    json:"submission_id,omitempty"`
	Status          string     `db:"status"           json:"status"`
	FinalStage      string     `db:"final_stage"      json:"final_stage"`
	ErrorMessage    *string    `db:"error_message"    json:"error_message,omitempty"`
	CompletenessPct *int       `db:"completeness_pct" json:"completeness_pct,omitempty"`
	ConfidencePct   *int       `db:"confidence_pct"   json:"confidence_pct,omitempty"`
	StartedAt       time.Time  `db:"started_at"       json:"started_at"`
	CompletedAt     *time.Time `db:"completed_at"     json:"completed_at,omitempty"`
}
