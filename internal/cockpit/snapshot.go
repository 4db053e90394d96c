package cockpit

import (
	"github.com/google/uuid"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/reconcile"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/stage"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

const defaultSubmissionName = "New Submission Packet"

// Snapshot is a point-in-time copy of the cockpit for rendering. Metrics are
// derived from Result when the snapshot is taken.
type Snapshot struct {
	Stage                stage.Stage                 `json:"stage"`
	StageLabel           string                      `json:"stage_label"`
	Running              bool                        `json:"running"`
	Error                string                      `json:"error,omitempty"`
	ArtifactName         string                      `json:"artifact_name,omitempty"`
	SubmissionName       string                      `json:"submission_name"`
	Job                  *models.JobHandle           `json:"job,omitempty"`
	RunID                *uuid.UUID                  `json:"run_id,omitempty"`
	Result               *models.PipelineResult      `json:"result,omitempty"`
	Metrics              models.DerivedMetrics       `json:"metrics"`
	OverallStatus        string                      `json:"overall_status"`
	Revenue              string                      `json:"revenue"`
	Payroll              string                      `json:"payroll"`
	EmailDraft           string                      `json:"email_draft,omitempty"`
	Submissions          []models.SubmissionListItem `json:"submissions"`
	SelectedSubmissionID string                      `json:"selected_submission_id,omitempty"`
	Audit                []models.AuditLogItem       `json:"audit"`
}

// state is the engine's mutable view. It is guarded by Engine.mu.
type state struct {
	stage        stage.Stage
	running      bool
	err          string
	artifactName string
	job          *models.JobHandle
	runID        *uuid.UUID
	result       *models.PipelineResult
	submissions  []models.SubmissionListItem
	selected     string
	audit        []models.AuditLogItem
}

func (s *state) snapshot() Snapshot {
	snap := Snapshot{
		Stage:                s.stage,
		StageLabel:           s.stage.Label(),
		Running:              s.running,
		Error:                s.err,
		ArtifactName:         s.artifactName,
		SubmissionName:       submissionName(s.result, s.artifactName),
		Result:               s.result,
		Metrics:              reconcile.Reconcile(s.result),
		Revenue:              Money(nil),
		Payroll:              Money(nil),
		Submissions:          append([]models.SubmissionListItem{}, s.submissions...),
		SelectedSubmissionID: s.selected,
		Audit:                append([]models.AuditLogItem{}, s.audit...),
	}
	snap.OverallStatus = reconcile.OverallStatus(snap.Metrics)

	if s.job != nil {
		job := *s.job
		snap.Job = &job
	}
	if s.runID != nil {
		id := *s.runID
		snap.RunID = &id
	}
	if s.result != nil {
		snap.Revenue = Money(s.result.Profile.Revenue)
		snap.Payroll = Money(s.result.Profile.Payroll)
		snap.EmailDraft = s.result.Questions.EmailDraft
	}
	return snap
}

func submissionName(r *models.PipelineResult, artifactName string) string {
	if r != nil && r.Profile.InsuredName != nil && *r.Profile.InsuredName != "" {
		return *r.Profile.InsuredName
	}
	if artifactName != "" {
		return artifactName
	}
	return defaultSubmissionName
}
