package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid run status transition")

// Store is the run ledger. Every cockpit run is recorded once it starts and
// closed out when it reaches Ready, Locked or fails back to Idle.
type Store interface {
	Ping(ctx context.Context) error

	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*models.Run, int, error)
	AttachJob(ctx context.Context, id uuid.UUID, handle models.JobHandle) error
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error
}

// MaxPage bounds RunFilter.Page so the list offset stays small.
const MaxPage = 10000

type RunFilter struct {
	TenantID string
	Status   string
	Page     int
	Limit    int
}

type runUpdateParams struct {
	ErrorMessage    *string
	FinalStage      *string
	CompletenessPct *int
	ConfidencePct   *int
}

type RunUpdateOption func(*runUpdateParams)

func WithErrorMessage(msg string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithFinalStage(stage string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.FinalStage = &stage
	}
}

// WithMetrics records the reconciled percentages at completion time.
func WithMetrics(completeness, confidence int) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.CompletenessPct = &completeness
		p.ConfidencePct = &confidence
	}
}
