// Package cockpit drives one submission packet from upload to a structured,
// scored result and holds the state the cockpit views render.
package cockpit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/metrics"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/pipeline"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/reconcile"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/session"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/stage"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/store"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

// ErrRunInProgress is returned when a run is started while another is active.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

const refreshTimeout = 30 * time.Second

var allStages = []string{
	stage.Idle.String(), stage.Uploading.String(), stage.Parsing.String(),
	stage.Structuring.String(), stage.Scoring.String(), stage.Ready.String(), stage.Locked.String(),
}

// Engine runs the upload, poll and reconcile sequence. One run at a time.
type Engine struct {
	sessions  session.Source
	submitter *pipeline.Submitter
	poller    *pipeline.Poller
	refresher *Refresher
	runs      store.Store
	driver    *stage.Driver

	mu    sync.RWMutex
	state state

	bg sync.WaitGroup
}

// NewEngine creates an Engine. runs may be nil to disable the run ledger.
func NewEngine(sessions session.Source, submitter *pipeline.Submitter, poller *pipeline.Poller, refresher *Refresher, runs store.Store, stageInterval time.Duration) *Engine {
	e := &Engine{
		sessions:  sessions,
		submitter: submitter,
		poller:    poller,
		refresher: refresher,
		runs:      runs,
	}
	e.driver = stage.NewDriver(stageInterval, e.setStage)
	metrics.SetStage(stage.Idle.String(), allStages)
	return e
}

// Snapshot returns a copy of the current state with freshly derived metrics.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.snapshot()
}

// Run executes a full pipeline run and blocks until it reaches Ready, Locked
// or fails back to Idle.
func (e *Engine) Run(ctx context.Context, a *pipeline.Artifact) (Snapshot, error) {
	if err := e.begin(a); err != nil {
		return e.Snapshot(), err
	}
	return e.execute(ctx, a)
}

// Start validates a and runs it in the background. It returns once the run
// has been accepted; progress is observed through Snapshot.
func (e *Engine) Start(ctx context.Context, a *pipeline.Artifact) error {
	if err := e.begin(a); err != nil {
		return err
	}

	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in pipeline run", "error", r, "artifact", a.Name)
				e.driver.Stop()
				e.mu.Lock()
				e.state.stage = stage.Idle
				e.state.running = false
				e.state.err = "Failed to process packet"
				e.mu.Unlock()
				metrics.SetStage(stage.Idle.String(), allStages)
			}
		}()
		_, _ = e.execute(ctx, a)
	}()
	return nil
}

// Wait blocks until background runs and refreshes have finished.
func (e *Engine) Wait() {
	e.bg.Wait()
}

// begin claims the engine for a run. A missing artifact is reported without
// touching the stage.
func (e *Engine) begin(a *pipeline.Artifact) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if a == nil || a.Name == "" {
		err := fmt.Errorf("%w: no artifact selected", pipeline.ErrValidation)
		e.state.err = pipeline.Describe(err)
		return err
	}
	if e.state.running {
		return ErrRunInProgress
	}

	e.state.running = true
	e.state.err = ""
	e.state.artifactName = a.Name
	e.state.job = nil
	e.state.runID = nil
	e.state.audit = nil
	return nil
}

// execute releases the engine in the same write that sets the terminal stage.
func (e *Engine) execute(ctx context.Context, a *pipeline.Artifact) (Snapshot, error) {
	e.driver.Start()
	slog.Info("pipeline run started", "artifact", a.Name)

	sess, err := e.sessions.EnsureSession(ctx)
	if err != nil {
		return e.fail(ctx, nil, err)
	}
	runID := e.recordStart(ctx, sess.TenantID, a.Name)

	handle, err := e.submitter.Submit(ctx, a)
	if err != nil {
		return e.fail(ctx, runID, err)
	}

	e.mu.Lock()
	e.state.job = &handle
	e.state.selected = handle.SubmissionID
	e.mu.Unlock()
	e.recordJob(ctx, runID, handle)

	result, err := e.poller.Poll(ctx, handle)
	if err != nil {
		return e.fail(ctx, runID, err)
	}

	// No cosmetic advance may land after the terminal stage.
	e.driver.Stop()

	derived := reconcile.Reconcile(result)
	final := stage.Ready
	if derived.Locked {
		final = stage.Locked
	}

	e.mu.Lock()
	e.state.result = result
	e.state.stage = final
	e.state.err = ""
	e.state.running = false
	snap := e.state.snapshot()
	e.mu.Unlock()
	metrics.SetStage(final.String(), allStages)
	metrics.IncreaseRuns(strings.ToLower(final.String()))

	e.recordFinish(ctx, runID, models.RunStatusSucceeded,
		store.WithFinalStage(final.String()),
		store.WithMetrics(derived.CompletenessPct, derived.ConfidencePct),
	)

	slog.Info("pipeline run finished",
		"job_id", handle.JobID,
		"submission_id", handle.SubmissionID,
		"stage", final.String(),
		"completeness_pct", derived.CompletenessPct,
		"confidence_pct", derived.ConfidencePct,
	)

	submissionID := result.Profile.SubmissionID
	if submissionID == "" {
		submissionID = handle.SubmissionID
	}
	e.refreshAfterRun(submissionID)

	return snap, nil
}

// fail stops the driver, returns the cockpit to Idle and surfaces err.
func (e *Engine) fail(ctx context.Context, runID *uuid.UUID, err error) (Snapshot, error) {
	e.driver.Stop()

	msg := pipeline.Describe(err)
	e.mu.Lock()
	e.state.stage = stage.Idle
	e.state.err = msg
	e.state.running = false
	snap := e.state.snapshot()
	e.mu.Unlock()
	metrics.SetStage(stage.Idle.String(), allStages)
	metrics.IncreaseRuns("failed")

	e.recordFinish(ctx, runID, models.RunStatusFailed,
		store.WithFinalStage(stage.Idle.String()),
		store.WithErrorMessage(msg),
	)

	slog.Warn("pipeline run failed", "error", err)
	return snap, err
}

// setStage is the driver's write path for cosmetic stages.
func (e *Engine) setStage(s stage.Stage) {
	e.mu.Lock()
	e.state.stage = s
	e.mu.Unlock()
	metrics.SetStage(s.String(), allStages)
}

// RefreshSubmissions reloads the submission list. On failure the previous list
// is kept; a stale snapshot only fills an empty list.
func (e *Engine) RefreshSubmissions(ctx context.Context) error {
	rows, err := e.refresher.Submissions(ctx)
	if err != nil && !errors.Is(err, ErrStale) {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil || len(e.state.submissions) == 0 {
		e.state.submissions = rows
	}
	return err
}

// SelectSubmission loads the audit trail of submissionID and marks it selected.
func (e *Engine) SelectSubmission(ctx context.Context, submissionID string) error {
	rows, err := e.refresher.Audit(ctx, submissionID)
	if err != nil && !errors.Is(err, ErrStale) {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.audit = rows
	e.state.selected = submissionID
	return err
}

// refreshAfterRun reloads the audit trail and submission list in the
// background. Failures are logged and never touch the run's result.
func (e *Engine) refreshAfterRun(submissionID string) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in background refresh", "error", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		var g errgroup.Group
		if submissionID != "" {
			g.Go(func() error { return e.SelectSubmission(ctx, submissionID) })
		}
		g.Go(func() error { return e.RefreshSubmissions(ctx) })
		if err := g.Wait(); err != nil {
			slog.Warn("background refresh failed", "submission_id", submissionID, "error", err)
		}
	}()
}

// --- Run ledger ---

func (e *Engine) recordStart(ctx context.Context, tenantID, artifact string) *uuid.UUID {
	if e.runs == nil {
		return nil
	}
	run := &models.Run{
		ID:           uuid.New(),
		TenantID:     tenantID,
		ArtifactName: artifact,
		Status:       models.RunStatusRunning,
		FinalStage:   stage.Uploading.String(),
		StartedAt:    time.Now().UTC(),
	}
	if err := e.runs.CreateRun(context.WithoutCancel(ctx), run); err != nil {
		slog.Warn("recording run failed", "error", err)
		return nil
	}

	e.mu.Lock()
	e.state.runID = &run.ID
	e.mu.Unlock()
	return &run.ID
}

func (e *Engine) recordJob(ctx context.Context, runID *uuid.UUID, handle models.JobHandle) {
	if e.runs == nil || runID == nil {
		return
	}
	if err := e.runs.AttachJob(context.WithoutCancel(ctx), *runID, handle); err != nil {
		slog.Warn("recording job failed", "run_id", *runID, "job_id", handle.JobID, "error", err)
	}
}

func (e *Engine) recordFinish(ctx context.Context, runID *uuid.UUID, status string, opts ...store.RunUpdateOption) {
	if e.runs == nil || runID == nil {
		return
	}
	if err := e.runs.UpdateRunStatus(context.WithoutCancel(ctx), *runID, status, opts...); err != nil {
		slog.Warn("closing run failed", "run_id", *runID, "status", status, "error", err)
	}
}
