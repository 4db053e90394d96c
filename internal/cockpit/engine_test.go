package cockpit_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/pipeline"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/session"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/stage"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/store"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

func TestRun_RunningTwiceThenGreenLocks(t *testing.T) {
	fb := &fakeBackend{
		handle: models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStates: []models.JobState{
			{Status: models.JobStatusRunning},
			{Status: models.JobStatusRunning},
			{Status: models.JobStatusSucceeded, Result: greenResult("S1")},
		},
		submissions: []models.SubmissionListItem{{SubmissionID: "S1", Filename: "packet.pdf", JobStatus: "succeeded"}},
		audit:       []models.AuditLogItem{{EventType: "pipeline.completed", Details: "ok"}},
	}
	h := newHarness(t, fb, harnessOptions{})

	snap, err := h.engine.Run(context.Background(), packet())
	require.NoError(t, err)

	assert.Equal(t, stage.Locked, snap.Stage)
	assert.Equal(t, "Packet locked", snap.StageLabel)
	assert.False(t, snap.Running)
	assert.Empty(t, snap.Error)
	assert.True(t, snap.Metrics.Locked)
	assert.Equal(t, 100, snap.Metrics.CompletenessPct)
	assert.Equal(t, 80, snap.Metrics.ConfidencePct)
	assert.Equal(t, "Acme Logistics", snap.SubmissionName)
	assert.Equal(t, "Hi broker, thanks for the packet.", snap.EmailDraft)
	require.NotNil(t, snap.Job)
	assert.Equal(t, "J1", snap.Job.JobID)
	assert.Equal(t, "S1", snap.SelectedSubmissionID)

	logins, enqueues, jobCalls := fb.counts()
	assert.Equal(t, 1, logins)
	assert.Equal(t, 1, enqueues)
	assert.Equal(t, 3, jobCalls)
	assert.Equal(t, "tenant-1", fb.lastTenant)
	assert.Equal(t, "packet.pdf", fb.lastFile)

	// The stage timer is stopped before the terminal write.
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, stage.Locked, h.engine.Snapshot().Stage)

	// Side effects land after the run returns.
	h.engine.Wait()
	after := h.engine.Snapshot()
	assert.Len(t, after.Submissions, 1)
	assert.Len(t, after.Audit, 1)

	status, found, err := h.cache.GetJobStatus(context.Background(), "J1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.JobStatusSucceeded, status)
}

func TestRun_NotAllGreenIsReady(t *testing.T) {
	result := greenResult("S1")
	result.Completeness = append(result.Completeness, models.LineCompleteness{
		LineOfBusiness: "Auto", CompletenessScore: 50, Status: "Yellow",
		MissingFields: []string{"vehicle_schedule"}, Blockers: []string{"vehicle_schedule missing"},
	})
	fb := &fakeBackend{
		handle:    models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStates: []models.JobState{{Status: models.JobStatusSucceeded, Result: result}},
	}
	h := newHarness(t, fb, harnessOptions{})

	snap, err := h.engine.Run(context.Background(), packet())
	require.NoError(t, err)
	assert.Equal(t, stage.Ready, snap.Stage)
	assert.Equal(t, 75, snap.Metrics.CompletenessPct)
	assert.False(t, snap.Metrics.Locked)
	assert.Equal(t, []models.RankedField{{Field: "vehicle_schedule", Severity: models.SeverityBlocker}}, snap.Metrics.MissingFields)
}

func TestRun_PipelineFailureSurfacesBackendError(t *testing.T) {
	fb := &fakeBackend{
		handle: models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStates: []models.JobState{
			{Status: models.JobStatusQueued},
			{Status: models.JobStatusFailed, Error: strPtr("OCR timeout")},
		},
	}
	h := newHarness(t, fb, harnessOptions{})

	snap, err := h.engine.Run(context.Background(), packet())
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrPipeline)
	assert.Equal(t, stage.Idle, snap.Stage)
	assert.Equal(t, "OCR timeout", snap.Error)
	assert.False(t, snap.Running)
}

func TestRun_TimeoutAfterMaxAttempts(t *testing.T) {
	fb := &fakeBackend{
		handle:    models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStates: []models.JobState{{Status: models.JobStatusRunning}},
	}
	h := newHarness(t, fb, harnessOptions{maxAttempts: 4})

	snap, err := h.engine.Run(context.Background(), packet())
	assert.ErrorIs(t, err, pipeline.ErrTimeout)
	assert.Equal(t, stage.Idle, snap.Stage)
	assert.Equal(t, "Pipeline timed out", snap.Error)

	_, _, jobCalls := fb.counts()
	assert.Equal(t, 4, jobCalls)
}

func TestRun_NoArtifact(t *testing.T) {
	fb := &fakeBackend{}
	h := newHarness(t, fb, harnessOptions{})

	snap, err := h.engine.Run(context.Background(), nil)
	assert.ErrorIs(t, err, pipeline.ErrValidation)
	assert.Equal(t, stage.Idle, snap.Stage)
	assert.Equal(t, "Drop a packet before starting AI structuring.", snap.Error)

	logins, enqueues, _ := fb.counts()
	assert.Zero(t, logins)
	assert.Zero(t, enqueues)
}

func TestRun_LoginRejected(t *testing.T) {
	fb := &fakeBackend{loginStatus: http.StatusUnauthorized}
	h := newHarness(t, fb, harnessOptions{})

	snap, err := h.engine.Run(context.Background(), packet())
	assert.ErrorIs(t, err, session.ErrAuth)
	assert.Equal(t, stage.Idle, snap.Stage)
	assert.Equal(t, "Login failed; check seeded user credentials.", snap.Error)

	_, enqueues, _ := fb.counts()
	assert.Zero(t, enqueues)
}

func TestRun_EnqueueRejectedWithDetail(t *testing.T) {
	fb := &fakeBackend{enqueueStatus: http.StatusUnprocessableEntity, enqueueDetail: "Unsupported file type"}
	h := newHarness(t, fb, harnessOptions{})

	snap, err := h.engine.Run(context.Background(), packet())
	assert.ErrorIs(t, err, pipeline.ErrSubmission)
	assert.Equal(t, "Unsupported file type", snap.Error)
	assert.Equal(t, stage.Idle, snap.Stage)
}

func TestRun_EnqueueRejectedWithoutDetail(t *testing.T) {
	fb := &fakeBackend{enqueueStatus: http.StatusInternalServerError}
	h := newHarness(t, fb, harnessOptions{})

	snap, err := h.engine.Run(context.Background(), packet())
	assert.ErrorIs(t, err, pipeline.ErrSubmission)
	assert.Equal(t, "Queueing failed", snap.Error)
}

func TestRun_JobStatusTransportFailure(t *testing.T) {
	fb := &fakeBackend{
		handle:        models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStatusCode: http.StatusBadGateway,
	}
	h := newHarness(t, fb, harnessOptions{})

	snap, err := h.engine.Run(context.Background(), packet())
	assert.ErrorIs(t, err, pipeline.ErrTransport)
	assert.Equal(t, "Job status request failed", snap.Error)

	_, _, jobCalls := fb.counts()
	assert.Equal(t, 1, jobCalls)
}

func TestRun_PreviousResultSurvivesLaterFailure(t *testing.T) {
	fb := &fakeBackend{
		handle:    models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStates: []models.JobState{{Status: models.JobStatusSucceeded, Result: greenResult("S1")}},
	}
	h := newHarness(t, fb, harnessOptions{})

	_, err := h.engine.Run(context.Background(), packet())
	require.NoError(t, err)

	fb.set(func(f *fakeBackend) {
		f.handle = models.JobHandle{JobID: "J2", SubmissionID: "S2"}
		f.jobStates = []models.JobState{{Status: models.JobStatusFailed}}
		f.jobCalls = 0
	})
	snap, err := h.engine.Run(context.Background(), packet())
	require.Error(t, err)

	assert.Equal(t, stage.Idle, snap.Stage)
	assert.Equal(t, "Pipeline failed", snap.Error)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "S1", snap.Result.Profile.SubmissionID)

	logins, _, _ := fb.counts()
	assert.Equal(t, 1, logins, "the session is reused across runs")
}

func TestStart_RejectsConcurrentRun(t *testing.T) {
	fb := &fakeBackend{
		handle:    models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStates: []models.JobState{{Status: models.JobStatusSucceeded, Result: greenResult("S1")}},
		jobDelay:  50 * time.Millisecond,
	}
	h := newHarness(t, fb, harnessOptions{})

	require.NoError(t, h.engine.Start(context.Background(), packet()))
	assert.True(t, h.engine.Snapshot().Running)

	err := h.engine.Start(context.Background(), packet())
	assert.ErrorIs(t, err, cockpit.ErrRunInProgress)

	_, err = h.engine.Run(context.Background(), packet())
	assert.ErrorIs(t, err, cockpit.ErrRunInProgress)

	require.Eventually(t, func() bool { return !h.engine.Snapshot().Running }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, stage.Locked, h.engine.Snapshot().Stage)

	_, enqueues, _ := fb.counts()
	assert.Equal(t, 1, enqueues)
}

func TestRun_ReleasesEngineWithTerminalStage(t *testing.T) {
	fb := &fakeBackend{
		handle:    models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStates: []models.JobState{{Status: models.JobStatusSucceeded, Result: greenResult("S1")}},
	}
	h := newHarness(t, fb, harnessOptions{})

	snap, err := h.engine.Run(context.Background(), packet())
	require.NoError(t, err)
	assert.Equal(t, stage.Locked, snap.Stage)
	assert.False(t, snap.Running)

	current := h.engine.Snapshot()
	assert.Equal(t, stage.Locked, current.Stage)
	assert.False(t, current.Running)

	// A finished run never blocks the next one.
	require.NoError(t, h.engine.Start(context.Background(), packet()))
	require.Eventually(t, func() bool { return !h.engine.Snapshot().Running }, 2*time.Second, 5*time.Millisecond)
	h.engine.Wait()

	_, enqueues, _ := fb.counts()
	assert.Equal(t, 2, enqueues)
}

func TestRun_FailureReleasesEngine(t *testing.T) {
	fb := &fakeBackend{
		handle:    models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStates: []models.JobState{{Status: models.JobStatusFailed, Error: strPtr("OCR timeout")}},
	}
	h := newHarness(t, fb, harnessOptions{})

	snap, err := h.engine.Run(context.Background(), packet())
	require.Error(t, err)
	assert.Equal(t, stage.Idle, snap.Stage)
	assert.False(t, snap.Running)
	assert.False(t, h.engine.Snapshot().Running)

	_, err = h.engine.Run(context.Background(), packet())
	assert.ErrorIs(t, err, pipeline.ErrPipeline)
	assert.NotErrorIs(t, err, cockpit.ErrRunInProgress)
}

func TestRun_ContextCancelled(t *testing.T) {
	fb := &fakeBackend{
		handle:    models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStates: []models.JobState{{Status: models.JobStatusRunning}},
	}
	h := newHarness(t, fb, harnessOptions{maxAttempts: 100000})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	snap, err := h.engine.Run(ctx, packet())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, pipeline.ErrTransport))
	assert.Equal(t, stage.Idle, snap.Stage)
}

func TestRefreshSubmissions_KeepsPreviousListOnFailure(t *testing.T) {
	fb := &fakeBackend{submissions: []models.SubmissionListItem{{SubmissionID: "S1"}, {SubmissionID: "S2"}}}
	h := newHarness(t, fb, harnessOptions{})
	ctx := context.Background()

	require.NoError(t, h.engine.RefreshSubmissions(ctx))
	require.Len(t, h.engine.Snapshot().Submissions, 2)

	fb.set(func(f *fakeBackend) {
		f.listStatus = http.StatusServiceUnavailable
		f.submissions = nil
	})
	err := h.engine.RefreshSubmissions(ctx)
	assert.ErrorIs(t, err, cockpit.ErrStale)
	assert.Len(t, h.engine.Snapshot().Submissions, 2)
}

func TestSelectSubmission_LoadsAuditTrail(t *testing.T) {
	fb := &fakeBackend{audit: []models.AuditLogItem{{EventType: "upload"}, {EventType: "structured"}}}
	h := newHarness(t, fb, harnessOptions{})

	require.NoError(t, h.engine.SelectSubmission(context.Background(), "S9"))
	snap := h.engine.Snapshot()
	assert.Equal(t, "S9", snap.SelectedSubmissionID)
	assert.Len(t, snap.Audit, 2)
}

// recordingStore is an in-memory run ledger.
type recordingStore struct {
	mu      sync.Mutex
	runs    map[uuid.UUID]*models.Run
	updates []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{runs: map[uuid.UUID]*models.Run{}}
}

func (s *recordingStore) Ping(context.Context) error { return nil }

func (s *recordingStore) CreateRun(_ context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *recordingStore) GetRun(_ context.Context, id uuid.UUID) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *recordingStore) ListRuns(context.Context, store.RunFilter) ([]*models.Run, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Run{}
	for _, r := range s.runs {
		cp := *r
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (s *recordingStore) AttachJob(_ context.Context, id uuid.UUID, h models.JobHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return store.ErrNotFound
	}
	r.JobID, r.SubmissionID = &h.JobID, &h.SubmissionID
	return nil
}

func (s *recordingStore) UpdateRunStatus(_ context.Context, id uuid.UUID, status string, _ ...store.RunUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	s.updates = append(s.updates, status)
	return nil
}

var _ store.Store = (*recordingStore)(nil)

func TestRun_RecordsLedger(t *testing.T) {
	fb := &fakeBackend{
		handle:    models.JobHandle{JobID: "J1", SubmissionID: "S1"},
		jobStates: []models.JobState{{Status: models.JobStatusSucceeded, Result: greenResult("S1")}},
	}
	ledger := newRecordingStore()
	h := newHarness(t, fb, harnessOptions{runs: ledger})

	snap, err := h.engine.Run(context.Background(), packet())
	require.NoError(t, err)
	require.NotNil(t, snap.RunID)

	run, err := ledger.GetRun(context.Background(), *snap.RunID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", run.TenantID)
	assert.Equal(t, "packet.pdf", run.ArtifactName)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	require.NotNil(t, run.JobID)
	assert.Equal(t, "J1", *run.JobID)
	assert.Equal(t, []string{models.RunStatusSucceeded}, ledger.updates)
}
