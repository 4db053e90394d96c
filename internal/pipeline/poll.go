package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/backend"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cache"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/metrics"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/session"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

const (
	DefaultPollInterval = 1200 * time.Millisecond
	DefaultMaxAttempts  = 80

	jobStatusTTL = 10 * time.Minute
)

// Poller queries a job's status until it succeeds, fails or runs out of attempts.
type Poller struct {
	client      backend.Client
	sessions    session.Source
	interval    time.Duration
	maxAttempts int
	cache       cache.Cache

	mu       sync.Mutex
	inflight map[string]struct{}
}

type PollerOption func(*Poller)

// WithInterval sets the delay between a response and the next query.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts bounds the number of status queries per poll.
func WithMaxAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithStatusCache mirrors every observed job status into c.
func WithStatusCache(c cache.Cache) PollerOption {
	return func(p *Poller) {
		p.cache = c
	}
}

func NewPoller(client backend.Client, sessions session.Source, opts ...PollerOption) *Poller {
	p := &Poller{
		client:      client,
		sessions:    sessions,
		interval:    DefaultPollInterval,
		maxAttempts: DefaultMaxAttempts,
		inflight:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll blocks until the job reaches a terminal status. It issues at most
// maxAttempts queries and does not sleep after the last one.
func (p *Poller) Poll(ctx context.Context, h models.JobHandle) (*models.PipelineResult, error) {
	if h.JobID == "" {
		return nil, fmt.Errorf("%w: job handle has no job id", ErrValidation)
	}
	if !p.acquire(h.JobID) {
		return nil, fmt.Errorf("%w: %s", ErrPollInFlight, h.JobID)
	}
	defer p.release(h.JobID)

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		sess, err := p.sessions.EnsureSession(ctx)
		if err != nil {
			return nil, err
		}

		state, err := p.client.GetJob(ctx, sess, h.JobID)
		if err != nil {
			metrics.IncreasePollAttempts("error")
			metrics.IncreaseBackendErrors("get_job")
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("job status request failed", "job_id", h.JobID, "attempt", attempt, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		metrics.IncreasePollAttempts(state.Status)
		p.mirror(ctx, h.JobID, state.Status)
		slog.Debug("job status", "job_id", h.JobID, "attempt", attempt, "status", state.Status)

		switch state.Status {
		case models.JobStatusSucceeded:
			if state.Result == nil {
				return nil, &detailError{kind: ErrPipeline, detail: "Pipeline returned no result"}
			}
			return state.Result, nil
		case models.JobStatusFailed:
			detail := ""
			if state.Error != nil {
				detail = *state.Error
			}
			slog.Warn("pipeline job failed", "job_id", h.JobID, "attempt", attempt, "error", detail)
			return nil, &detailError{kind: ErrPipeline, detail: detail}
		}

		if attempt == p.maxAttempts {
			break
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	slog.Warn("pipeline job timed out", "job_id", h.JobID, "attempts", p.maxAttempts)
	return nil, fmt.Errorf("%w: job %s still pending after %d attempts", ErrTimeout, h.JobID, p.maxAttempts)
}

func (p *Poller) acquire(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[jobID]; busy {
		return false
	}
	p.inflight[jobID] = struct{}{}
	return true
}

func (p *Poller) release(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, jobID)
}

// mirror is best effort; a cache outage never fails a poll.
func (p *Poller) mirror(ctx context.Context, jobID, status string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.SetJobStatus(ctx, jobID, status, jobStatusTTL); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("mirroring job status failed", "job_id", jobID, "error", err)
	}
}
