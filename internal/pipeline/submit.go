package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/backend"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/metrics"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/session"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

// Artifact is an uploaded submission packet.
type Artifact struct {
	Name string
	Data []byte
}

// Submitter enqueues artifacts on the backend pipeline.
type Submitter struct {
	client   backend.Client
	sessions session.Source
}

func NewSubmitter(client backend.Client, sessions session.Source) *Submitter {
	return &Submitter{client: client, sessions: sessions}
}

// Submit uploads a and returns as soon as the backend has accepted the job.
// A nil artifact fails with ErrValidation before any network call.
func (s *Submitter) Submit(ctx context.Context, a *Artifact) (models.JobHandle, error) {
	if a == nil || a.Name == "" {
		return models.JobHandle{}, fmt.Errorf("%w: no artifact selected", ErrValidation)
	}

	sess, err := s.sessions.EnsureSession(ctx)
	if err != nil {
		return models.JobHandle{}, err
	}

	handle, err := s.client.EnqueuePipeline(ctx, sess, a.Name, bytes.NewReader(a.Data))
	if err != nil {
		metrics.IncreaseBackendErrors("enqueue")
		slog.Warn("enqueue failed", "artifact", a.Name, "error", err)
		return models.JobHandle{}, submissionError(err)
	}

	slog.Info("pipeline job enqueued",
		"artifact", a.Name,
		"job_id", handle.JobID,
		"submission_id", handle.SubmissionID,
	)
	return handle, nil
}
