package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/backend"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/session"
)

// Sentinel errors for pipeline runs.
var (
	ErrValidation   = errors.New("validation failed")
	ErrSubmission   = errors.New("queueing failed")
	ErrTransport    = errors.New("job status request failed")
	ErrPipeline     = errors.New("pipeline failed")
	ErrTimeout      = errors.New("pipeline timed out")
	ErrPollInFlight = errors.New("job is already being polled")
)

// MessageNoArtifact is shown when a run is started without a packet.
const MessageNoArtifact = "Drop a packet before starting AI structuring."

// detailError carries the backend's own wording next to a sentinel.
type detailError struct {
	kind   error
	detail string
}

func (e *detailError) Error() string {
	if e.detail == "" {
		return e.kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.kind, e.detail)
}

func (e *detailError) Unwrap() error { return e.kind }

// Detail returns the backend-supplied message for err, if any.
func Detail(err error) string {
	var de *detailError
	if errors.As(err, &de) {
		return de.detail
	}
	return ""
}

// Describe renders err as the message shown to the underwriter.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if d := Detail(err); d != "" {
		return d
	}
	switch {
	case errors.Is(err, ErrValidation):
		return MessageNoArtifact
	case errors.Is(err, session.ErrSessionExpired):
		return "Session expired; sign in again."
	case errors.Is(err, session.ErrAuth):
		return "Login failed; check seeded user credentials."
	case errors.Is(err, ErrSubmission):
		return "Queueing failed"
	case errors.Is(err, ErrPipeline):
		return "Pipeline failed"
	case errors.Is(err, ErrTimeout):
		return "Pipeline timed out"
	case errors.Is(err, ErrTransport):
		return "Job status request failed"
	case errors.Is(err, ErrPollInFlight):
		return "This job is already being watched"
	case errors.Is(err, context.Canceled):
		return "Run cancelled"
	default:
		return "Failed to process packet"
	}
}

// submissionError maps an enqueue failure onto ErrSubmission, keeping the
// backend's detail text when it sent one.
func submissionError(err error) error {
	var se *backend.StatusError
	if errors.As(err, &se) {
		return &detailError{kind: ErrSubmission, detail: se.Detail}
	}
	return fmt.Errorf("%w: %v", ErrSubmission, err)
}
