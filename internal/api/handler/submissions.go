package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/api/response"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/stage"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

// staleHeader marks responses served from the last good snapshot.
const staleHeader = "X-Cockpit-Stale"

var exportContentTypes = map[string]string{
	"markdown": "text/markdown; charset=utf-8",
	"json":     "application/json",
	"pdf":      "application/pdf",
}

// Exporter fetches rendered submission artifacts.
type Exporter interface {
	Fetch(ctx context.Context, submissionID, format string) ([]byte, string, error)
}

var _ Exporter = (*cockpit.Exporter)(nil)

type submissionRow struct {
	models.SubmissionListItem
	Tone     string `json:"tone"`
	Progress int    `json:"progress"`
}

// NewListSubmissionsHandler returns GET /api/v1/submissions. A failed refresh
// keeps serving the previous list.
func NewListSubmissionsHandler(c Cockpit) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := c.RefreshSubmissions(r.Context())
		snap := c.Snapshot()

		if err != nil {
			slog.Warn("submission refresh failed", "error", err)
			if !errors.Is(err, cockpit.ErrStale) && len(snap.Submissions) == 0 {
				response.Error(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE",
					"Failed to load submissions", nil)
				return
			}
			w.Header().Set(staleHeader, "true")
		}

		rows := make([]submissionRow, 0, len(snap.Submissions))
		for _, s := range snap.Submissions {
			rows = append(rows, submissionRow{
				SubmissionListItem: s,
				Tone:               stage.Tone(s.Status),
				Progress:           stage.SubmissionProgress(s.JobStatus),
			})
		}

		response.Collection(w, rows, response.PaginationMeta{
			Page:  1,
			Limit: len(rows),
			Total: len(rows),
		})
	}
}

// NewAuditHandler returns GET /api/v1/submissions/{id}/audit and marks the
// submission selected.
func NewAuditHandler(c Cockpit) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := c.SelectSubmission(r.Context(), id)
		switch {
		case err == nil:
		case errors.Is(err, cockpit.ErrStale):
			w.Header().Set(staleHeader, "true")
		default:
			slog.Warn("audit load failed", "submission_id", id, "error", err)
			response.Error(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE",
				"Failed to load audit trail", nil)
			return
		}

		audit := c.Snapshot().Audit
		if audit == nil {
			audit = []models.AuditLogItem{}
		}
		response.JSON(w, audit)
	}
}

// NewExportHandler returns GET /api/v1/submissions/{id}/export?format=.
func NewExportHandler(x Exporter, defaultFormat string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		format := r.URL.Query().Get("format")
		if format == "" {
			format = defaultFormat
		}

		data, name, err := x.Fetch(r.Context(), id, format)
		switch {
		case err == nil:
		case errors.Is(err, cockpit.ErrExportFormat), errors.Is(err, cockpit.ErrSubmissionID):
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", cockpit.ExportMessage(format, err), nil)
			return
		default:
			response.Error(w, http.StatusBadGateway, "EXPORT_FAILED", cockpit.ExportMessage(format, err), nil)
			return
		}

		response.Attachment(w, name, exportContentTypes[format], data)
	}
}
