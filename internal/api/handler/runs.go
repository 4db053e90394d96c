package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/api/response"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/pipeline"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/store"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

const (
	maxUploadBytes  = 50 << 20
	multipartMemory = 8 << 20
	defaultPage     = 1
	defaultLimit    = 20
	maxLimit        = 100
)

// Cockpit is the part of cockpit.Engine the handlers drive.
type Cockpit interface {
	Start(ctx context.Context, a *pipeline.Artifact) error
	Snapshot() cockpit.Snapshot
	RefreshSubmissions(ctx context.Context) error
	SelectSubmission(ctx context.Context, submissionID string) error
}

var _ Cockpit = (*cockpit.Engine)(nil)

// NewStartRunHandler returns POST /api/v1/runs. The packet is read from the
// multipart field "file". Runs outlive the request, so they are started with
// base rather than the request context.
func NewStartRunHandler(base context.Context, c Cockpit) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "ARTIFACT_TOO_LARGE",
					"Packet exceeds the upload limit", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Expected a multipart upload with a file field", nil)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", pipeline.MessageNoArtifact, nil)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read uploaded packet", nil)
			return
		}

		err = c.Start(base, &pipeline.Artifact{Name: header.Filename, Data: data})
		switch {
		case err == nil:
		case errors.Is(err, pipeline.ErrValidation):
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", pipeline.Describe(err), nil)
			return
		case errors.Is(err, cockpit.ErrRunInProgress):
			response.Error(w, http.StatusConflict, "RUN_IN_PROGRESS",
				"A packet is already being processed", nil)
			return
		default:
			slog.Error("start run failed", "artifact", header.Filename, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		slog.Info("run accepted", "artifact", header.Filename, "bytes", len(data))
		response.Accepted(w, c.Snapshot())
	}
}

// NewCurrentRunHandler returns GET /api/v1/runs/current.
func NewCurrentRunHandler(c Cockpit) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, c.Snapshot())
	}
}

// NewListRunsHandler returns GET /api/v1/runs backed by the run ledger.
func NewListRunsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, ok := queryInt(q.Get("page"), defaultPage)
		if !ok || page < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be a positive integer", nil)
			return
		}
		if page > store.MaxPage {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("page must not exceed %d", store.MaxPage), nil)
			return
		}
		limit, ok := queryInt(q.Get("limit"), defaultLimit)
		if !ok || limit < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
			return
		}
		if limit > maxLimit {
			limit = maxLimit
		}

		status := q.Get("status")
		switch status {
		case "", models.RunStatusRunning, models.RunStatusSucceeded, models.RunStatusFailed:
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"status must be one of running, succeeded, failed", nil)
			return
		}

		runs, total, err := s.ListRuns(r.Context(), store.RunFilter{
			TenantID: q.Get("tenant_id"),
			Status:   status,
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			slog.Error("list runs failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list runs", nil)
			return
		}
		if runs == nil {
			runs = []*models.Run{}
		}

		response.Collection(w, runs, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

func queryInt(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
