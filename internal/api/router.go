package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mw "github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/api/middleware"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler     http.HandlerFunc
	MetricsHandler    http.Handler
	StartRunHandler   http.HandlerFunc
	CurrentRunHandler http.HandlerFunc
	ListRunsHandler   http.HandlerFunc
	ListSubmissions   http.HandlerFunc
	GetAudit          http.HandlerFunc
	ExportSubmission  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)

		r.With(deps.RateLimit.Limit).Post("/api/v1/runs", orNotImplemented(deps.StartRunHandler))
		r.Get("/api/v1/runs/current", orNotImplemented(deps.CurrentRunHandler))
		r.Get("/api/v1/runs", orNotImplemented(deps.ListRunsHandler))

		r.Get("/api/v1/submissions", orNotImplemented(deps.ListSubmissions))
		r.Get("/api/v1/submissions/{id}/audit", orNotImplemented(deps.GetAudit))
		r.Get("/api/v1/submissions/{id}/export", orNotImplemented(deps.ExportSubmission))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not enabled", nil)
	}
}
