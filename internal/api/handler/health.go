package handler

import (
	"context"
	"net/http"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/api/response"
)

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns GET /api/v1/health. A nil dependency is reported as
// disabled rather than degraded.
func NewHealthHandler(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string, len(deps))
		degraded := false
		for name, p := range deps {
			switch {
			case p == nil:
				checks[name] = "disabled"
			case p.Ping(r.Context()) != nil:
				checks[name] = "degraded"
				degraded = true
			default:
				checks[name] = "ok"
			}
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
