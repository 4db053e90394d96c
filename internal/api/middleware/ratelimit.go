package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/api/response"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cache"
)

const (
	defaultRequestsPerMinute = 10
	rateWindow               = 60 * time.Second
)

// RateLimit caps how often a key may start pipeline runs. Counters live in
// the shared cache so several cockpit processes agree on the budget.
type RateLimit struct {
	cache          cache.Cache
	scope          string
	requestsPerMin int
}

// NewRateLimit creates a limiter whose counters are namespaced by scope.
func NewRateLimit(c cache.Cache, scope string, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, scope: scope, requestsPerMin: requestsPerMin}
}

// Limit applies rate limiting based on the key_prefix set by auth middleware.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix, ok := KeyPrefix(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := cache.RateLimitKey(rl.scope + ":" + prefix)
		count, err := rl.cache.IncrWithExpiry(r.Context(), key, rateWindow)
		if err != nil {
			// fail open
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}
		resetTime := time.Now().Add(rateWindow).Unix()

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime))

		if count > int64(rl.requestsPerMin) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many runs started, try again shortly", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
