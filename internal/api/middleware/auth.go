package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/api/response"
)

const keyPrefixLen = 8

// localKeyPrefix identifies callers when no API key hash is configured.
const localKeyPrefix = "local"

// Auth guards the cockpit API with a single operator key.
type Auth struct {
	keyHash []byte
}

// NewAuth creates Auth from a bcrypt hash of the operator key. An empty hash
// disables the check, which is only meant for a cockpit bound to localhost.
func NewAuth(keyHash string) *Auth {
	return &Auth{keyHash: []byte(keyHash)}
}

// Enabled reports whether requests must present a bearer key.
func (a *Auth) Enabled() bool {
	return len(a.keyHash) > 0
}

// Authenticate validates the Bearer token against the configured hash and
// sets key_prefix in the request context for rate limiting.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r.WithContext(setKeyPrefix(r.Context(), localKeyPrefix)))
			return
		}

		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		if bcrypt.CompareHashAndPassword(a.keyHash, []byte(rawKey)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(setKeyPrefix(r.Context(), rawKey[:keyPrefixLen])))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
