package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const keyPrefixKey contextKey = "key_prefix"

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

// KeyPrefix returns the authenticated key prefix, if any.
func KeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

// WithKeyPrefix is used by tests that bypass Authenticate.
func WithKeyPrefix(ctx context.Context, prefix string) context.Context {
	return setKeyPrefix(ctx, prefix)
}
