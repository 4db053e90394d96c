// Package session obtains and caches the backend credential and tenant.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/backend"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// ErrAuth is returned when login is rejected or the cached credential has expired.
// It is fatal for the current run; the caller must not retry silently.
var ErrAuth = errors.New("authentication failed")

// ErrSessionExpired is the ErrAuth variant for a cached credential past its expiry.
var ErrSessionExpired = fmt.Errorf("%w: session expired", ErrAuth)

// Source hands out the session for authenticated requests.
type Source interface {
	EnsureSession(ctx context.Context) (models.Session, error)
}

// Authenticator performs the login call.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResponse, error)
}

// Provider lazily logs in once and caches the session for the process lifetime.
// Concurrent cold callers share a single login request.
type Provider struct {
	auth     Authenticator
	email    string
	password string
	now      func() time.Time

	mu     sync.RWMutex
	cached *models.Session
	group  singleflight.Group
}

// NewProvider creates a Provider that logs in with the given credentials.
func NewProvider(auth Authenticator, email, password string) *Provider {
	return &Provider{
		auth:     auth,
		email:    email,
		password: password,
		now:      time.Now,
	}
}

// EnsureSession returns the cached session, logging in on first use.
// An expired cached credential is dropped and reported as ErrAuth; the next
// call logs in again.
func (p *Provider) EnsureSession(ctx context.Context) (models.Session, error) {
	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()

	if cached != nil {
		if cached.Expired(p.now()) {
			p.drop(cached)
			return models.Session{}, ErrSessionExpired
		}
		return *cached, nil
	}

	v, err, _ := p.group.Do("login", func() (any, error) {
		return p.login(ctx)
	})
	if err != nil {
		return models.Session{}, err
	}
	return v.(models.Session), nil
}

func (p *Provider) login(ctx context.Context) (models.Session, error) {
	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()
	if cached != nil && !cached.Expired(p.now()) {
		return *cached, nil
	}

	resp, err := p.auth.Login(ctx, p.email, p.password)
	if err != nil {
		slog.Warn("login failed", "error", err)
		return models.Session{}, fmt.Errorf("%w: login failed; check seeded user credentials: %v", ErrAuth, err)
	}

	sess := models.Session{
		Credential: resp.AccessToken,
		TenantID:   resp.TenantID,
		ExpiresAt:  tokenExpiry(resp.AccessToken),
	}
	if sess.ExpiresAt.IsZero() && resp.ExpiresIn > 0 {
		sess.ExpiresAt = p.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	p.mu.Lock()
	p.cached = &sess
	p.mu.Unlock()

	slog.Info("session established", "tenant_id", sess.TenantID)
	return sess, nil
}

// drop clears the cache only if it still holds s.
func (p *Provider) drop(s *models.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == s {
		p.cached = nil
	}
}

// tokenExpiry reads the exp claim of a JWT credential without verifying it.
// Opaque tokens yield the zero time.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// StaticProvider always returns the same session. Useful for tests and for
// callers that already hold a credential.
type StaticProvider struct {
	Session models.Session
	Err     error
}

func (s StaticProvider) EnsureSession(_ context.Context) (models.Session, error) {
	if s.Err != nil {
		return models.Session{}, s.Err
	}
	return s.Session, nil
}

var (
	_ Source = (*Provider)(nil)
	_ Source = StaticProvider{}
)
