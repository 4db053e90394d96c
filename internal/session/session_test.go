package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/backend"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuth struct {
	calls     atomic.Int32
	LoginFunc func(ctx context.Context, email, password string) (*backend.LoginResponse, error)
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*backend.LoginResponse, error) {
	m.calls.Add(1)
	return m.LoginFunc(ctx, email, password)
}

func okAuth(token string) *mockAuth {
	return &mockAuth{LoginFunc: func(_ context.Context, _, _ string) (*backend.LoginResponse, error) {
		return &backend.LoginResponse{AccessToken: token, TenantID: "demo-brokerage"}, nil
	}}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestEnsureSession_LogsInOnce(t *testing.T) {
	auth := okAuth("opaque-token")
	p := NewProvider(auth, "admin@ghostwriter.dev", "secret")

	first, err := p.EnsureSession(context.Background())
	require.NoError(t, err)
	second, err := p.EnsureSession(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "opaque-token", first.Credential)
	assert.Equal(t, "demo-brokerage", first.TenantID)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), auth.calls.Load())
}

func TestEnsureSession_PassesCredentials(t *testing.T) {
	var gotEmail, gotPassword string
	auth := &mockAuth{LoginFunc: func(_ context.Context, email, password string) (*backend.LoginResponse, error) {
		gotEmail, gotPassword = email, password
		return &backend.LoginResponse{AccessToken: "t", TenantID: "x"}, nil
	}}
	p := NewProvider(auth, "broker@example.com", "pw")

	_, err := p.EnsureSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "broker@example.com", gotEmail)
	assert.Equal(t, "pw", gotPassword)
}

func TestEnsureSession_ConcurrentColdStartSharesLogin(t *testing.T) {
	release := make(chan struct{})
	auth := &mockAuth{LoginFunc: func(_ context.Context, _, _ string) (*backend.LoginResponse, error) {
		<-release
		return &backend.LoginResponse{AccessToken: "t", TenantID: "x"}, nil
	}}
	p := NewProvider(auth, "a", "b")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := p.EnsureSession(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "t", sess.Credential)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), auth.calls.Load())
}

func TestEnsureSession_LoginRejected(t *testing.T) {
	auth := &mockAuth{LoginFunc: func(_ context.Context, _, _ string) (*backend.LoginResponse, error) {
		return nil, &backend.StatusError{StatusCode: 401, Detail: "Invalid credentials"}
	}}
	p := NewProvider(auth, "a", "b")

	_, err := p.EnsureSession(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuth))
	assert.Contains(t, err.Error(), "Invalid credentials")

	// Failure is not cached; the next user-initiated call tries again.
	_, err = p.EnsureSession(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), auth.calls.Load())
}

func TestEnsureSession_ExpiryFromJWT(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewProvider(okAuth(signedToken(t, exp)), "a", "b")

	sess, err := p.EnsureSession(context.Background())
	require.NoError(t, err)
	assert.True(t, sess.ExpiresAt.Equal(exp))
}

func TestEnsureSession_ExpiryFromExpiresIn(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	auth := &mockAuth{LoginFunc: func(_ context.Context, _, _ string) (*backend.LoginResponse, error) {
		return &backend.LoginResponse{AccessToken: "opaque", TenantID: "x", ExpiresIn: 60}, nil
	}}
	p := NewProvider(auth, "a", "b")
	p.now = func() time.Time { return now }

	sess, err := p.EnsureSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), sess.ExpiresAt)
}

func TestEnsureSession_ExpiredIsFatalThenRelogin(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	auth := okAuth(signedToken(t, now.Add(time.Hour)))
	p := NewProvider(auth, "a", "b")
	p.now = func() time.Time { return now }

	_, err := p.EnsureSession(context.Background())
	require.NoError(t, err)

	p.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = p.EnsureSession(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuth))
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), auth.calls.Load(), "expiry must not trigger a silent re-login")

	// The next run starts from a cold cache.
	auth.LoginFunc = func(_ context.Context, _, _ string) (*backend.LoginResponse, error) {
		return &backend.LoginResponse{AccessToken: "fresh", TenantID: "x"}, nil
	}
	sess, err := p.EnsureSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", sess.Credential)
	assert.Equal(t, int32(2), auth.calls.Load())
}

func TestTokenExpiry_Opaque(t *testing.T) {
	assert.True(t, tokenExpiry("not-a-jwt").IsZero())
	assert.True(t, tokenExpiry("").IsZero())
}

func TestStaticProvider(t *testing.T) {
	sp := StaticProvider{}
	sp.Session.Credential = "c"
	sess, err := sp.EnsureSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c", sess.Credential)

	failing := StaticProvider{Err: ErrAuth}
	_, err = failing.EnsureSession(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}
