package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/pipeline"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/store"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

// --- mock Cockpit ---

type mockCockpit struct {
	StartFunc   func(ctx context.Context, a *pipeline.Artifact) error
	RefreshFunc func(ctx context.Context) error
	SelectFunc  func(ctx context.Context, id string) error
	snap        cockpit.Snapshot
	started     *pipeline.Artifact
	startCtx    context.Context
	selectedID  string
}

func (m *mockCockpit) Start(ctx context.Context, a *pipeline.Artifact) error {
	m.started = a
	m.startCtx = ctx
	if m.StartFunc != nil {
		return m.StartFunc(ctx, a)
	}
	return nil
}

func (m *mockCockpit) Snapshot() cockpit.Snapshot { return m.snap }

func (m *mockCockpit) RefreshSubmissions(ctx context.Context) error {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	return nil
}

func (m *mockCockpit) SelectSubmission(ctx context.Context, id string) error {
	m.selectedID = id
	if m.SelectFunc != nil {
		return m.SelectFunc(ctx, id)
	}
	return nil
}

// --- mock Exporter ---

type mockExporter struct {
	FetchFunc func(ctx context.Context, id, format string) ([]byte, string, error)
}

func (m *mockExporter) Fetch(ctx context.Context, id, format string) ([]byte, string, error) {
	return m.FetchFunc(ctx, id, format)
}

// --- mock Store ---

type mockStore struct {
	ListRunsFunc func(ctx context.Context, f store.RunFilter) ([]*models.Run, int, error)
}

func (m *mockStore) Ping(_ context.Context) error                     { return nil }
func (m *mockStore) CreateRun(_ context.Context, _ *models.Run) error { return nil }
func (m *mockStore) GetRun(_ context.Context, _ uuid.UUID) (*models.Run, error) {
	return nil, store.ErrNotFound
}
func (m *mockStore) ListRuns(ctx context.Context, f store.RunFilter) ([]*models.Run, int, error) {
	return m.ListRunsFunc(ctx, f)
}
func (m *mockStore) AttachJob(_ context.Context, _ uuid.UUID, _ models.JobHandle) error { return nil }
func (m *mockStore) UpdateRunStatus(_ context.Context, _ uuid.UUID, _ string, _ ...store.RunUpdateOption) error {
	return nil
}

var _ store.Store = (*mockStore)(nil)

type pinger struct{ err error }

func (p pinger) Ping(_ context.Context) error { return p.err }

var errBoom = errors.New("boom")

// --- helpers ---

func uploadReq(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	part, err := mpw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/runs", &buf)
	r.Header.Set("Content-Type", mpw.FormDataContentType())
	return r
}

// withID routes a request through chi so {id} resolves.
func withID(method, pattern, path string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := struct {
		Data any `json:"data"`
	}{Data: out}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code, env.Error.Message
}

func strPtr(s string) *string { return &s }

func jsonUnmarshal(rec *httptest.ResponseRecorder, out any) error {
	return json.Unmarshal(rec.Body.Bytes(), out)
}
