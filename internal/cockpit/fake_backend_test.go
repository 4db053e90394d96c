package cockpit_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/backend"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cache"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cockpit"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/pipeline"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/session"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/store"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

// fakeBackend is an in-process pipeline service. Zero status fields mean 200.
type fakeBackend struct {
	mu sync.Mutex

	loginStatus   int
	enqueueStatus int
	enqueueDetail string
	jobStatusCode int
	listStatus    int
	auditStatus   int
	exportStatus  int

	handle      models.JobHandle
	jobStates   []models.JobState
	submissions []models.SubmissionListItem
	audit       []models.AuditLogItem
	exportBody  []byte
	jobDelay    time.Duration

	logins     int
	enqueues   int
	jobCalls   int
	lastTenant string
	lastFile   string
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) counts() (logins, enqueues, jobCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, f.enqueues, f.jobCalls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.logins++
		if f.loginStatus != 0 {
			writeJSON(w, f.loginStatus, map[string]string{"detail": "Invalid credentials"})
			return
		}
		writeJSON(w, 0, map[string]any{"access_token": "opaque-token", "tenant_id": "tenant-1", "token_type": "bearer"})
	})

	mux.HandleFunc("POST /api/v1/pipeline/run-async", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.enqueues++
		f.lastTenant = r.Header.Get(backend.TenantHeader)
		if file, hdr, err := r.FormFile("file"); err == nil {
			_, _ = io.Copy(io.Discard, file)
			f.lastFile = hdr.Filename
		}
		if f.enqueueStatus != 0 {
			body := map[string]any{}
			if f.enqueueDetail != "" {
				body["detail"] = f.enqueueDetail
			}
			writeJSON(w, f.enqueueStatus, body)
			return
		}
		writeJSON(w, http.StatusAccepted, f.handle)
	})

	mux.HandleFunc("GET /api/v1/pipeline/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		delay := f.jobDelay
		f.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		n := f.jobCalls
		f.jobCalls++
		if f.jobStatusCode != 0 {
			writeJSON(w, f.jobStatusCode, map[string]string{"detail": "boom"})
			return
		}
		if n >= len(f.jobStates) {
			n = len(f.jobStates) - 1
		}
		st := f.jobStates[n]
		st.JobID = r.PathValue("id")
		writeJSON(w, 0, st)
	})

	mux.HandleFunc("GET /api/v1/submissions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.listStatus != 0 {
			writeJSON(w, f.listStatus, map[string]string{"detail": "down"})
			return
		}
		writeJSON(w, 0, f.submissions)
	})

	mux.HandleFunc("GET /api/v1/submissions/{id}/audit", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.auditStatus != 0 {
			writeJSON(w, f.auditStatus, map[string]string{"detail": "down"})
			return
		}
		writeJSON(w, 0, f.audit)
	})

	mux.HandleFunc("GET /api/v1/submissions/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.exportStatus != 0 {
			writeJSON(w, f.exportStatus, map[string]string{"detail": "not found"})
			return
		}
		_, _ = w.Write(f.exportBody)
	})

	return mux
}

type harness struct {
	backend  *fakeBackend
	server   *httptest.Server
	client   *backend.HTTPClient
	sessions *session.Provider
	cache    *cache.MemoryCache
	engine   *cockpit.Engine
}

type harnessOptions struct {
	maxAttempts int
	runs        store.Store
}

func newHarness(t *testing.T, fb *fakeBackend, opts harnessOptions) *harness {
	t.Helper()
	if opts.maxAttempts == 0 {
		opts.maxAttempts = 20
	}

	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	client := backend.NewHTTPClient(srv.URL+"/api/v1", 5*time.Second)
	sessions := session.NewProvider(client, "admin@ghostwriter.dev", "ChangeMe123!")
	mc := cache.NewMemoryCache()

	poller := pipeline.NewPoller(client, sessions,
		pipeline.WithInterval(time.Millisecond),
		pipeline.WithMaxAttempts(opts.maxAttempts),
		pipeline.WithStatusCache(mc),
	)
	engine := cockpit.NewEngine(
		sessions,
		pipeline.NewSubmitter(client, sessions),
		poller,
		cockpit.NewRefresher(client, sessions, mc),
		opts.runs,
		time.Millisecond,
	)
	t.Cleanup(engine.Wait)

	return &harness{backend: fb, server: srv, client: client, sessions: sessions, cache: mc, engine: engine}
}

func packet() *pipeline.Artifact {
	return &pipeline.Artifact{Name: "packet.pdf", Data: []byte("%PDF-1.7")}
}

func strPtr(s string) *string { return &s }

func greenResult(submissionID string) *models.PipelineResult {
	return &models.PipelineResult{
		Profile: models.RiskProfile{
			SubmissionID:    submissionID,
			InsuredName:     strPtr("Acme Logistics"),
			FieldConfidence: map[string]float64{"revenue": 0.9, "payroll": 0.7},
		},
		Completeness: []models.LineCompleteness{{LineOfBusiness: "GL", CompletenessScore: 100, Status: "Green"}},
		Questions:    models.QuestionSet{EmailDraft: "Hi broker, thanks for the packet."},
	}
}
