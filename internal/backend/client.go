// Package backend is the HTTP client for the submission pipeline service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

// Sentinel errors for backend client failures.
var (
	ErrBackendUnreachable = errors.New("backend unreachable")
	ErrBackendStatus      = errors.New("backend returned error status")
	ErrBackendTimeout     = errors.New("backend request timeout")
	ErrMalformedResponse  = errors.New("backend returned malformed response")
)

// TenantHeader carries the tenant identifier on every authenticated request.
const TenantHeader = "X-Tenant-ID"

// StatusError is a non-2xx response. Detail holds the backend's "detail" field when present.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", ErrBackendStatus, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", ErrBackendStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrBackendStatus }

// Client is the interface for talking to the pipeline backend.
type Client interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	EnqueuePipeline(ctx context.Context, sess models.Session, filename string, body io.Reader) (models.JobHandle, error)
	GetJob(ctx context.Context, sess models.Session, jobID string) (*models.JobState, error)
	ListSubmissions(ctx context.Context, sess models.Session) ([]models.SubmissionListItem, error)
	ListAudit(ctx context.Context, sess models.Session, submissionID string) ([]models.AuditLogItem, error)
	Export(ctx context.Context, sess models.Session, submissionID, format string) ([]byte, error)
}

// LoginResponse is the body of a successful POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TenantID    string `json:"tenant_id"`
	ExpiresIn   int    `json:"expires_in"`
}

// HTTPClient implements Client over the backend's JSON HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new backend HTTP client. baseURL includes the API prefix,
// e.g. http://localhost:8000/api/v1.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("encoding login request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out LoginResponse
	if err := c.doJSON(httpReq, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.TenantID == "" {
		return nil, fmt.Errorf("%w: login response missing access_token or tenant_id", ErrMalformedResponse)
	}
	return &out, nil
}

func (c *HTTPClient) EnqueuePipeline(ctx context.Context, sess models.Session, filename string, body io.Reader) (models.JobHandle, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return models.JobHandle{}, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return models.JobHandle{}, fmt.Errorf("copying artifact into multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return models.JobHandle{}, fmt.Errorf("closing multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pipeline/run-async", &buf)
	if err != nil {
		return models.JobHandle{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	setAuthHeaders(httpReq, sess)

	var handle models.JobHandle
	if err := c.doJSON(httpReq, &handle); err != nil {
		return models.JobHandle{}, err
	}
	if handle.JobID == "" {
		return models.JobHandle{}, fmt.Errorf("%w: enqueue response missing job_id", ErrMalformedResponse)
	}
	return handle, nil
}

func (c *HTTPClient) GetJob(ctx context.Context, sess models.Session, jobID string) (*models.JobState, error) {
	u := fmt.Sprintf("%s/pipeline/jobs/%s", c.baseURL, url.PathEscape(jobID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	setAuthHeaders(httpReq, sess)

	var state models.JobState
	if err := c.doJSON(httpReq, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *HTTPClient) ListSubmissions(ctx context.Context, sess models.Session) ([]models.SubmissionListItem, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/submissions", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	setAuthHeaders(httpReq, sess)

	var rows []models.SubmissionListItem
	if err := c.doJSON(httpReq, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		return []models.SubmissionListItem{}, nil
	}
	return rows, nil
}

func (c *HTTPClient) ListAudit(ctx context.Context, sess models.Session, submissionID string) ([]models.AuditLogItem, error) {
	u := fmt.Sprintf("%s/submissions/%s/audit", c.baseURL, url.PathEscape(submissionID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	setAuthHeaders(httpReq, sess)

	var rows []models.AuditLogItem
	if err := c.doJSON(httpReq, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		return []models.AuditLogItem{}, nil
	}
	return rows, nil
}

// Export returns the raw artifact bytes for the requested format.
func (c *HTTPClient) Export(ctx context.Context, sess models.Session, submissionID, format string) ([]byte, error) {
	params := url.Values{"format": {format}}
	u := fmt.Sprintf("%s/submissions/%s/export?%s", c.baseURL, url.PathEscape(submissionID), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	setAuthHeaders(httpReq, sess)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading export body: %w", err)
	}
	return data, nil
}

// doJSON sends req and decodes a 2xx JSON body into out.
func (c *HTTPClient) doJSON(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func setAuthHeaders(req *http.Request, sess models.Session) {
	req.Header.Set("Authorization", "Bearer "+sess.Credential)
	if sess.TenantID != "" {
		req.Header.Set(TenantHeader, sess.TenantID)
	}
}

// statusError reads the FastAPI-style {"detail": "..."} body if there is one.
func statusError(resp *http.Response) error {
	var body struct {
		Detail any `json:"detail"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	detail := ""
	switch d := body.Detail.(type) {
	case string:
		detail = d
	case nil:
	default:
		if b, err := json.Marshal(d); err == nil {
			detail = string(b)
		}
	}
	return &StatusError{StatusCode: resp.StatusCode, Detail: detail}
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
