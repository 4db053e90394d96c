package pipeline_test

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/backend"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

type mockClient struct {
	EnqueueFunc func(ctx context.Context, sess models.Session, filename string, body io.Reader) (models.JobHandle, error)
	GetJobFunc  func(ctx context.Context, sess models.Session, jobID string) (*models.JobState, error)

	enqueueCalls atomic.Int32
	getJobCalls  atomic.Int32
}

func (m *mockClient) Login(ctx context.Context, email, password string) (*backend.LoginResponse, error) {
	return &backend.LoginResponse{AccessToken: "tok", TenantID: "tenant"}, nil
}

func (m *mockClient) EnqueuePipeline(ctx context.Context, sess models.Session, filename string, body io.Reader) (models.JobHandle, error) {
	m.enqueueCalls.Add(1)
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, sess, filename, body)
	}
	return models.JobHandle{JobID: "job-1", SubmissionID: "sub-1"}, nil
}

func (m *mockClient) GetJob(ctx context.Context, sess models.Session, jobID string) (*models.JobState, error) {
	m.getJobCalls.Add(1)
	if m.GetJobFunc != nil {
		return m.GetJobFunc(ctx, sess, jobID)
	}
	return &models.JobState{JobID: jobID, Status: models.JobStatusQueued}, nil
}

func (m *mockClient) ListSubmissions(ctx context.Context, sess models.Session) ([]models.SubmissionListItem, error) {
	return nil, nil
}

func (m *mockClient) ListAudit(ctx context.Context, sess models.Session, submissionID string) ([]models.AuditLogItem, error) {
	return nil, nil
}

func (m *mockClient) Export(ctx context.Context, sess models.Session, submissionID, format string) ([]byte, error) {
	return nil, nil
}

var _ backend.Client = (*mockClient)(nil)

func strPtr(s string) *string { return &s }
