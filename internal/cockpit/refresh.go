package cockpit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/backend"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cache"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/session"
	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

// ErrStale marks a refresh that failed but returned the last good snapshot.
var ErrStale = errors.New("serving stale snapshot")

const snapshotTTL = 24 * time.Hour

// Refresher loads the submission list and audit trails. Every successful load
// is kept in the cache so a later failure can still show the previous data.
type Refresher struct {
	client   backend.Client
	sessions session.Source
	cache    cache.Cache
}

// NewRefresher creates a Refresher. ca may be nil to disable snapshots.
func NewRefresher(client backend.Client, sessions session.Source, ca cache.Cache) *Refresher {
	return &Refresher{client: client, sessions: sessions, cache: ca}
}

// Submissions returns the tenant's submissions. When the backend call fails
// and a snapshot exists, the snapshot is returned with an error wrapping ErrStale.
func (r *Refresher) Submissions(ctx context.Context) ([]models.SubmissionListItem, error) {
	sess, err := r.sessions.EnsureSession(ctx)
	if err != nil {
		return nil, err
	}
	key := cache.SubmissionsKey(sess.TenantID)

	rows, err := r.client.ListSubmissions(ctx, sess)
	if err != nil {
		var stale []models.SubmissionListItem
		if r.loadSnapshot(ctx, key, &stale) {
			return stale, fmt.Errorf("%w: listing submissions: %v", ErrStale, err)
		}
		return nil, fmt.Errorf("listing submissions: %w", err)
	}

	r.storeSnapshot(ctx, key, rows)
	return rows, nil
}

// Audit returns the audit trail of one submission, falling back like Submissions.
func (r *Refresher) Audit(ctx context.Context, submissionID string) ([]models.AuditLogItem, error) {
	sess, err := r.sessions.EnsureSession(ctx)
	if err != nil {
		return nil, err
	}
	key := cache.AuditKey(sess.TenantID, submissionID)

	rows, err := r.client.ListAudit(ctx, sess, submissionID)
	if err != nil {
		var stale []models.AuditLogItem
		if r.loadSnapshot(ctx, key, &stale) {
			return stale, fmt.Errorf("%w: loading audit trail: %v", ErrStale, err)
		}
		return nil, fmt.Errorf("loading audit trail: %w", err)
	}

	r.storeSnapshot(ctx, key, rows)
	return rows, nil
}

func (r *Refresher) storeSnapshot(ctx context.Context, key string, v any) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, snapshotTTL); err != nil {
		slog.Warn("storing snapshot failed", "key", key, "error", err)
	}
}

func (r *Refresher) loadSnapshot(ctx context.Context, key string, out any) bool {
	if r.cache == nil {
		return false
	}
	data, found, err := r.cache.Get(ctx, key)
	if err != nil || !found {
		return false
	}
	return json.Unmarshal(data, out) == nil
}
