package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/pkg/models"
)

const runColumns = `id, tenant_id, artifact_name, job_id, submission_id, status, final_stage,
	error_message, completeness_pct, confidence_pct, started_at, completed_at`

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.Run) error {
	if run.Status == "" {
		run.Status = models.RunStatusRunning
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, tenant_id, artifact_name, job_id, submission_id, status, final_stage, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.TenantID, run.ArtifactName, run.JobID, run.SubmissionID, run.Status, run.FinalStage, run.StartedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*models.Run, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.TenantID != "" {
		conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", argIdx))
		args = append(args, filter.TenantID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM runs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM runs WHERE %s ORDER BY started_at DESC LIMIT $%d OFFSET $%d`,
		runColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, total, rows.Err()
}

// AttachJob records the backend identifiers once the packet has been accepted.
func (s *PostgresStore) AttachJob(ctx context.Context, id uuid.UUID, handle models.JobHandle) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET job_id = $2, submission_id = $3 WHERE id = $1`,
		id, handle.JobID, handle.SubmissionID)
	if err != nil {
		return fmt.Errorf("attach job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var validTransitions = map[string][]string{
	models.RunStatusRunning: {models.RunStatusSucceeded, models.RunStatusFailed},
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error {
	params := &runUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM runs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get run status: %w", err)
	}

	valid := false
	for _, a := range validTransitions[currentStatus] {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	query := `UPDATE runs SET status = $2, completed_at = $3`
	args := []any{id, status, time.Now().UTC()}
	argIdx := 4

	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.FinalStage != nil {
		query += fmt.Sprintf(", final_stage = $%d", argIdx)
		args = append(args, *params.FinalStage)
		argIdx++
	}
	if params.CompletenessPct != nil {
		query += fmt.Sprintf(", completeness_pct = $%d, confidence_pct = $%d", argIdx, argIdx+1)
		args = append(args, *params.CompletenessPct, *params.ConfidencePct)
		argIdx += 2
	}

	// status is re-checked so a concurrent update cannot apply twice.
	query += " WHERE id = $1 AND status = '" + models.RunStatusRunning + "'"

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, id)
	}
	return nil
}

func scanRun(row pgx.Row) (*models.Run, error) {
	var r models.Run
	err := row.Scan(&r.ID, &r.TenantID, &r.ArtifactName, &r.JobID, &r.SubmissionID, &r.Status,
		&r.FinalStage, &r.ErrorMessage, &r.CompletenessPct, &r.ConfidencePct, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
