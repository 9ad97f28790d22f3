package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/pushforge/pushforge/internal/errors"

	"github.com/pushforge/pushforge/internal/data/pgxutil"
	"github.com/pushforge/pushforge/internal/domain/model"
)

// JobRepo provides database operations for the job store.
//
// Every status mutation is a conditional update that only applies when the
// pre-mutation status still matches what the caller expects, and reports
// whether it changed anything. That rows-affected signal is how overlapping
// callers for the same job are serialized without in-process locks.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// JobRepoConfig holds configuration options for the job repository.
type JobRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// NewJobRepo creates a new JobRepo instance with the given database connection.
func NewJobRepo(db *sql.DB, cfg JobRepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  user_id,
  kind,
  status,
  required_credits,
  credits_charged,
  payload,
  result,
  logs,
  error,
  created_at,
  updated_at
`

// Insert persists a new pending job with the given initial log entry.
func (r *JobRepo) Insert(
	ctx context.Context,
	req *model.CreateJobRequest,
	initialLog string,
) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if validateErr := req.Validate(); validateErr != nil {
		return nil, apperrors.Wrap(validateErr, apperrors.ErrCodeValidation, "invalid job request")
	}

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	now := r.timeProvider.Now().UTC()
	query := `
		INSERT INTO jobs (user_id, kind, status, required_credits, payload, logs, created_at, updated_at)
		VALUES ($1, $2, 'pending', $3, $4, $5, $6, $6)
		RETURNING ` + jobColumns

	var job *model.Job
	if txErr := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, query,
			req.UserID,
			req.Payload.Kind(),
			req.RequiredCredits,
			payload,
			[]string{initialLog},
			now,
		)
		if queryErr != nil {
			return fmt.Errorf("insert job: %w", queryErr)
		}
		defer rows.Close()

		var collectErr error
		job, collectErr = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		if collectErr != nil {
			return fmt.Errorf("collect job: %w", collectErr)
		}
		return nil
	}); txErr != nil {
		return nil, apperrors.MapDBError(txErr)
	}

	return job, nil
}

// Get returns the job with the given id, or a NotFound error.
func (r *JobRepo) Get(ctx context.Context, id string) (*model.Job, error) {
	if id == "" {
		return nil, ErrJobIDRequired
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	var job *model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, query, id)
		if queryErr != nil {
			return fmt.Errorf("query job: %w", queryErr)
		}
		defer rows.Close()

		var collectErr error
		job, collectErr = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		return collectErr
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("job not found: %s", id)
		}
		return nil, apperrors.MapDBError(err)
	}

	return job, nil
}

// List returns a user's jobs, newest first, optionally filtered by status.
func (r *JobRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	if opts == nil || opts.UserID == "" {
		return nil, ErrUserIDRequired
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE user_id = $1`
	args := []any{opts.UserID}
	if opts.Status != nil && *opts.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *opts.Status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	var result []*model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, query, args...)
		if queryErr != nil {
			return fmt.Errorf("query jobs: %w", queryErr)
		}
		defer rows.Close()

		vals, collectErr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Job])
		if collectErr != nil {
			return fmt.Errorf("collect jobs: %w", collectErr)
		}
		result = vals
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return result, nil
}

// AppendLog appends a message to the job's audit trail without touching its
// status. Reports false when the job does not exist.
func (r *JobRepo) AppendLog(ctx context.Context, id, message string) (bool, error) {
	if id == "" {
		return false, ErrJobIDRequired
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET logs = array_append(logs, $2),
		    updated_at = $3
		WHERE id = $1
	`, id, message, r.timeProvider.Now().UTC())
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("append log: %w", err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append log rows affected: %w", err)
	}
	return rows > 0, nil
}

// Transition conditionally moves a job between non-terminal states. The
// update applies only when the job's current status is one of p.From, and the
// returned bool reports whether this caller won the transition.
func (r *JobRepo) Transition(ctx context.Context, p model.JobTransition) (bool, error) {
	if p.ID == "" {
		return false, ErrJobIDRequired
	}
	if len(p.From) == 0 || !p.To.Valid() {
		return false, apperrors.Validation("transition requires from and to statuses")
	}

	from := make([]string, 0, len(p.From))
	for _, s := range p.From {
		from = append(from, string(s))
	}

	now := r.timeProvider.Now().UTC()
	applied := false
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE jobs
			SET status = $2,
			    error = COALESCE($3, error),
			    logs = array_append(logs, $4),
			    updated_at = $5
			WHERE id = $1 AND status = ANY($6)
		`, p.ID, p.To, p.Error, p.LogMessage, now, from)
		if execErr != nil {
			return fmt.Errorf("transition job: %w", execErr)
		}
		applied = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, apperrors.MapDBError(err)
	}

	if applied && r.logger != nil {
		r.logger.DebugContext(ctx, "job transitioned", "id", p.ID, "to", p.To)
	}
	return applied, nil
}

// CompleteTerminal conditionally moves a job to a terminal state, merging the
// result payload and, for settled successes, flipping credits_charged. The
// update applies only while the job is still non-terminal; a losing
// concurrent caller observes false and must treat the call as a no-op.
func (r *JobRepo) CompleteTerminal(ctx context.Context, p model.JobCompletion) (bool, error) {
	if p.ID == "" {
		return false, ErrJobIDRequired
	}
	if !p.Status.Terminal() {
		return false, apperrors.Validation("completion status must be terminal")
	}

	result := p.Result
	if len(result) == 0 {
		result = json.RawMessage(`{}`)
	}

	now := r.timeProvider.Now().UTC()
	applied := false
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE jobs
			SET status = $2,
			    credits_charged = credits_charged OR $3,
			    result = result || $4::jsonb,
			    error = COALESCE($5, error),
			    logs = array_append(logs, $6),
			    updated_at = $7
			WHERE id = $1 AND status NOT IN ('success', 'failed')
		`, p.ID, p.Status, p.ChargeCredits, []byte(result), p.Error, p.LogMessage, now)
		if execErr != nil {
			return fmt.Errorf("complete job: %w", execErr)
		}
		applied = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, apperrors.MapDBError(err)
	}

	if applied && r.logger != nil {
		r.logger.InfoContext(ctx, "job completed",
			"id", p.ID,
			"status", p.Status,
			"credits_charged", p.ChargeCredits,
		)
	}
	return applied, nil
}
