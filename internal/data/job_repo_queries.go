package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/pushforge/pushforge/internal/errors"

	"github.com/pushforge/pushforge/internal/data/pgxutil"
	"github.com/pushforge/pushforge/internal/domain/model"
)

// NextRunnable returns the oldest job still waiting to run (pending or
// validated), or model.ErrNoRunnableJobs. Claiming the job is left to the
// conditional Transition into running, so overlapping pollers race on that
// update rather than on this read.
func (r *JobRepo) NextRunnable(ctx context.Context) (*model.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status IN ('pending', 'validated')
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	var job *model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, query)
		if queryErr != nil {
			return fmt.Errorf("query next runnable: %w", queryErr)
		}
		defer rows.Close()

		var collectErr error
		job, collectErr = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		return collectErr
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNoRunnableJobs
		}
		return nil, apperrors.MapDBError(err)
	}

	return job, nil
}

// CountByStatus returns the number of jobs in each lifecycle state.
func (r *JobRepo) CountByStatus(ctx context.Context) (model.JobStats, error) {
	var stats model.JobStats
	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM jobs GROUP BY status
	`)
	if err != nil {
		return stats, apperrors.MapDBError(fmt.Errorf("count jobs: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var status model.JobStatus
		var count int
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return stats, fmt.Errorf("scan job count: %w", scanErr)
		}
		switch status {
		case model.JobStatusPending:
			stats.Pending = count
		case model.JobStatusValidated:
			stats.Validated = count
		case model.JobStatusRunning:
			stats.Running = count
		case model.JobStatusSuccess:
			stats.Success = count
		case model.JobStatusFailed:
			stats.Failed = count
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return stats, apperrors.MapDBError(rowsErr)
	}
	return stats, nil
}
