package data

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/pushforge/pushforge/internal/errors"
)

// SafetyRepo runs the cross-table reconciliation queries behind the credit
// safety report: jobs and ledger records are written by separate statements,
// so an operator needs a cheap way to confirm they never drifted apart.
type SafetyRepo struct {
	DB *sql.DB
}

// NewSafetyRepo creates a new SafetyRepo with the given database connection.
func NewSafetyRepo(db *sql.DB) *SafetyRepo {
	return &SafetyRepo{DB: db}
}

// SumBalances returns the total credits remaining across all accounts.
func (r *SafetyRepo) SumBalances(ctx context.Context) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM credit_accounts`,
	).Scan(&total)
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("sum balances: %w", err))
	}
	return total, nil
}

// UnsettledSuccesses returns ids of successful jobs with no matching
// consumption transaction. A charged flag without a ledger record means the
// settlement sequencing was violated.
func (r *SafetyRepo) UnsettledSuccesses(ctx context.Context) ([]string, error) {
	return r.queryIDs(ctx, `
		SELECT j.id::text
		FROM jobs j
		WHERE j.status = 'success'
		  AND NOT EXISTS (
		        SELECT 1 FROM credit_transactions t
		        WHERE t.job_id = j.id AND t.type = 'consumption'
		  )
		ORDER BY j.created_at
	`)
}

// OrphanSettlements returns ids of jobs that have a consumption transaction
// but never reached success. These represent charges without delivered work.
func (r *SafetyRepo) OrphanSettlements(ctx context.Context) ([]string, error) {
	return r.queryIDs(ctx, `
		SELECT t.job_id::text
		FROM credit_transactions t
		JOIN jobs j ON j.id = t.job_id
		WHERE t.type = 'consumption'
		  AND j.status <> 'success'
		ORDER BY t.created_at
	`)
}

// ChargedWithoutSuccess returns ids of jobs whose credits_charged flag is set
// while their status is not success. The jobs table check constraint should
// make this impossible; the query is the independent verification.
func (r *SafetyRepo) ChargedWithoutSuccess(ctx context.Context) ([]string, error) {
	return r.queryIDs(ctx, `
		SELECT id::text
		FROM jobs
		WHERE credits_charged AND status <> 'success'
		ORDER BY created_at
	`)
}

func (r *SafetyRepo) queryIDs(ctx context.Context, query string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("safety query: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("scan safety row: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperrors.MapDBError(rowsErr)
	}
	return ids, nil
}
