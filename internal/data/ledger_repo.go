package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/pushforge/pushforge/internal/errors"

	"github.com/pushforge/pushforge/internal/data/pgxutil"
	"github.com/pushforge/pushforge/internal/domain/model"
)

// settlementConstraint is the partial unique index that admits at most one
// consumption transaction per job.
const settlementConstraint = "credit_transactions_settlement_job_idx"

// LedgerRepo owns per-user credit balances and their transaction audit trail.
//
// Every balance mutation runs inside a single database transaction that pairs
// the conditional balance update with exactly one transaction record, so the
// two can never drift apart. Sufficiency checks happen inside the same UPDATE
// statement that decrements, which closes the read-then-write overdraw race.
type LedgerRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// LedgerRepoConfig holds configuration options for the ledger repository.
type LedgerRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// NewLedgerRepo creates a new LedgerRepo with the given database connection.
func NewLedgerRepo(db *sql.DB, cfg LedgerRepoConfig) *LedgerRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &LedgerRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const transactionColumns = `
  id,
  user_id,
  amount,
  balance_after,
  type,
  job_id,
  created_at
`

// GetBalance returns the user's current balance. Unknown users have a zero
// balance rather than an error: accounts materialize on first credit.
func (r *LedgerRepo) GetBalance(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrUserIDRequired
	}

	var balance int
	err := r.DB.QueryRowContext(ctx,
		`SELECT balance FROM credit_accounts WHERE user_id = $1`, userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("get balance: %w", err))
	}
	return balance, nil
}

// AdjustBalance atomically applies delta (positive or negative) to the user's
// balance and appends the transaction record carrying the resulting balance.
// A delta that would take the balance negative fails on the account's check
// constraint and mutates nothing.
func (r *LedgerRepo) AdjustBalance(
	ctx context.Context,
	userID string,
	delta int,
	txType model.TransactionType,
) (*model.Transaction, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if delta == 0 {
		return nil, apperrors.Validation("delta must be non-zero")
	}
	if !txType.Valid() {
		return nil, apperrors.ValidationField("type", "invalid transaction type")
	}

	now := r.timeProvider.Now().UTC()

	var txn *model.Transaction
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var balance int
			if scanErr := tx.QueryRow(ctx, `
				INSERT INTO credit_accounts (user_id, balance, created_at, updated_at)
				VALUES ($1, $2, $3, $3)
				ON CONFLICT (user_id) DO UPDATE
				SET balance = credit_accounts.balance + $2,
				    updated_at = $3
				RETURNING balance
			`, userID, delta, now).Scan(&balance); scanErr != nil {
				return fmt.Errorf("adjust balance: %w", scanErr)
			}

			var insertErr error
			txn, insertErr = insertTransaction(ctx, tx, &model.Transaction{
				UserID:       userID,
				Amount:       delta,
				BalanceAfter: balance,
				Type:         txType,
				CreatedAt:    now,
			})
			return insertErr
		},
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "balance adjusted",
			"user_id", userID,
			"amount", delta,
			"balance", txn.BalanceAfter,
			"type", txType,
		)
	}
	return txn, nil
}

// Consume atomically checks that the user's balance covers the amount and, if
// so, decrements it and records a consumption transaction tied to the job.
//
// The check-and-decrement is one conditional UPDATE, so two concurrent
// consume calls for the same user can never both pass against a stale
// balance. The settlement unique index makes the whole operation idempotent
// per job: a duplicate settlement rolls back its decrement and reports
// ConsumeAlreadySettled.
func (r *LedgerRepo) Consume(
	ctx context.Context,
	p model.ConsumeParams,
) (model.ConsumeOutcome, error) {
	if p.UserID == "" {
		return model.ConsumeInsufficientFunds, ErrUserIDRequired
	}
	if p.JobID == "" {
		return model.ConsumeInsufficientFunds, ErrJobIDRequired
	}
	if p.Amount <= 0 {
		return model.ConsumeInsufficientFunds, apperrors.Validation("amount must be positive")
	}

	now := r.timeProvider.Now().UTC()
	outcome := model.ConsumeInsufficientFunds

	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var balance int
			scanErr := tx.QueryRow(ctx, `
				UPDATE credit_accounts
				SET balance = balance - $2,
				    updated_at = $3
				WHERE user_id = $1 AND balance >= $2
				RETURNING balance
			`, p.UserID, p.Amount, now).Scan(&balance)
			if errors.Is(scanErr, pgx.ErrNoRows) {
				// Unknown user or balance below amount: no mutation.
				outcome = model.ConsumeInsufficientFunds
				return nil
			}
			if scanErr != nil {
				return fmt.Errorf("consume decrement: %w", scanErr)
			}

			_, insertErr := insertTransaction(ctx, tx, &model.Transaction{
				UserID:       p.UserID,
				Amount:       -p.Amount,
				BalanceAfter: balance,
				Type:         model.TransactionConsumption,
				JobID:        &p.JobID,
				CreatedAt:    now,
			})
			if insertErr != nil {
				return insertErr
			}

			outcome = model.ConsumeApplied
			return nil
		},
	})
	if err != nil {
		if apperrors.IsUniqueViolation(err, settlementConstraint) {
			// Another caller settled this job; the rolled-back transaction
			// restored the decrement, so this attempt mutated nothing.
			if r.logger != nil {
				r.logger.WarnContext(ctx, "duplicate settlement attempt",
					"user_id", p.UserID, "job_id", p.JobID)
			}
			return model.ConsumeAlreadySettled, nil
		}
		return model.ConsumeInsufficientFunds, apperrors.MapDBError(err)
	}

	if outcome == model.ConsumeApplied && r.logger != nil {
		r.logger.InfoContext(ctx, "credits consumed",
			"user_id", p.UserID,
			"job_id", p.JobID,
			"amount", p.Amount,
		)
	}
	return outcome, nil
}

// ListTransactions returns the user's transactions, newest first.
func (r *LedgerRepo) ListTransactions(
	ctx context.Context,
	userID string,
	limit int,
) ([]*model.Transaction, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	var result []*model.Transaction
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, userID, limit)
		if err != nil {
			return fmt.Errorf("query transactions: %w", err)
		}
		defer rows.Close()

		vals, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Transaction])
		if err != nil {
			return fmt.Errorf("collect transactions: %w", err)
		}
		result = vals
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return result, nil
}

// insertTransaction appends a transaction record within an existing pgx
// transaction and returns it with its generated id.
func insertTransaction(ctx context.Context, tx pgx.Tx, txn *model.Transaction) (*model.Transaction, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO credit_transactions (user_id, amount, balance_after, type, job_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, txn.UserID, txn.Amount, txn.BalanceAfter, txn.Type, txn.JobID, txn.CreatedAt).Scan(&txn.ID)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return txn, nil
}
