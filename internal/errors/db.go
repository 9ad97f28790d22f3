package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts the field name from a unique violation detail:
// "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors to AppError instances:
// - pgx.ErrNoRows → NotFound
// - unique constraint violations → Conflict
// - check constraint violations → Validation (the ledger's balance guard)
// - NOT NULL violations → Validation
// - context timeouts/cancellations → Timeout/Canceled
//
// If the error is not a recognized database error, it returns the original error.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out. Please try again.",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{
			Code:    ErrCodeCanceled,
			Message: "Request was canceled.",
			Cause:   err,
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{
			Code:    ErrCodeNotFound,
			Message: "Resource not found",
			Cause:   err,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return err
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation, optionally restricted to a specific constraint name. The ledger
// uses this to detect an already-settled job without losing the original error.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return mapUniqueViolation(pgErr)
	case pgerrcode.CheckViolation:
		return mapCheckViolation(pgErr)
	case pgerrcode.NotNullViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "Required field is missing.",
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	case pgerrcode.ForeignKeyViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "Referenced record does not exist.",
			Cause:   pgErr,
		}
	default:
		return &AppError{
			Code:    ErrCodeInternal,
			Message: "A database error occurred. Please try again.",
			Cause:   pgErr,
		}
	}
}

func mapUniqueViolation(pgErr *pgconn.PgError) error {
	field := pgErr.ColumnName
	if field == "" && pgErr.Detail != "" {
		if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			field = m[1]
		}
	}
	if field == "" {
		field = inferFieldFromConstraint(pgErr.ConstraintName)
	}

	return &AppError{
		Code:    ErrCodeConflict,
		Message: "This value already exists.",
		Field:   field,
		Cause:   pgErr,
	}
}

// mapCheckViolation maps CHECK constraint violations to Validation errors.
// The ledger's balance guard surfaces here if a raw decrement ever bypasses
// the conditional update.
func mapCheckViolation(pgErr *pgconn.PgError) error {
	if strings.Contains(pgErr.ConstraintName, "balance") {
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "Balance cannot go negative.",
			Field:   "balance",
			Cause:   pgErr,
		}
	}
	return &AppError{
		Code:    ErrCodeValidation,
		Message: "Invalid data. Please check your input.",
		Field:   pgErr.ColumnName,
		Cause:   pgErr,
	}
}

// inferFieldFromConstraint attempts to infer the field name from a constraint
// name such as "credit_transactions_job_id_key" → "job_id". Returns an empty
// string when inference would be ambiguous.
func inferFieldFromConstraint(constraintName string) string {
	name := strings.TrimSuffix(constraintName, "_key")
	name = strings.TrimSuffix(name, "_unique")
	name = strings.TrimSuffix(name, "_idx")
	for _, table := range []string{"credit_transactions_", "credit_accounts_", "jobs_"} {
		if strings.HasPrefix(name, table) {
			return strings.TrimPrefix(name, table)
		}
	}
	return ""
}
