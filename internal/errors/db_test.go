package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_ContextErrors(t *testing.T) {
	err := MapDBError(context.DeadlineExceeded)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrCodeTimeout, appErr.Code)

	err = MapDBError(context.Canceled)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrCodeCanceled, appErr.Code)
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrCodeNotFound, appErr.Code)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		Detail:         "Key (job_id)=(abc) already exists.",
		ConstraintName: "credit_transactions_job_id_key",
	}

	err := MapDBError(pgErr)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrCodeConflict, appErr.Code)
	assert.Equal(t, "job_id", appErr.Field)
}

func TestMapDBError_UniqueViolation_ConstraintFallback(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "credit_transactions_job_id_key",
	}

	err := MapDBError(pgErr)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "job_id", appErr.Field)
}

func TestMapDBError_CheckViolation_Balance(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.CheckViolation,
		ConstraintName: "credit_accounts_balance_check",
	}

	err := MapDBError(pgErr)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrCodeValidation, appErr.Code)
	assert.Equal(t, "balance", appErr.Field)
}

func TestMapDBError_NotNullViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:       pgerrcode.NotNullViolation,
		ColumnName: "user_id",
	}

	err := MapDBError(pgErr)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrCodeValidation, appErr.Code)
	assert.Equal(t, "user_id", appErr.Field)
}

func TestMapDBError_UnknownPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.SerializationFailure}

	err := MapDBError(pgErr)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrCodeInternal, appErr.Code)
}

func TestMapDBError_Passthrough(t *testing.T) {
	plain := errors.New("not a db error")
	assert.Equal(t, plain, MapDBError(plain))
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "credit_transactions_settlement_job_idx",
	}

	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.True(t, IsUniqueViolation(pgErr, "credit_transactions_settlement_job_idx"))
	assert.False(t, IsUniqueViolation(pgErr, "some_other_constraint"))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.CheckViolation}, ""))
}
