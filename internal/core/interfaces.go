// Package core defines the contracts between the service layer and its
// collaborators (ports in hexagonal architecture). Service implementations
// depend on these interfaces, not concrete implementations.
package core

import (
	"context"

	"github.com/pushforge/pushforge/internal/domain/model"
)

// JobRepository defines the interface for job store operations. Mutations are
// best-effort-then-verify: conditional updates report whether they changed
// anything, and the caller decides what a lost race means.
type JobRepository interface {
	Insert(ctx context.Context, req *model.CreateJobRequest, initialLog string) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error)
	AppendLog(ctx context.Context, id, message string) (bool, error)
	Transition(ctx context.Context, p model.JobTransition) (bool, error)
	CompleteTerminal(ctx context.Context, p model.JobCompletion) (bool, error)
	NextRunnable(ctx context.Context) (*model.Job, error)
	CountByStatus(ctx context.Context) (model.JobStats, error)
}

// CreditLedger defines the interface for the credit ledger: the single source
// of truth for whether a user can afford a charge. Consume is atomic with
// respect to concurrent callers for the same user and idempotent per job.
type CreditLedger interface {
	GetBalance(ctx context.Context, userID string) (int, error)
	AdjustBalance(ctx context.Context, userID string, delta int, txType model.TransactionType) (*model.Transaction, error)
	Consume(ctx context.Context, p model.ConsumeParams) (model.ConsumeOutcome, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]*model.Transaction, error)
}

// RateLimiter gates job creation per user.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SafetyRepository defines the reconciliation queries consumed by the credit
// safety report.
type SafetyRepository interface {
	SumBalances(ctx context.Context) (int, error)
	UnsettledSuccesses(ctx context.Context) ([]string, error)
	OrphanSettlements(ctx context.Context) ([]string, error)
	ChargedWithoutSuccess(ctx context.Context) ([]string, error)
}

// Executor drives a running job to an outcome. The actual work (pushing to a
// git host) lives outside this module; the lifecycle manager only consumes
// this contract.
type Executor interface {
	Execute(ctx context.Context, job *model.Job) (model.ExecutionResult, error)
}
