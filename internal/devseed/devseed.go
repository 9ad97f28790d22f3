// Package devseed populates a development database with demo credit accounts
// and sample jobs. Seeding is idempotent: a user who already has ledger
// activity or jobs is left untouched, so the command can run after every
// reset without stacking duplicate grants.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pushforge/pushforge/internal/data"
	"github.com/pushforge/pushforge/internal/domain/model"
	"github.com/pushforge/pushforge/internal/service"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB      *sql.DB
	credits *service.CreditService
	jobs    *service.JobService
}

// NewServices constructs all required services for seeding using the provided DB.
func NewServices(db *sql.DB) Services {
	jobRepo := data.NewJobRepo(db, data.JobRepoConfig{})
	ledgerRepo := data.NewLedgerRepo(db, data.LedgerRepoConfig{})

	creditService := service.MustNewCreditService(service.CreditServiceOptions{
		Ledger: ledgerRepo,
	})
	jobService := service.MustNewJobService(service.JobServiceOptions{
		Repo:   jobRepo,
		Ledger: ledgerRepo,
	})

	return Services{
		DB:      db,
		credits: creditService,
		jobs:    jobService,
	}
}

// Run executes the full development seeding workflow against the provided DB.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	failures := 0
	failures += seedCreditAccounts(ctx, svcs.credits, logger)
	failures += seedJobs(ctx, svcs.jobs, logger)
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

// demoGrant is one starting balance for a demo account.
type demoGrant struct {
	UserID string
	Amount int
	Type   model.TransactionType
}

func demoGrants() []demoGrant {
	return []demoGrant{
		{UserID: "demo-alice", Amount: 50, Type: model.TransactionGrant},
		{UserID: "demo-bob", Amount: 20, Type: model.TransactionGrant},
		{UserID: "demo-carol", Amount: 5, Type: model.TransactionPurchase},
	}
}

func seedCreditAccounts(ctx context.Context, svc *service.CreditService, logger *slog.Logger) int {
	failures := 0
	for _, grant := range demoGrants() {
		granted, err := grantIfUnfunded(ctx, svc, grant)
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to seed credit account",
					"user_id", grant.UserID, "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			msg := "credit account already funded"
			if granted {
				msg = "credit account seeded"
			}
			logger.InfoContext(ctx, msg, "user_id", grant.UserID, "amount", grant.Amount)
		}
	}
	return failures
}

// grantIfUnfunded grants the starting balance unless the user already has any
// ledger history. Balance alone is not enough: a demo user who spent down to
// zero should stay at zero, not get re-funded on the next seed run.
func grantIfUnfunded(ctx context.Context, svc *service.CreditService, grant demoGrant) (bool, error) {
	txns, err := svc.Transactions(ctx, grant.UserID, 1)
	if err != nil {
		return false, fmt.Errorf("check ledger history: %w", err)
	}
	if len(txns) > 0 {
		return false, nil
	}

	if _, err := svc.Grant(ctx, grant.UserID, grant.Amount, grant.Type); err != nil {
		return false, fmt.Errorf("grant starting balance: %w", err)
	}
	return true, nil
}

func demoJobs() []*model.CreateJobRequest {
	return []*model.CreateJobRequest{
		{
			UserID:          "demo-alice",
			Payload:         model.UploadPayload{UploadID: "upload-demo-1", RepoName: "demo/site"},
			RequiredCredits: 5,
		},
		{
			UserID:          "demo-alice",
			Payload:         model.AutopushPayload{RepoURL: "https://git.example.com/demo/site.git", Branch: "main"},
			RequiredCredits: 3,
		},
		{
			UserID:          "demo-bob",
			Payload:         model.PartnerPayload{PartnerID: "partner-demo", Manifest: "deploy.yaml"},
			RequiredCredits: 10,
		},
	}
}

func seedJobs(ctx context.Context, svc *service.JobService, logger *slog.Logger) int {
	failures := 0
	for _, req := range demoJobs() {
		created, err := createJobIfNone(ctx, svc, req)
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to seed job",
					"user_id", req.UserID, "kind", req.Payload.Kind(), "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			msg := "job already seeded"
			if created {
				msg = "job seeded"
			}
			logger.InfoContext(ctx, msg, "user_id", req.UserID, "kind", req.Payload.Kind())
		}
	}
	return failures
}

// createJobIfNone creates the sample job unless the user already has a job of
// that kind. The runner picks seeded jobs up as soon as it starts, so reruns
// would otherwise re-queue work the demo user already paid for.
func createJobIfNone(ctx context.Context, svc *service.JobService, req *model.CreateJobRequest) (bool, error) {
	existing, err := svc.ListUserJobs(ctx, &model.JobListOptions{UserID: req.UserID})
	if err != nil {
		return false, fmt.Errorf("list existing jobs: %w", err)
	}
	for _, job := range existing {
		if job.Kind == req.Payload.Kind() {
			return false, nil
		}
	}

	if _, err := svc.Create(ctx, req); err != nil {
		return false, fmt.Errorf("create sample job: %w", err)
	}
	return true, nil
}
