// Package workflowtest provides end-to-end lifecycle testing utilities for the
// pushforge job system. The harness wires real repositories and services
// against a test database so the atomic settlement behavior is exercised for
// real, not mocked.
package workflowtest

import (
	"context"
	"database/sql"
	"time"

	"github.com/pushforge/pushforge/internal/data"
	"github.com/pushforge/pushforge/internal/domain/model"
	"github.com/pushforge/pushforge/internal/service"
	"github.com/pushforge/pushforge/internal/testutil"
)

// Harness bundles the full service stack on top of a test database.
type Harness struct {
	t  testutil.TestingTB
	db *sql.DB

	JobRepo    *data.JobRepo
	Ledger     *data.LedgerRepo
	SafetyRepo *data.SafetyRepo

	Jobs    *service.JobService
	Credits *service.CreditService
	Safety  *service.SafetyService
}

// NewHarness creates a harness with all components wired up against db.
func NewHarness(t testutil.TestingTB, db *sql.DB) *Harness {
	t.Helper()

	h := &Harness{
		t:          t,
		db:         db,
		JobRepo:    data.NewJobRepo(db, data.JobRepoConfig{}),
		Ledger:     data.NewLedgerRepo(db, data.LedgerRepoConfig{}),
		SafetyRepo: data.NewSafetyRepo(db),
	}

	h.Jobs = service.MustNewJobService(service.JobServiceOptions{
		Repo:   h.JobRepo,
		Ledger: h.Ledger,
	})
	h.Credits = service.MustNewCreditService(service.CreditServiceOptions{
		Ledger: h.Ledger,
	})

	safety, err := service.NewSafetyService(service.SafetyServiceOptions{
		Safety: h.SafetyRepo,
		Jobs:   h.JobRepo,
	})
	if err != nil {
		t.Fatalf("create safety service: %v", err)
	}
	h.Safety = safety

	return h
}

// WithHarness sets up a test database, builds a harness on it, and runs fn.
func WithHarness(t testutil.TestingTB, fn func(*Harness)) {
	t.Helper()

	testutil.SkipIfNoTestDB(t)
	testutil.WithAutoDB(t, func(db *sql.DB) {
		fn(NewHarness(t, db))
	})
}

// GrantCredits adds amount credits to the user's balance.
func (h *Harness) GrantCredits(userID string, amount int) {
	h.t.Helper()

	if _, err := h.Credits.Grant(context.Background(), userID, amount, model.TransactionGrant); err != nil {
		h.t.Fatalf("grant credits: %v", err)
	}
}

// Balance returns the user's current credit balance.
func (h *Harness) Balance(userID string) int {
	h.t.Helper()

	balance, err := h.Credits.GetBalance(context.Background(), userID)
	if err != nil {
		h.t.Fatalf("get balance: %v", err)
	}
	return balance
}

// CreateJob creates a pending job for the given request.
func (h *Harness) CreateJob(req *model.CreateJobRequest) *model.Job {
	h.t.Helper()

	job, err := h.Jobs.Create(context.Background(), req)
	if err != nil {
		h.t.Fatalf("create job: %v", err)
	}
	return job
}

// Job fetches the current job record.
func (h *Harness) Job(jobID string) *model.Job {
	h.t.Helper()

	job, err := h.Jobs.Get(context.Background(), jobID)
	if err != nil {
		h.t.Fatalf("get job %s: %v", jobID, err)
	}
	return job
}

// StartJob drives a pending job through validation into running.
func (h *Harness) StartJob(jobID string) {
	h.t.Helper()

	ctx := context.Background()
	validated, err := h.Jobs.Validate(ctx, jobID)
	if err != nil {
		h.t.Fatalf("validate job %s: %v", jobID, err)
	}
	if !validated {
		h.t.Fatalf("job %s was not validated", jobID)
	}

	started, err := h.Jobs.Start(ctx, jobID)
	if err != nil {
		h.t.Fatalf("start job %s: %v", jobID, err)
	}
	if !started {
		h.t.Fatalf("job %s was not started", jobID)
	}
}

// RunToSuccess drives a pending job through its entire lifecycle to success.
func (h *Harness) RunToSuccess(jobID string, result []byte) {
	h.t.Helper()

	h.StartJob(jobID)
	applied, err := h.Jobs.Complete(context.Background(), service.CompleteRequest{
		JobID:   jobID,
		Success: true,
		Result:  result,
	})
	if err != nil {
		h.t.Fatalf("complete job %s: %v", jobID, err)
	}
	if !applied {
		h.t.Fatalf("job %s completion was not applied", jobID)
	}
}

// RunToFailure drives a pending job through its lifecycle to a failed outcome.
func (h *Harness) RunToFailure(jobID, errMsg string) {
	h.t.Helper()

	h.StartJob(jobID)
	applied, err := h.Jobs.Complete(context.Background(), service.CompleteRequest{
		JobID:   jobID,
		Success: false,
		Error:   errMsg,
	})
	if err != nil {
		h.t.Fatalf("fail job %s: %v", jobID, err)
	}
	if !applied {
		h.t.Fatalf("job %s failure was not applied", jobID)
	}
}

// ConsumptionCount returns how many consumption transactions reference jobID.
func (h *Harness) ConsumptionCount(jobID string) int {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM credit_transactions
		WHERE job_id = $1 AND type = 'consumption'
	`, jobID).Scan(&count)
	if err != nil {
		h.t.Fatalf("count consumptions for job %s: %v", jobID, err)
	}
	return count
}

// RequireLedgerClean runs the safety report and fails the test on any anomaly.
func (h *Harness) RequireLedgerClean() {
	h.t.Helper()

	report, err := h.Safety.Report(context.Background())
	if err != nil {
		h.t.Fatalf("safety report: %v", err)
	}
	if len(report.Anomalies) > 0 {
		testutil.LogJobStates(h.t, h.db, "ledger anomalies detected")
		h.t.Fatalf("safety report found %d anomalies: %+v", len(report.Anomalies), report.Anomalies)
	}
}
