// Package jobrunner drives queued jobs through their lifecycle: it polls for
// work, re-validates credits, claims the job, executes it, and reports the
// outcome back to the lifecycle manager.
package jobrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pushforge/pushforge/internal/core"
	"github.com/pushforge/pushforge/internal/data"
	"github.com/pushforge/pushforge/internal/domain/model"
	"github.com/pushforge/pushforge/internal/service"
	"golang.org/x/sync/errgroup"
)

// RunnerOptions configures the job runner adapter.
type RunnerOptions struct {
	DB       *sql.DB
	Logger   *slog.Logger
	Executor core.Executor // required; performs the actual push work

	// Job processing settings
	PollInterval time.Duration // idle wait between polls; defaults to 1s
	Concurrency  int           // number of worker goroutines; defaults to 1

	// Optional dependency injections (useful for tests/decoupling)
	JobsRepo core.JobRepository
	Ledger   core.CreditLedger
}

// Runner pulls runnable jobs and executes them. Multiple runners may poll the
// same store: claiming happens through the conditional move into running, so
// a job is only ever executed by the worker that won that transition.
type Runner struct {
	jobs     *service.JobService
	executor core.Executor
	logger   *slog.Logger
	interval time.Duration
	workers  int
}

// NewRunner wires repositories and constructs a job runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if opts.DB == nil && (opts.JobsRepo == nil || opts.Ledger == nil) {
		return nil, errors.New("either DB or both JobsRepo and Ledger must be provided")
	}

	logger := resolveLogger(opts.Logger)

	jobsRepo := opts.JobsRepo
	if jobsRepo == nil {
		jobsRepo = data.NewJobRepo(opts.DB, data.JobRepoConfig{Logger: logger})
	}
	ledger := opts.Ledger
	if ledger == nil {
		ledger = data.NewLedgerRepo(opts.DB, data.LedgerRepoConfig{Logger: logger})
	}

	jobSvc := service.MustNewJobService(service.JobServiceOptions{
		Repo:   jobsRepo,
		Ledger: ledger,
		Logger: logger,
	})

	return &Runner{
		jobs:     jobSvc,
		executor: opts.Executor,
		logger:   logger,
		interval: resolveInterval(opts.PollInterval),
		workers:  resolveWorkers(opts.Concurrency),
	}, nil
}

// Run starts worker goroutines and processes jobs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting job runner",
		"workers", r.workers, "poll_interval", r.interval)

	group, gctx := errgroup.WithContext(ctx)
	for range r.workers {
		group.Go(func() error { return r.workerLoop(gctx) })
	}
	return group.Wait()
}

func (r *Runner) workerLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		job, err := r.jobs.NextRunnable(ctx)
		switch {
		case err == nil:
			r.processJob(ctx, job)
		case errors.Is(err, model.ErrNoRunnableJobs):
			if !r.waitForPoll(ctx) {
				return nil
			}
		default:
			r.logger.ErrorContext(ctx, "failed to poll next job", "error", err)
			return fmt.Errorf("next runnable: %w", err)
		}
	}
	return ctx.Err()
}

// waitForPoll sleeps one poll interval. Returns false on cancellation.
func (r *Runner) waitForPoll(ctx context.Context) bool {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// processJob drives one job through validate, start, execute, and complete.
// Losing any conditional transition means another worker owns the job; the
// loser simply moves on.
func (r *Runner) processJob(ctx context.Context, job *model.Job) {
	if job.Status == model.JobStatusPending {
		validated, err := r.jobs.Validate(ctx, job.ID)
		if err != nil {
			r.logger.ErrorContext(ctx, "validate job error", "job_id", job.ID, "error", err)
			return
		}
		if !validated {
			return
		}
	}

	claimed, err := r.jobs.Start(ctx, job.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "start job error", "job_id", job.ID, "error", err)
		return
	}
	if !claimed {
		return
	}

	start := time.Now()
	req := service.CompleteRequest{JobID: job.ID}
	result, execErr := r.executor.Execute(ctx, job)
	if execErr != nil {
		req.Error = execErr.Error()
	} else {
		req.Success = result.Success
		req.Result = result.Result
		req.Error = result.Error
	}

	applied, err := r.jobs.Complete(ctx, req)
	if err != nil {
		r.logger.ErrorContext(ctx, "complete job error", "job_id", job.ID, "error", err)
		return
	}
	r.logger.InfoContext(ctx, "job processed",
		"job_id", job.ID,
		"success", req.Success && applied,
		"duration", time.Since(start),
	)
}

func resolveLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

func resolveInterval(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return time.Second
}

func resolveWorkers(workers int) int {
	if workers > 0 {
		return workers
	}
	return 1
}
