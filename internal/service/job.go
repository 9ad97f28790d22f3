// Package service provides the business logic for the pushforge job system:
// the job lifecycle manager, the credit service, and the safety report.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pushforge/pushforge/internal/core"
	"github.com/pushforge/pushforge/internal/domain/model"
	apperrors "github.com/pushforge/pushforge/internal/errors"
)

// Log lines written on lifecycle transitions. The executor and the dashboard
// read these back verbatim, so they are part of the job's visible contract.
const (
	logJobCreated        = "Job created"
	logValidated         = "Status changed to: validated"
	logRunning           = "Status changed to: running"
	logCompletedSuccess  = "Job completed: success"
	logCompletedFailed   = "Job completed: failed"
	logConsumeFailed     = "Credit consumption failed"
	errInsufficientAtVal = "Insufficient credits at validation time"
	errConsumeFailed     = "Failed to consume credits"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo    core.JobRepository // Required: job store
	Ledger  core.CreditLedger  // Required: credit ledger
	Limiter core.RateLimiter   // Optional: per-user creation rate limit
	Logger  *slog.Logger       // Optional: structured logger
}

// JobService is the job lifecycle manager. It owns every job mutation and is
// the only caller of the ledger's Consume, which it invokes at most once per
// job, at the single moment a job is confirmed successful.
//
// Credits are checked at creation and again at validation, but never reserved;
// the irreversible charge is deferred until completion so that a failure
// anywhere in execution never costs the user credits.
type JobService struct {
	repo    core.JobRepository
	ledger  core.CreditLedger
	limiter core.RateLimiter
	logger  *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("CreditLedger is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		repo:    opts.Repo,
		ledger:  opts.Ledger,
		limiter: opts.Limiter,
		logger:  logger,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Create verifies the user can afford the job and persists it as pending.
// Credits are checked, not reserved. Fails with InsufficientCredits when the
// balance cannot cover the request; the job is never persisted in that case.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job request")
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "jobs:create:"+req.UserID)
		if err != nil {
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			return nil, apperrors.Conflict("Too many job requests. Please retry later.")
		}
	}

	balance, err := s.ledger.GetBalance(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("check balance: %w", err)
	}
	if balance < req.RequiredCredits {
		return nil, apperrors.InsufficientCredits(req.RequiredCredits, balance)
	}

	job, err := s.repo.Insert(ctx, req, logJobCreated)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job created",
			"id", job.ID,
			"user_id", job.UserID,
			"kind", job.Kind,
			"required_credits", job.RequiredCredits,
		)
	}
	return job, nil
}

// Validate re-checks credits and moves a pending job to validated. Returns
// false without error when the job is not pending, or when the balance no
// longer covers the job. In the latter case the job is failed with an
// explanatory error rather than raised, because the job exists and must keep
// its audit trail.
func (s *JobService) Validate(ctx context.Context, jobID string) (bool, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return false, err
	}

	if job.Status != model.JobStatusPending {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "job not in pending state",
				"id", jobID, "status", job.Status)
		}
		return false, nil
	}

	balance, err := s.ledger.GetBalance(ctx, job.UserID)
	if err != nil {
		return false, fmt.Errorf("check balance: %w", err)
	}

	if balance < job.RequiredCredits {
		errMsg := errInsufficientAtVal
		if _, failErr := s.repo.Transition(ctx, model.JobTransition{
			ID:         jobID,
			From:       []model.JobStatus{model.JobStatusPending},
			To:         model.JobStatusFailed,
			Error:      &errMsg,
			LogMessage: "Status changed to: failed",
		}); failErr != nil {
			return false, fmt.Errorf("fail job at validation: %w", failErr)
		}
		return false, nil
	}

	applied, err := s.repo.Transition(ctx, model.JobTransition{
		ID:         jobID,
		From:       []model.JobStatus{model.JobStatusPending},
		To:         model.JobStatusValidated,
		LogMessage: logValidated,
	})
	if err != nil {
		return false, fmt.Errorf("validate job: %w", err)
	}
	if applied && s.logger != nil {
		s.logger.InfoContext(ctx, "job validated", "id", jobID)
	}
	return applied, nil
}

// Start moves a job to running. Jobs may start straight from pending (fast
// path) or from validated. Returns false when the job is in any other state.
func (s *JobService) Start(ctx context.Context, jobID string) (bool, error) {
	// Get first so a missing job surfaces as NotFound rather than a silent false.
	if _, err := s.repo.Get(ctx, jobID); err != nil {
		return false, err
	}

	applied, err := s.repo.Transition(ctx, model.JobTransition{
		ID:         jobID,
		From:       []model.JobStatus{model.JobStatusPending, model.JobStatusValidated},
		To:         model.JobStatusRunning,
		LogMessage: logRunning,
	})
	if err != nil {
		return false, fmt.Errorf("start job: %w", err)
	}
	if applied && s.logger != nil {
		s.logger.InfoContext(ctx, "job started", "id", jobID)
	}
	return applied, nil
}

// CompleteRequest describes a completion attempt for a job.
type CompleteRequest struct {
	JobID   string
	Success bool
	// Result carries kind-specific fields merged into the job record on success.
	Result []byte
	// Error is recorded on the job for failed outcomes.
	Error string
}

// Complete drives a job to its terminal outcome and settles credits exactly
// once on verified success.
//
// The operation is idempotent: a job already in a terminal state returns
// false with zero mutation and zero ledger calls. On success, credits are
// settled first and the terminal status persisted second, so a crash between
// the two steps is recovered by retrying Complete: the ledger reports the
// job as already settled and the status write proceeds. If the ledger cannot
// cover the charge (a concurrent job drained the balance after validation),
// the outcome is overridden to failed and false is returned: a job is never
// marked success without its charge, and never charged without success.
func (s *JobService) Complete(ctx context.Context, req CompleteRequest) (bool, error) {
	job, err := s.repo.Get(ctx, req.JobID)
	if err != nil {
		return false, err
	}

	if job.Status.Terminal() {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "job already completed",
				"id", req.JobID, "status", job.Status)
		}
		return false, nil
	}

	if !req.Success {
		return s.completeFailed(ctx, req.JobID, req.Error)
	}
	return s.completeSuccess(ctx, job, req.Result)
}

func (s *JobService) completeFailed(ctx context.Context, jobID, errMsg string) (bool, error) {
	var errPtr *string
	if errMsg != "" {
		errPtr = &errMsg
	}
	applied, err := s.repo.CompleteTerminal(ctx, model.JobCompletion{
		ID:         jobID,
		Status:     model.JobStatusFailed,
		Error:      errPtr,
		LogMessage: logCompletedFailed,
	})
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	return applied, nil
}

func (s *JobService) completeSuccess(ctx context.Context, job *model.Job, result []byte) (bool, error) {
	outcome := model.ConsumeAlreadySettled
	if !job.CreditsCharged {
		var err error
		outcome, err = s.ledger.Consume(ctx, model.ConsumeParams{
			UserID: job.UserID,
			Amount: job.RequiredCredits,
			JobID:  job.ID,
		})
		if err != nil {
			return false, fmt.Errorf("consume credits: %w", err)
		}

		if !outcome.Charged() {
			// Validated earlier, but the balance was drained in the meantime.
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "failed to consume credits, marking job as failed",
					"id", job.ID, "user_id", job.UserID)
			}
			errMsg := errConsumeFailed
			if _, failErr := s.repo.CompleteTerminal(ctx, model.JobCompletion{
				ID:         job.ID,
				Status:     model.JobStatusFailed,
				Error:      &errMsg,
				LogMessage: logConsumeFailed,
			}); failErr != nil {
				return false, fmt.Errorf("fail job after consume failure: %w", failErr)
			}
			return false, nil
		}
	}

	applied, err := s.repo.CompleteTerminal(ctx, model.JobCompletion{
		ID:            job.ID,
		Status:        model.JobStatusSuccess,
		ChargeCredits: true,
		Result:        result,
		LogMessage:    logCompletedSuccess,
	})
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}

	if !applied {
		// A concurrent caller reached a terminal state first. If it also
		// settled, ours was rejected as a duplicate and nothing leaked. The
		// one hazard is a concurrent *failure* landing after our settlement:
		// refund so the user is never charged for a job that ended failed.
		if outcome == model.ConsumeApplied {
			if refundErr := s.refundLostSettlement(ctx, job); refundErr != nil {
				return false, refundErr
			}
		}
		return false, nil
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job completed",
			"id", job.ID,
			"status", model.JobStatusSuccess,
			"credits_charged", true,
		)
	}
	return true, nil
}

func (s *JobService) refundLostSettlement(ctx context.Context, job *model.Job) error {
	final, err := s.repo.Get(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("inspect job after lost completion race: %w", err)
	}
	if final.Status != model.JobStatusFailed {
		return nil
	}
	if _, err := s.ledger.AdjustBalance(ctx, job.UserID, job.RequiredCredits, model.TransactionRefund); err != nil {
		return fmt.Errorf("refund settlement for failed job %s: %w", job.ID, err)
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "refunded settlement after losing completion race",
			"id", job.ID, "user_id", job.UserID, "amount", job.RequiredCredits)
	}
	return nil
}

// AddLog appends a message to the job's audit trail. No state change; returns
// false when the job does not exist.
func (s *JobService) AddLog(ctx context.Context, jobID, message string) (bool, error) {
	return s.repo.AppendLog(ctx, jobID, message)
}

// Get returns the job with the given id, or a NotFound error.
func (s *JobService) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return s.repo.Get(ctx, jobID)
}

// ListUserJobs returns a user's jobs, newest first, optionally filtered by status.
func (s *JobService) ListUserJobs(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	return s.repo.List(ctx, opts)
}

// NextRunnable returns the oldest job waiting to run, for runner polling.
func (s *JobService) NextRunnable(ctx context.Context) (*model.Job, error) {
	return s.repo.NextRunnable(ctx)
}

// Stats returns job counts per lifecycle state.
func (s *JobService) Stats(ctx context.Context) (model.JobStats, error) {
	return s.repo.CountByStatus(ctx)
}
