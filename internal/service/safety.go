package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pushforge/pushforge/internal/core"
	"github.com/pushforge/pushforge/internal/domain/model"
)

// Safety report anomaly tags.
const (
	AnomalyChargedWithoutSuccess = "CREDIT_CHARGED_WITHOUT_SUCCESS"
	AnomalyUnsettledSuccess      = "SUCCESS_WITHOUT_SETTLEMENT"
	AnomalyOrphanSettlement      = "SETTLEMENT_WITHOUT_SUCCESS"
)

// SafetyAnomaly flags one job whose billing state is inconsistent.
type SafetyAnomaly struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}

// SafetyReport summarizes billing consistency across the whole system.
type SafetyReport struct {
	CreditsRemainingTotal int             `json:"credits_remaining_total"`
	Jobs                  model.JobStats  `json:"jobs"`
	Anomalies             []SafetyAnomaly `json:"anomalies"`
	Health                string          `json:"health"`
}

// SafetyServiceOptions groups dependencies for SafetyService.
type SafetyServiceOptions struct {
	Safety core.SafetyRepository // Required: reconciliation queries
	Jobs   core.JobRepository    // Required: job stats
	Logger *slog.Logger          // Optional: structured logger
}

// SafetyService builds the credit safety report: it cross-checks job records
// against ledger transactions and surfaces any drift between them.
type SafetyService struct {
	safety core.SafetyRepository
	jobs   core.JobRepository
	logger *slog.Logger
}

// NewSafetyService constructs a new SafetyService.
func NewSafetyService(opts SafetyServiceOptions) (*SafetyService, error) {
	if opts.Safety == nil {
		return nil, errors.New("SafetyRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "safety_service")
	}
	return &SafetyService{safety: opts.Safety, jobs: opts.Jobs, logger: logger}, nil
}

// Report runs all reconciliation checks and returns the aggregate view.
func (s *SafetyService) Report(ctx context.Context) (*SafetyReport, error) {
	total, err := s.safety.SumBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum balances: %w", err)
	}

	stats, err := s.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}

	var anomalies []SafetyAnomaly
	checks := []struct {
		tag string
		run func(context.Context) ([]string, error)
	}{
		{AnomalyChargedWithoutSuccess, s.safety.ChargedWithoutSuccess},
		{AnomalyUnsettledSuccess, s.safety.UnsettledSuccesses},
		{AnomalyOrphanSettlement, s.safety.OrphanSettlements},
	}
	for _, check := range checks {
		ids, checkErr := check.run(ctx)
		if checkErr != nil {
			return nil, fmt.Errorf("safety check %s: %w", check.tag, checkErr)
		}
		for _, id := range ids {
			anomalies = append(anomalies, SafetyAnomaly{JobID: id, Error: check.tag})
		}
	}

	health := "OK"
	if len(anomalies) > 0 {
		health = "WARNING"
		if s.logger != nil {
			s.logger.WarnContext(ctx, "credit safety anomalies detected",
				"count", len(anomalies))
		}
	}

	return &SafetyReport{
		CreditsRemainingTotal: total,
		Jobs:                  stats,
		Anomalies:             anomalies,
		Health:                health,
	}, nil
}
