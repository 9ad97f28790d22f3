package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pushforge/pushforge/internal/domain/model"
	"github.com/pushforge/pushforge/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newSafetyService creates mock repositories and a service for testing.
func newSafetyService(t *testing.T) (*mocks.MockSafetyRepository, *mocks.MockJobRepository, *SafetyService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	safetyRepo := mocks.NewMockSafetyRepository(ctrl)
	jobRepo := mocks.NewMockJobRepository(ctrl)

	service, err := NewSafetyService(SafetyServiceOptions{
		Safety: safetyRepo,
		Jobs:   jobRepo,
	})
	require.NoError(t, err)

	return safetyRepo, jobRepo, service
}

func TestSafetyService_Report_Healthy(t *testing.T) {
	t.Parallel()
	safetyRepo, jobRepo, service := newSafetyService(t)

	ctx := context.Background()
	stats := model.JobStats{Pending: 1, Running: 2, Success: 10, Failed: 3}

	safetyRepo.EXPECT().SumBalances(ctx).Return(250, nil).Times(1)
	jobRepo.EXPECT().CountByStatus(ctx).Return(stats, nil).Times(1)
	safetyRepo.EXPECT().ChargedWithoutSuccess(ctx).Return(nil, nil).Times(1)
	safetyRepo.EXPECT().UnsettledSuccesses(ctx).Return(nil, nil).Times(1)
	safetyRepo.EXPECT().OrphanSettlements(ctx).Return(nil, nil).Times(1)

	report, err := service.Report(ctx)

	require.NoError(t, err)
	assert.Equal(t, 250, report.CreditsRemainingTotal)
	assert.Equal(t, stats, report.Jobs)
	assert.Empty(t, report.Anomalies)
	assert.Equal(t, "OK", report.Health)
}

func TestSafetyService_Report_Anomalies(t *testing.T) {
	t.Parallel()
	safetyRepo, jobRepo, service := newSafetyService(t)

	ctx := context.Background()

	safetyRepo.EXPECT().SumBalances(ctx).Return(90, nil).Times(1)
	jobRepo.EXPECT().CountByStatus(ctx).Return(model.JobStats{Success: 4, Failed: 1}, nil).Times(1)
	safetyRepo.EXPECT().ChargedWithoutSuccess(ctx).Return([]string{"job-a"}, nil).Times(1)
	safetyRepo.EXPECT().UnsettledSuccesses(ctx).Return([]string{"job-b", "job-c"}, nil).Times(1)
	safetyRepo.EXPECT().OrphanSettlements(ctx).Return(nil, nil).Times(1)

	report, err := service.Report(ctx)

	require.NoError(t, err)
	assert.Equal(t, "WARNING", report.Health)
	assert.Equal(t, []SafetyAnomaly{
		{JobID: "job-a", Error: AnomalyChargedWithoutSuccess},
		{JobID: "job-b", Error: AnomalyUnsettledSuccess},
		{JobID: "job-c", Error: AnomalyUnsettledSuccess},
	}, report.Anomalies)
}

func TestSafetyService_Report_CheckError(t *testing.T) {
	t.Parallel()
	safetyRepo, jobRepo, service := newSafetyService(t)

	ctx := context.Background()

	safetyRepo.EXPECT().SumBalances(ctx).Return(0, nil).Times(1)
	jobRepo.EXPECT().CountByStatus(ctx).Return(model.JobStats{}, nil).Times(1)
	safetyRepo.EXPECT().ChargedWithoutSuccess(ctx).Return(nil, errors.New("database error")).Times(1)

	report, err := service.Report(ctx)

	require.Error(t, err)
	assert.Nil(t, report)
}
