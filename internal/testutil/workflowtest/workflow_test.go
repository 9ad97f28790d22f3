package workflowtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/pushforge/pushforge/internal/domain/model"
	apperrors "github.com/pushforge/pushforge/internal/errors"
	"github.com/pushforge/pushforge/internal/service"
	"github.com/pushforge/pushforge/internal/testutil"
)

func TestWorkflow_SuccessChargesExactlyOnce(t *testing.T) {
	WithHarness(t, func(h *Harness) {
		h.GrantCredits("user-success", 10)

		job := h.CreateJob(testutil.UploadJobRequest("user-success"))
		require.Equal(t, model.JobStatusPending, job.Status)
		require.False(t, job.CreditsCharged)

		h.RunToSuccess(job.ID, []byte(`{"pushed_commit":"abc123"}`))

		final := h.Job(job.ID)
		assert.Equal(t, model.JobStatusSuccess, final.Status)
		assert.True(t, final.CreditsCharged)
		assert.Equal(t, 5, h.Balance("user-success"))
		assert.Equal(t, 1, h.ConsumptionCount(job.ID))

		// Replayed completion is a no-op: no second charge, no state change.
		applied, err := h.Jobs.Complete(context.Background(), service.CompleteRequest{
			JobID:   job.ID,
			Success: true,
		})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, 5, h.Balance("user-success"))
		assert.Equal(t, 1, h.ConsumptionCount(job.ID))

		h.RequireLedgerClean()
	})
}

func TestWorkflow_FailureNeverCharges(t *testing.T) {
	WithHarness(t, func(h *Harness) {
		h.GrantCredits("user-failure", 10)

		job := h.CreateJob(testutil.AutopushJobRequest("user-failure"))
		h.RunToFailure(job.ID, "remote rejected push")

		final := h.Job(job.ID)
		assert.Equal(t, model.JobStatusFailed, final.Status)
		assert.False(t, final.CreditsCharged)
		require.NotNil(t, final.Error)
		assert.Equal(t, "remote rejected push", *final.Error)

		assert.Equal(t, 10, h.Balance("user-failure"))
		assert.Equal(t, 0, h.ConsumptionCount(job.ID))

		// A failed job cannot be flipped to success afterwards.
		applied, err := h.Jobs.Complete(context.Background(), service.CompleteRequest{
			JobID:   job.ID,
			Success: true,
		})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, 10, h.Balance("user-failure"))

		h.RequireLedgerClean()
	})
}

func TestWorkflow_ValidationFailsWhenBalanceDrained(t *testing.T) {
	WithHarness(t, func(h *Harness) {
		h.GrantCredits("user-drained", 5)

		// Both jobs pass the creation check against the same balance.
		first := h.CreateJob(testutil.UploadJobRequest("user-drained"))
		second := h.CreateJob(testutil.UploadJobRequest("user-drained"))

		// The first settlement drains the balance out from under the second.
		h.RunToSuccess(first.ID, nil)
		require.Equal(t, 0, h.Balance("user-drained"))

		validated, err := h.Jobs.Validate(context.Background(), second.ID)
		require.NoError(t, err)
		assert.False(t, validated)

		failed := h.Job(second.ID)
		assert.Equal(t, model.JobStatusFailed, failed.Status)
		assert.False(t, failed.CreditsCharged)
		require.NotNil(t, failed.Error)
		assert.Equal(t, "Insufficient credits at validation time", *failed.Error)

		h.RequireLedgerClean()
	})
}

func TestWorkflow_CreateRejectedWhenUnaffordable(t *testing.T) {
	WithHarness(t, func(h *Harness) {
		h.GrantCredits("user-poor", 3)

		_, err := h.Jobs.Create(context.Background(), testutil.NewJobRequest().
			WithUser("user-poor").
			WithRequiredCredits(5).
			Build())
		require.Error(t, err)
		assert.True(t, apperrors.IsInsufficientCredits(err))

		// Nothing was persisted for the rejected request.
		jobs, err := h.Jobs.ListUserJobs(context.Background(), &model.JobListOptions{UserID: "user-poor"})
		require.NoError(t, err)
		assert.Empty(t, jobs)
		assert.Equal(t, 3, h.Balance("user-poor"))
	})
}

func TestWorkflow_ConcurrentCompletionsSettleOnce(t *testing.T) {
	WithHarness(t, func(h *Harness) {
		h.GrantCredits("user-race", 5)

		job := h.CreateJob(testutil.UploadJobRequest("user-race"))
		h.StartJob(job.ID)

		// Hammer the same completion from many goroutines. Exactly one may
		// settle; the rest must observe a terminal job and do nothing.
		var g errgroup.Group
		const attempts = 8
		for range attempts {
			g.Go(func() error {
				_, err := h.Jobs.Complete(context.Background(), service.CompleteRequest{
					JobID:   job.ID,
					Success: true,
					Result:  []byte(`{"pushed_commit":"abc123"}`),
				})
				return err
			})
		}
		require.NoError(t, g.Wait())

		final := h.Job(job.ID)
		assert.Equal(t, model.JobStatusSuccess, final.Status)
		assert.True(t, final.CreditsCharged)
		assert.Equal(t, 0, h.Balance("user-race"))
		assert.Equal(t, 1, h.ConsumptionCount(job.ID))

		h.RequireLedgerClean()
	})
}

func TestWorkflow_MixedOutcomesAcrossUsers(t *testing.T) {
	WithHarness(t, func(h *Harness) {
		h.GrantCredits("user-a", 20)
		h.GrantCredits("user-b", 20)

		ok := h.CreateJob(testutil.UploadJobRequest("user-a"))
		bad := h.CreateJob(testutil.PartnerJobRequest("user-a"))
		other := h.CreateJob(testutil.AutopushJobRequest("user-b"))

		h.RunToSuccess(ok.ID, nil)
		h.RunToFailure(bad.ID, "partner manifest invalid")
		h.RunToSuccess(other.ID, nil)

		assert.Equal(t, 15, h.Balance("user-a"))
		assert.Equal(t, 15, h.Balance("user-b"))

		stats, err := h.Jobs.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Success)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 3, stats.Total())

		txns, err := h.Credits.Transactions(context.Background(), "user-a", 10)
		require.NoError(t, err)
		// One grant plus one consumption; the failed job left no trace.
		require.Len(t, txns, 2)
		assert.Equal(t, model.TransactionConsumption, txns[0].Type)
		assert.Equal(t, model.TransactionGrant, txns[1].Type)

		h.RequireLedgerClean()
	})
}
