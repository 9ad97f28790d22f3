package devseed

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushforge/pushforge/internal/domain/model"
	"github.com/pushforge/pushforge/internal/testutil"
)

func TestRun_Integration_SeedsDemoData(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svcs := NewServices(db)

		require.NoError(t, Run(ctx, svcs, logger))

		balance, err := svcs.credits.GetBalance(ctx, "demo-alice")
		require.NoError(t, err)
		assert.Equal(t, 50, balance)

		jobs, err := svcs.jobs.ListUserJobs(ctx, &model.JobListOptions{UserID: "demo-alice"})
		require.NoError(t, err)
		assert.Len(t, jobs, 2)
	})
}

func TestRun_Integration_RerunIsIdempotent(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svcs := NewServices(db)

		require.NoError(t, Run(ctx, svcs, logger))
		require.NoError(t, Run(ctx, svcs, logger))

		balance, err := svcs.credits.GetBalance(ctx, "demo-bob")
		require.NoError(t, err)
		assert.Equal(t, 20, balance)

		txns, err := svcs.credits.Transactions(ctx, "demo-bob", 10)
		require.NoError(t, err)
		assert.Len(t, txns, 1)

		jobs, err := svcs.jobs.ListUserJobs(ctx, &model.JobListOptions{UserID: "demo-bob"})
		require.NoError(t, err)
		assert.Len(t, jobs, 1)
	})
}

func TestRun_Integration_SpentBalanceIsNotRefunded(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svcs := NewServices(db)

		require.NoError(t, Run(ctx, svcs, logger))

		// Drain carol's account the way a refund-free spend would, then
		// re-seed. The ledger history keeps the grant from repeating.
		_, err := db.ExecContext(ctx,
			`UPDATE credit_accounts SET balance = 0 WHERE user_id = 'demo-carol'`)
		require.NoError(t, err)

		require.NoError(t, Run(ctx, svcs, logger))

		balance, err := svcs.credits.GetBalance(ctx, "demo-carol")
		require.NoError(t, err)
		assert.Equal(t, 0, balance)
	})
}
