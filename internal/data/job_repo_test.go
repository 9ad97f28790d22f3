package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushforge/pushforge/internal/domain/model"
	apperrors "github.com/pushforge/pushforge/internal/errors"
	"github.com/pushforge/pushforge/internal/testutil"
)

func TestJobRepo_Validation(t *testing.T) {
	t.Parallel()

	repo := NewJobRepo(nil, JobRepoConfig{})
	ctx := context.Background()

	_, err := repo.Insert(ctx, nil, "Job created")
	assert.Error(t, err)

	_, err = repo.Insert(ctx, &model.CreateJobRequest{UserID: "user-1"}, "Job created")
	assert.True(t, apperrors.IsValidation(err))

	_, err = repo.Get(ctx, "")
	assert.ErrorIs(t, err, ErrJobIDRequired)

	_, err = repo.List(ctx, nil)
	assert.ErrorIs(t, err, ErrUserIDRequired)

	_, err = repo.AppendLog(ctx, "", "message")
	assert.ErrorIs(t, err, ErrJobIDRequired)

	_, err = repo.Transition(ctx, model.JobTransition{ID: "job-1", To: model.JobStatusRunning})
	assert.True(t, apperrors.IsValidation(err))

	_, err = repo.CompleteTerminal(ctx, model.JobCompletion{ID: "job-1", Status: model.JobStatusRunning})
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobRepo_Integration_InsertAndGet(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoConfig{})
		ctx := context.Background()

		req := testutil.NewJobRequest().
			WithUser("user-insert").
			WithPayload(model.UploadPayload{UploadID: "upload-1", RepoName: "example/site"}).
			WithRequiredCredits(7).
			Build()

		job, err := repo.Insert(ctx, req, "Job created")
		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, "user-insert", job.UserID)
		assert.Equal(t, model.JobKindUpload, job.Kind)
		assert.Equal(t, model.JobStatusPending, job.Status)
		assert.Equal(t, 7, job.RequiredCredits)
		assert.False(t, job.CreditsCharged)
		assert.Equal(t, []string{"Job created"}, job.Logs)
		assert.Nil(t, job.Error)

		var payload model.UploadPayload
		require.NoError(t, json.Unmarshal(job.Payload, &payload))
		assert.Equal(t, "upload-1", payload.UploadID)
		assert.Equal(t, "example/site", payload.RepoName)

		fetched, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, fetched.ID)
		assert.Equal(t, job.Status, fetched.Status)

		_, err = repo.Get(ctx, uuid.NewString())
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestJobRepo_Integration_ListFilters(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		// A fixed clock advanced between inserts keeps the newest-first
		// ordering deterministic.
		clock := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, JobRepoConfig{TimeProvider: clock})
		ctx := context.Background()

		first, err := repo.Insert(ctx, testutil.UploadJobRequest("user-list"), "Job created")
		require.NoError(t, err)
		clock.AddTime(time.Second)

		second, err := repo.Insert(ctx, testutil.AutopushJobRequest("user-list"), "Job created")
		require.NoError(t, err)
		clock.AddTime(time.Second)

		_, err = repo.Insert(ctx, testutil.PartnerJobRequest("user-other"), "Job created")
		require.NoError(t, err)

		applied, err := repo.Transition(ctx, model.JobTransition{
			ID:         first.ID,
			From:       []model.JobStatus{model.JobStatusPending},
			To:         model.JobStatusValidated,
			LogMessage: "Status changed to: validated",
		})
		require.NoError(t, err)
		require.True(t, applied)

		jobs, err := repo.List(ctx, &model.JobListOptions{UserID: "user-list"})
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, second.ID, jobs[0].ID)
		assert.Equal(t, first.ID, jobs[1].ID)

		pending := model.JobStatusPending
		jobs, err = repo.List(ctx, &model.JobListOptions{UserID: "user-list", Status: &pending})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, second.ID, jobs[0].ID)

		jobs, err = repo.List(ctx, &model.JobListOptions{UserID: "user-list", Limit: 1})
		require.NoError(t, err)
		assert.Len(t, jobs, 1)
	})
}

func TestJobRepo_Integration_TransitionGuards(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoConfig{})
		ctx := context.Background()

		job, err := repo.Insert(ctx, testutil.UploadJobRequest("user-transition"), "Job created")
		require.NoError(t, err)

		applied, err := repo.Transition(ctx, model.JobTransition{
			ID:         job.ID,
			From:       []model.JobStatus{model.JobStatusPending},
			To:         model.JobStatusValidated,
			LogMessage: "Status changed to: validated",
		})
		require.NoError(t, err)
		assert.True(t, applied)

		// The same transition cannot apply twice: the status already moved on.
		applied, err = repo.Transition(ctx, model.JobTransition{
			ID:         job.ID,
			From:       []model.JobStatus{model.JobStatusPending},
			To:         model.JobStatusValidated,
			LogMessage: "Status changed to: validated",
		})
		require.NoError(t, err)
		assert.False(t, applied)

		applied, err = repo.Transition(ctx, model.JobTransition{
			ID:         job.ID,
			From:       []model.JobStatus{model.JobStatusPending, model.JobStatusValidated},
			To:         model.JobStatusRunning,
			LogMessage: "Status changed to: running",
		})
		require.NoError(t, err)
		assert.True(t, applied)

		current, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusRunning, current.Status)
		assert.Equal(t, []string{
			"Job created",
			"Status changed to: validated",
			"Status changed to: running",
		}, current.Logs)
	})
}

func TestJobRepo_Integration_CompleteTerminalIdempotent(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoConfig{})
		ctx := context.Background()

		job, err := repo.Insert(ctx, testutil.UploadJobRequest("user-complete"), "Job created")
		require.NoError(t, err)

		applied, err := repo.CompleteTerminal(ctx, model.JobCompletion{
			ID:            job.ID,
			Status:        model.JobStatusSuccess,
			ChargeCredits: true,
			Result:        json.RawMessage(`{"pushed_commit":"abc123"}`),
			LogMessage:    "Job completed: success",
		})
		require.NoError(t, err)
		assert.True(t, applied)

		done, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusSuccess, done.Status)
		assert.True(t, done.CreditsCharged)
		assert.JSONEq(t, `{"pushed_commit":"abc123"}`, string(done.Result))

		// Terminal states are final; a conflicting replay changes nothing.
		errMsg := "late failure"
		applied, err = repo.CompleteTerminal(ctx, model.JobCompletion{
			ID:         job.ID,
			Status:     model.JobStatusFailed,
			Error:      &errMsg,
			LogMessage: "Job completed: failed",
		})
		require.NoError(t, err)
		assert.False(t, applied)

		unchanged, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusSuccess, unchanged.Status)
		assert.True(t, unchanged.CreditsCharged)
		assert.Nil(t, unchanged.Error)
	})
}

func TestJobRepo_Integration_ChargeRequiresSuccess(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoConfig{})
		ctx := context.Background()

		job, err := repo.Insert(ctx, testutil.UploadJobRequest("user-charge"), "Job created")
		require.NoError(t, err)

		// The schema refuses a charged flag on any non-success outcome.
		_, err = repo.CompleteTerminal(ctx, model.JobCompletion{
			ID:            job.ID,
			Status:        model.JobStatusFailed,
			ChargeCredits: true,
			LogMessage:    "Job completed: failed",
		})
		require.Error(t, err)

		current, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, current.Status)
		assert.False(t, current.CreditsCharged)
	})
}

func TestJobRepo_Integration_AppendLog(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoConfig{})
		ctx := context.Background()

		job, err := repo.Insert(ctx, testutil.UploadJobRequest("user-log"), "Job created")
		require.NoError(t, err)

		appended, err := repo.AppendLog(ctx, job.ID, "Cloning repository")
		require.NoError(t, err)
		assert.True(t, appended)

		current, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Job created", "Cloning repository"}, current.Logs)
		assert.Equal(t, model.JobStatusPending, current.Status)

		appended, err = repo.AppendLog(ctx, uuid.NewString(), "orphan message")
		require.NoError(t, err)
		assert.False(t, appended)
	})
}

func TestJobRepo_Integration_NextRunnable(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		clock := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, JobRepoConfig{TimeProvider: clock})
		ctx := context.Background()

		_, err := repo.NextRunnable(ctx)
		require.ErrorIs(t, err, model.ErrNoRunnableJobs)

		oldest, err := repo.Insert(ctx, testutil.UploadJobRequest("user-runnable"), "Job created")
		require.NoError(t, err)
		clock.AddTime(time.Second)

		newest, err := repo.Insert(ctx, testutil.AutopushJobRequest("user-runnable"), "Job created")
		require.NoError(t, err)

		next, err := repo.NextRunnable(ctx)
		require.NoError(t, err)
		assert.Equal(t, oldest.ID, next.ID)

		// A running job is claimed and no longer offered to pollers.
		applied, err := repo.Transition(ctx, model.JobTransition{
			ID:         oldest.ID,
			From:       []model.JobStatus{model.JobStatusPending, model.JobStatusValidated},
			To:         model.JobStatusRunning,
			LogMessage: "Status changed to: running",
		})
		require.NoError(t, err)
		require.True(t, applied)

		next, err = repo.NextRunnable(ctx)
		require.NoError(t, err)
		assert.Equal(t, newest.ID, next.ID)
	})
}

func TestJobRepo_Integration_CountByStatus(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoConfig{})
		ctx := context.Background()

		stats, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Total())

		_, err = repo.Insert(ctx, testutil.UploadJobRequest("user-stats"), "Job created")
		require.NoError(t, err)

		finished, err := repo.Insert(ctx, testutil.AutopushJobRequest("user-stats"), "Job created")
		require.NoError(t, err)

		applied, err := repo.CompleteTerminal(ctx, model.JobCompletion{
			ID:         finished.ID,
			Status:     model.JobStatusFailed,
			Error:      testutil.StringPtr("remote rejected push"),
			LogMessage: "Job completed: failed",
		})
		require.NoError(t, err)
		require.True(t, applied)

		stats, err = repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Pending)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 2, stats.Total())
	})
}
