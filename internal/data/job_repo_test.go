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
	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
	"github.com/townready/townready/internal/testutil"
)

func newTestJob(t *testing.T, repo *JobRepo) *model.Job {
	t.Helper()

	job := &model.Job{
		ID:      uuid.NewString(),
		Payload: json.RawMessage(`{"location":{"address":"1-1 Chiyoda, Tokyo"},"participants":{"total":50},"hazard":{"types":["earthquake"]}}`),
	}
	require.NoError(t, repo.Create(context.Background(), job))
	return job
}

func TestJobRepo_Create(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoConfig{})
		ctx := context.Background()

		job := newTestJob(t, repo)
		assert.Equal(t, model.JobStatusQueued, job.Status)

		// Duplicate job_id maps to Conflict so redelivered creates stay idempotent.
		dup := &model.Job{ID: job.ID, Payload: json.RawMessage(`{}`)}
		err := repo.Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestJobRepo_Create_Validation(t *testing.T) {
	repo := NewJobRepo(nil, JobRepoConfig{})
	ctx := context.Background()

	err := repo.Create(ctx, &model.Job{Payload: json.RawMessage(`{}`)})
	assert.True(t, apperrors.IsValidation(err))

	err = repo.Create(ctx, &model.Job{ID: "j-1"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobRepo_GetByID(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoConfig{})
		ctx := context.Background()

		created := newTestJob(t, repo)
		job, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, job.ID)
		assert.Equal(t, model.JobStatusQueued, job.Status)
		assert.Empty(t, job.CompletedOrder)
		assert.Empty(t, job.Attempts)
		assert.Nil(t, job.Retry)

		_, err = repo.GetByID(ctx, uuid.NewString())
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestJobRepo_ClaimStage(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, JobRepoConfig{TimeProvider: tp})
		ctx := context.Background()

		created := newTestJob(t, repo)

		lease := tp.Now().Add(10 * time.Minute)
		job, claimed, err := repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StagePlan, LeaseUntil: lease,
		})
		require.NoError(t, err)
		require.True(t, claimed)
		assert.Equal(t, model.JobStatusProcessing, job.Status)
		require.NotNil(t, job.CurrentTask)
		assert.Equal(t, model.StagePlan, *job.CurrentTask)
		// Claims do not move the counter; it only tracks scheduled retries.
		assert.Equal(t, 0, job.Attempts[model.StagePlan])

		// Second claim for the same stage loses while the lease is live.
		_, claimed, err = repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StagePlan, LeaseUntil: lease,
		})
		require.NoError(t, err)
		assert.False(t, claimed)

		// After the lease expires the stage can be reclaimed.
		tp.AddTime(11 * time.Minute)
		job, claimed, err = repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StagePlan, LeaseUntil: tp.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)
		require.True(t, claimed)
		assert.Equal(t, 0, job.Attempts[model.StagePlan])
	})
}

func TestJobRepo_ClaimStage_UnknownJob(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, JobRepoConfig{})

		_, claimed, err := repo.ClaimStage(context.Background(), core.ClaimStageParams{
			JobID: uuid.NewString(), Stage: model.StagePlan, LeaseUntil: time.Now().Add(time.Minute),
		})
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}

func TestJobRepo_CompleteStage(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, JobRepoConfig{TimeProvider: tp})
		ctx := context.Background()

		created := newTestJob(t, repo)
		_, claimed, err := repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StagePlan, LeaseUntil: tp.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)
		require.True(t, claimed)

		ok, err := repo.CompleteStage(ctx, core.CompleteStageParams{
			JobID:  created.ID,
			Stage:  model.StagePlan,
			Result: json.RawMessage(`{"summary":"plan ready"}`),
			Assets: map[string]model.AssetLink{
				"plan_md": {ObjectPath: created.ID + "/plan.md", URL: "http://example/plan", IssuedAt: tp.Now()},
			},
		})
		require.NoError(t, err)
		assert.True(t, ok)

		job, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusProcessing, job.Status)
		assert.Equal(t, []model.Stage{model.StagePlan}, job.CompletedOrder)
		assert.JSONEq(t, `{"summary":"plan ready"}`, string(job.Results[model.StagePlan]))
		assert.Contains(t, job.Assets, "plan_md")
		assert.Nil(t, job.CurrentTask)
		assert.Nil(t, job.LeaseExpiresAt)
		// A clean first-try success means the stage was never retried.
		assert.Equal(t, 0, job.Attempts[model.StagePlan])

		// Completing the same stage again is a lost write, not an error.
		ok, err = repo.CompleteStage(ctx, core.CompleteStageParams{
			JobID: created.ID, Stage: model.StagePlan, Result: json.RawMessage(`{}`),
		})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestJobRepo_CompleteStage_Final(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, JobRepoConfig{TimeProvider: tp})
		ctx := context.Background()

		created := newTestJob(t, repo)
		for _, stage := range model.PipelineOrder {
			_, claimed, err := repo.ClaimStage(ctx, core.ClaimStageParams{
				JobID: created.ID, Stage: stage, LeaseUntil: tp.Now().Add(10 * time.Minute),
			})
			require.NoError(t, err)
			require.True(t, claimed)

			ok, err := repo.CompleteStage(ctx, core.CompleteStageParams{
				JobID:  created.ID,
				Stage:  stage,
				Result: json.RawMessage(`{}`),
				Final:  stage == model.StageContent,
			})
			require.NoError(t, err)
			require.True(t, ok)
		}

		job, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusDone, job.Status)
		assert.Equal(t, model.PipelineOrder, job.CompletedOrder)
	})
}

func TestJobRepo_ScheduleRetry(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, JobRepoConfig{TimeProvider: tp})
		ctx := context.Background()

		created := newTestJob(t, repo)
		_, claimed, err := repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StagePlan, LeaseUntil: tp.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)
		require.True(t, claimed)

		next := tp.Now().Add(4 * time.Second)
		ok, err := repo.ScheduleRetry(ctx, core.ScheduleRetryParams{
			JobID:         created.ID,
			Stage:         model.StagePlan,
			Delay:         4 * time.Second,
			NextAttemptAt: next,
			ErrMsg:        "model endpoint unreachable",
		})
		require.NoError(t, err)
		assert.True(t, ok)

		job, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, job.Retry)
		assert.Equal(t, model.StagePlan, job.Retry.Stage)
		assert.Equal(t, int64(4000), job.Retry.DelayMS)
		assert.True(t, job.Retry.NextAttemptAt.Equal(next))
		require.NotNil(t, job.LastError)
		assert.Equal(t, "model endpoint unreachable", *job.LastError)
		// One retry scheduled means a counter of one.
		assert.Equal(t, 1, job.Attempts[model.StagePlan])
		// Lease is released so the delayed redelivery can reclaim.
		assert.Nil(t, job.LeaseExpiresAt)
		assert.Nil(t, job.CurrentTask)

		// Reclaiming consumes the pending retry.
		reclaimed, claimed, err := repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StagePlan, LeaseUntil: tp.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)
		require.True(t, claimed)
		assert.Nil(t, reclaimed.Retry)

		ok, err = repo.CompleteStage(ctx, core.CompleteStageParams{
			JobID: created.ID, Stage: model.StagePlan, Result: json.RawMessage(`{}`),
		})
		require.NoError(t, err)
		require.True(t, ok)

		job, err = repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, job.Retry)
		assert.Nil(t, job.LastError)
		assert.Equal(t, 1, job.Attempts[model.StagePlan])
	})
}

func TestJobRepo_DueRetries(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, JobRepoConfig{TimeProvider: tp})
		ctx := context.Background()

		created := newTestJob(t, repo)
		_, claimed, err := repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StagePlan, LeaseUntil: tp.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)
		require.True(t, claimed)

		ok, err := repo.ScheduleRetry(ctx, core.ScheduleRetryParams{
			JobID:         created.ID,
			Stage:         model.StagePlan,
			Delay:         2 * time.Second,
			NextAttemptAt: tp.Now().Add(2 * time.Second),
			ErrMsg:        "model endpoint unreachable",
		})
		require.NoError(t, err)
		require.True(t, ok)

		// The retry has not come due yet.
		jobs, err := repo.DueRetries(ctx, tp.Now(), 10)
		require.NoError(t, err)
		assert.Empty(t, jobs)

		tp.AddTime(3 * time.Second)
		jobs, err = repo.DueRetries(ctx, tp.Now(), 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, created.ID, jobs[0].ID)
		require.NotNil(t, jobs[0].Retry)
		assert.Equal(t, model.StagePlan, jobs[0].Retry.Stage)

		// A reclaim consumes the retry, so the job drops out of the sweep.
		_, claimed, err = repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StagePlan, LeaseUntil: tp.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)
		require.True(t, claimed)

		jobs, err = repo.DueRetries(ctx, tp.Now(), 10)
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})
}

func TestJobRepo_RetryTwiceThenSucceed(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, JobRepoConfig{TimeProvider: tp})
		ctx := context.Background()

		created := newTestJob(t, repo)

		// Two failed attempts, each scheduling a retry.
		for i := 1; i <= 2; i++ {
			_, claimed, err := repo.ClaimStage(ctx, core.ClaimStageParams{
				JobID: created.ID, Stage: model.StagePlan, LeaseUntil: tp.Now().Add(10 * time.Minute),
			})
			require.NoError(t, err)
			require.True(t, claimed)

			ok, err := repo.ScheduleRetry(ctx, core.ScheduleRetryParams{
				JobID:         created.ID,
				Stage:         model.StagePlan,
				Delay:         2 * time.Second,
				NextAttemptAt: tp.Now().Add(2 * time.Second),
				ErrMsg:        "model endpoint unreachable",
			})
			require.NoError(t, err)
			require.True(t, ok)

			job, err := repo.GetByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, i, job.Attempts[model.StagePlan])
			tp.AddTime(3 * time.Second)
		}

		// Third attempt succeeds.
		_, claimed, err := repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StagePlan, LeaseUntil: tp.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)
		require.True(t, claimed)

		ok, err := repo.CompleteStage(ctx, core.CompleteStageParams{
			JobID: created.ID, Stage: model.StagePlan, Result: json.RawMessage(`{}`),
		})
		require.NoError(t, err)
		require.True(t, ok)

		job, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusProcessing, job.Status)
		assert.Equal(t, []model.Stage{model.StagePlan}, job.CompletedOrder)
		assert.Equal(t, 2, job.Attempts[model.StagePlan])
		assert.Nil(t, job.Retry)
		assert.Nil(t, job.LastError)
	})
}

func TestJobRepo_FailStage(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, JobRepoConfig{TimeProvider: tp})
		ctx := context.Background()

		created := newTestJob(t, repo)
		_, claimed, err := repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StageSafety, LeaseUntil: tp.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)
		require.True(t, claimed)

		ok, err := repo.FailStage(ctx, core.FailStageParams{
			JobID: created.ID, Stage: model.StageSafety, ErrMsg: "attempts exhausted",
		})
		require.NoError(t, err)
		assert.True(t, ok)

		job, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, job.Status)
		require.NotNil(t, job.FailedStage)
		assert.Equal(t, model.StageSafety, *job.FailedStage)
		require.NotNil(t, job.LastError)
		assert.Equal(t, "attempts exhausted", *job.LastError)

		// Terminal jobs reject further claims.
		_, claimed, err = repo.ClaimStage(ctx, core.ClaimStageParams{
			JobID: created.ID, Stage: model.StageSafety, LeaseUntil: tp.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}

func TestJobRepo_ReplaceAssets(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, JobRepoConfig{TimeProvider: tp})
		ctx := context.Background()

		created := newTestJob(t, repo)
		assets := map[string]model.AssetLink{
			"plan_md": {ObjectPath: created.ID + "/plan.md", URL: "http://example/v2", IssuedAt: tp.Now()},
		}

		ok, err := repo.ReplaceAssets(ctx, created.ID, assets, 0)
		require.NoError(t, err)
		assert.True(t, ok)

		// A second writer holding the stale counter loses.
		ok, err = repo.ReplaceAssets(ctx, created.ID, assets, 0)
		require.NoError(t, err)
		assert.False(t, ok)

		job, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, job.AssetsRefreshCount)
		assert.Equal(t, "http://example/v2", job.Assets["plan_md"].URL)
	})
}
