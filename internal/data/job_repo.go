package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
)

// JobRepoConfig holds configuration options for the job repository.
type JobRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for pipeline jobs. Every mutation
// is a single conditional UPDATE; rows affected = 0 means another
// delivery got there first, never an error.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg JobRepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger,
	}
}

const jobColumns = `
  job_id,
  status,
  payload,
  current_task,
  completed_order,
  attempts,
  retry,
  results,
  assets,
  assets_refresh_count,
  failed_stage,
  last_error,
  lease_expires_at,
  created_at,
  updated_at
`

// Create inserts a new queued job. A duplicate job_id maps to a Conflict
// error so callers can treat redelivered create requests as idempotent.
func (r *JobRepo) Create(ctx context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return apperrors.Validation("job id is required")
	}
	if len(job.Payload) == 0 {
		return apperrors.Validation("job payload is required")
	}

	now := r.timeProvider.Now().UTC()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO jobs (job_id, status, payload, created_at, updated_at)
		VALUES ($1, 'queued', $2, $3, $3)
	`, job.ID, []byte(job.Payload), now)
	if err != nil {
		return apperrors.MapDBError(err)
	}

	job.Status = model.JobStatusQueued
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE job_id = $1
	`, id)

	job, err := scanJobFromRow(row)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

// claimStageSQL atomically marks a stage in-flight. The guards reject
// claims on terminal jobs, on stages already in the completed order, and
// on stages another delivery holds an unexpired lease for. A pending
// retry is consumed by the claim; the attempt counter only moves when a
// retry is scheduled, so it counts retries, not deliveries.
const claimStageSQL = `
  UPDATE jobs
  SET
    status = 'processing',
    current_task = $2,
    retry = NULL,
    lease_expires_at = $3,
    updated_at = $4
  WHERE job_id = $1
    AND status IN ('queued', 'processing')
    AND NOT (completed_order @> to_jsonb($2::text))
    AND (current_task IS DISTINCT FROM $2 OR lease_expires_at IS NULL OR lease_expires_at < $4)
  RETURNING ` + jobColumns

// ClaimStage attempts to win the conditional claim for one stage. Returns
// claimed=false (no error) when the row no longer satisfies the guards.
func (r *JobRepo) ClaimStage(ctx context.Context, params core.ClaimStageParams) (*model.Job, bool, error) {
	now := r.timeProvider.Now().UTC()
	row := r.DB.QueryRowContext(ctx, claimStageSQL,
		params.JobID,
		params.Stage,
		params.LeaseUntil.UTC(),
		now,
	)

	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.MapDBError(err)
	}
	return job, true, nil
}

// CompleteStage persists the stage result, merges any new asset links,
// and appends the stage to the completed order. Guarded by the claim so a
// delivery that lost its lease cannot overwrite a newer writer.
func (r *JobRepo) CompleteStage(ctx context.Context, params core.CompleteStageParams) (bool, error) {
	assets, err := marshalAssets(params.Assets)
	if err != nil {
		return false, err
	}

	result := params.Result
	if len(result) == 0 {
		result = json.RawMessage(`{}`)
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET
		  results = jsonb_set(results, ARRAY[$2::text], $3::jsonb),
		  completed_order = completed_order || to_jsonb($2::text),
		  assets = assets || $4::jsonb,
		  retry = NULL,
		  current_task = NULL,
		  lease_expires_at = NULL,
		  last_error = NULL,
		  status = CASE WHEN $5 THEN 'done' ELSE 'processing' END,
		  updated_at = $6
		WHERE job_id = $1
		  AND status = 'processing'
		  AND current_task = $2
		  AND NOT (completed_order @> to_jsonb($2::text))
	`, params.JobID, params.Stage, []byte(result), assets, params.Final, now)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}

	return oneRowAffected(res)
}

// ScheduleRetry records the pending retry, increments the stage's retry
// counter, and releases the lease so the delayed redelivery can reclaim
// the stage. The increment rides the same guarded statement, so a lost
// race never double-counts.
func (r *JobRepo) ScheduleRetry(ctx context.Context, params core.ScheduleRetryParams) (bool, error) {
	retry, err := json.Marshal(model.RetryState{
		Stage:         params.Stage,
		DelayMS:       params.Delay.Milliseconds(),
		NextAttemptAt: params.NextAttemptAt.UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("marshal retry state: %w", err)
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET
		  retry = $3::jsonb,
		  attempts = jsonb_set(attempts, ARRAY[$2::text], to_jsonb(COALESCE((attempts->>$2)::int, 0) + 1)),
		  last_error = $4,
		  current_task = NULL,
		  lease_expires_at = NULL,
		  updated_at = $5
		WHERE job_id = $1
		  AND status = 'processing'
		  AND current_task = $2
	`, params.JobID, params.Stage, retry, params.ErrMsg, now)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}

	return oneRowAffected(res)
}

// DueRetries lists jobs whose pending retry has come due and whose lease
// is gone. The claim clears retry while a delivery executes, so anything
// this query returns lost its delayed publish and needs a fresh one.
func (r *JobRepo) DueRetries(ctx context.Context, now time.Time, limit int) ([]*model.Job, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'processing'
		  AND retry IS NOT NULL
		  AND (retry->>'next_attempt_at')::timestamptz <= $1
		  AND (lease_expires_at IS NULL OR lease_expires_at < $1)
		ORDER BY updated_at
		LIMIT $2
	`, now.UTC(), limit)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJobFromRow(rows)
		if err != nil {
			return nil, apperrors.MapDBError(err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return jobs, nil
}

// FailStage marks the job failed, recording which stage gave up and why.
func (r *JobRepo) FailStage(ctx context.Context, params core.FailStageParams) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET
		  status = 'failed',
		  failed_stage = $2,
		  last_error = $3,
		  retry = NULL,
		  current_task = NULL,
		  lease_expires_at = NULL,
		  updated_at = $4
		WHERE job_id = $1
		  AND status IN ('queued', 'processing')
	`, params.JobID, params.Stage, params.ErrMsg, now)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}

	return oneRowAffected(res)
}

// ReplaceAssets swaps the asset link map and bumps the refresh counter.
// The counter the caller read acts as the guard: a concurrent refresh
// that committed first makes this write a no-op.
func (r *JobRepo) ReplaceAssets(
	ctx context.Context,
	jobID string,
	assets map[string]model.AssetLink,
	expectedRefreshCount int,
) (bool, error) {
	encoded, err := marshalAssets(assets)
	if err != nil {
		return false, err
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET
		  assets = $2::jsonb,
		  assets_refresh_count = assets_refresh_count + 1,
		  updated_at = $3
		WHERE job_id = $1
		  AND assets_refresh_count = $4
	`, jobID, encoded, now, expectedRefreshCount)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}

	return oneRowAffected(res)
}

func marshalAssets(assets map[string]model.AssetLink) ([]byte, error) {
	if len(assets) == 0 {
		return []byte(`{}`), nil
	}
	encoded, err := json.Marshal(assets)
	if err != nil {
		return nil, fmt.Errorf("marshal assets: %w", err)
	}
	return encoded, nil
}

func oneRowAffected(res sql.Result) (bool, error) {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	payload, completedOrder, attempts, results, assets []byte
	retry                                              []byte
	currentTask, failedStage, lastError                sql.NullString
	leaseExpiresAt                                     sql.NullTime
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.Job) error {
	return scanner.Scan(
		&job.ID,
		&job.Status,
		&d.payload,
		&d.currentTask,
		&d.completedOrder,
		&d.attempts,
		&d.retry,
		&d.results,
		&d.assets,
		&job.AssetsRefreshCount,
		&d.failedStage,
		&d.lastError,
		&d.leaseExpiresAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
}

func (d *jobRowData) apply(job *model.Job) error {
	job.Payload = cloneJSON(d.payload)
	job.CurrentTask = cloneNullableStage(d.currentTask)
	job.FailedStage = cloneNullableStage(d.failedStage)
	job.LastError = cloneNullableString(d.lastError)
	job.LeaseExpiresAt = cloneNullableTime(d.leaseExpiresAt)

	if err := unmarshalJSONB(d.completedOrder, &job.CompletedOrder, "completed_order"); err != nil {
		return err
	}
	if err := unmarshalJSONB(d.attempts, &job.Attempts, "attempts"); err != nil {
		return err
	}
	if err := unmarshalJSONB(d.results, &job.Results, "results"); err != nil {
		return err
	}
	if err := unmarshalJSONB(d.assets, &job.Assets, "assets"); err != nil {
		return err
	}
	if len(d.retry) > 0 {
		var retry model.RetryState
		if err := json.Unmarshal(d.retry, &retry); err != nil {
			return fmt.Errorf("unmarshal retry: %w", err)
		}
		job.Retry = &retry
	}
	return nil
}

func scanJobFromRow(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}
	if err := data.apply(job); err != nil {
		return nil, err
	}
	return job, nil
}

func unmarshalJSONB(raw []byte, out any, field string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", field, err)
	}
	return nil
}

func cloneJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableStage(ns sql.NullString) *model.Stage {
	if !ns.Valid {
		return nil
	}
	s := model.Stage(ns.String)
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
