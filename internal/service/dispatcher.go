package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/townready/townready/config"
	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/data"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
	"github.com/townready/townready/internal/service/stages"
)

// Disposition is the dispatcher's acknowledgment of one delivery. Ack stops
// redelivery; Nack asks the queue to deliver again.
type Disposition int

const (
	Ack Disposition = iota
	Nack
)

func (d Disposition) String() string {
	if d == Nack {
		return "nack"
	}
	return "ack"
}

// DispatcherDeps groups the collaborators of the Dispatcher.
type DispatcherDeps struct {
	Jobs      core.JobStore
	Registry  *stages.Registry
	Links     *LinkService
	Resolver  *RegionResolver
	Publisher core.TaskPublisher
	Retry     *RetryScheduler
}

// DispatcherOptions groups dependencies for the Dispatcher.
type DispatcherOptions struct {
	Deps     DispatcherDeps
	Pipeline config.PipelineConfig

	Logger       *slog.Logger
	TimeProvider data.TimeProvider
}

// Dispatcher is the pipeline state machine. It receives one task
// invocation per delivery, enforces idempotency and stage order, runs the
// stage executor, and schedules the next stage or a retry. All cross-
// delivery coordination happens through the job store's conditional
// writes; the dispatcher itself holds no state.
type Dispatcher struct {
	jobs      core.JobStore
	registry  *stages.Registry
	links     *LinkService
	resolver  *RegionResolver
	publisher core.TaskPublisher
	retry     *RetryScheduler
	pipeline  config.PipelineConfig

	logger       *slog.Logger
	timeProvider data.TimeProvider
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	deps := opts.Deps
	if deps.Jobs == nil {
		panic("JobStore is required")
	}
	if deps.Registry == nil {
		panic("stage registry is required")
	}
	if deps.Links == nil {
		panic("LinkService is required")
	}
	if deps.Resolver == nil {
		panic("RegionResolver is required")
	}
	if deps.Publisher == nil {
		panic("TaskPublisher is required")
	}
	if deps.Retry == nil {
		panic("RetryScheduler is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	return &Dispatcher{
		jobs:         deps.Jobs,
		registry:     deps.Registry,
		links:        deps.Links,
		resolver:     deps.Resolver,
		publisher:    deps.Publisher,
		retry:        deps.Retry,
		pipeline:     opts.Pipeline,
		logger:       logger,
		timeProvider: tp,
	}
}

// Handle processes one delivery. Duplicates, out-of-order deliveries, and
// fatal failures all ack so the queue stops redelivering; only transient
// infrastructure trouble nacks.
func (d *Dispatcher) Handle(ctx context.Context, inv model.TaskInvocation) Disposition {
	logger := d.logger.With("job_id", inv.JobID, "task", inv.Task, "delivery_id", inv.DeliveryID)

	if err := inv.Validate(); err != nil {
		logger.WarnContext(ctx, "dropping invalid invocation", "err", err)
		return Ack
	}

	job, err := d.jobs.GetByID(ctx, inv.JobID)
	if apperrors.IsNotFound(err) {
		logger.WarnContext(ctx, "invocation for unknown job, dropping")
		return Ack
	}
	if err != nil {
		logger.ErrorContext(ctx, "job read failed", "err", err)
		return Nack
	}

	if job.Status.Terminal() {
		logger.InfoContext(ctx, "job already terminal, acking duplicate", "status", job.Status)
		return Ack
	}

	if job.StageCompleted(inv.Task) {
		// Redelivery of a finished stage. Ack it, but first make sure the
		// chain did not stall: if the next stage's publish was lost, this
		// redelivery is the only chance to repair it.
		if next := job.ExpectedStage(); next != "" {
			if pubErr := d.publishStage(ctx, job.ID, next, 0); pubErr != nil {
				logger.ErrorContext(ctx, "chain repair publish failed", "next", next, "err", pubErr)
				return Nack
			}
			logger.InfoContext(ctx, "duplicate delivery, re-published next stage", "next", next)
		}
		return Ack
	}

	if expected := job.ExpectedStage(); expected != inv.Task {
		logger.InfoContext(ctx, "out-of-order delivery, dropping", "expected", expected)
		return Ack
	}

	now := d.timeProvider.Now().UTC()
	job, claimed, err := d.jobs.ClaimStage(ctx, core.ClaimStageParams{
		JobID:      inv.JobID,
		Stage:      inv.Task,
		LeaseUntil: now.Add(d.pipeline.Lease),
	})
	if err != nil {
		logger.ErrorContext(ctx, "stage claim failed", "err", err)
		return Nack
	}
	if !claimed {
		logger.InfoContext(ctx, "stage claimed elsewhere, acking")
		return Ack
	}

	req := &model.DrillRequest{}
	if err := json.Unmarshal(job.Payload, req); err != nil {
		return d.failStage(ctx, logger, job, inv.Task, apperrors.Wrap(err, apperrors.ErrCodeValidation, "decode job payload"))
	}

	region, err := d.resolver.Resolve(ctx, req)
	if err != nil {
		return d.stageFailed(ctx, logger, job, inv, err)
	}

	stageCtx, cancel := context.WithTimeout(ctx, d.pipeline.StageTimeout)
	out, err := d.registry.Execute(stageCtx, inv.Task, stages.Input{
		Request: req,
		Results: job.Results,
		Region:  region,
	})
	cancel()
	if err != nil {
		return d.stageFailed(ctx, logger, job, inv, err)
	}

	assets, err := d.links.PublishArtifacts(ctx, job.ID, inv.Task, out.Artifacts)
	if err != nil {
		return d.stageFailed(ctx, logger, job, inv, err)
	}

	next := inv.Task.Next()
	ok, err := d.jobs.CompleteStage(ctx, core.CompleteStageParams{
		JobID:  job.ID,
		Stage:  inv.Task,
		Result: out.Result,
		Assets: assets,
		Final:  next == "",
	})
	if err != nil {
		logger.ErrorContext(ctx, "stage completion write failed", "err", err)
		return Nack
	}
	if !ok {
		logger.InfoContext(ctx, "completion lost to a concurrent delivery, acking")
		return Ack
	}

	if next == "" {
		logger.InfoContext(ctx, "pipeline complete")
		return Ack
	}
	if err := d.publishStage(ctx, job.ID, next, 0); err != nil {
		// The result is persisted; nack so the redelivery repairs the chain.
		logger.ErrorContext(ctx, "next stage publish failed", "next", next, "err", err)
		return Nack
	}
	logger.InfoContext(ctx, "stage complete", "next", next)
	return Ack
}

// stageFailed routes an executor failure to a retry or a terminal failure.
func (d *Dispatcher) stageFailed(
	ctx context.Context,
	logger *slog.Logger,
	job *model.Job,
	inv model.TaskInvocation,
	cause error,
) Disposition {
	// The stored counter holds retries already scheduled; this failure is
	// attempt number retries+1, and its backoff exponent is the retry count.
	attempts := job.Attempts[inv.Task] + 1
	if !d.retry.ShouldRetry(cause, attempts) {
		return d.failStage(ctx, logger, job, inv.Task, cause)
	}

	delay := d.retry.Delay(attempts - 1)
	now := d.timeProvider.Now().UTC()
	ok, err := d.jobs.ScheduleRetry(ctx, core.ScheduleRetryParams{
		JobID:         job.ID,
		Stage:         inv.Task,
		Delay:         delay,
		NextAttemptAt: now.Add(delay),
		ErrMsg:        cause.Error(),
	})
	if err != nil {
		logger.ErrorContext(ctx, "retry bookkeeping failed", "err", err)
		return Nack
	}
	if !ok {
		logger.InfoContext(ctx, "retry raced a concurrent delivery, acking")
		return Ack
	}

	if err := d.publishStage(ctx, job.ID, inv.Task, delay); err != nil {
		// Retry state is persisted; nack so a redelivery re-attempts the
		// stage, with the retry sweeper as the backstop.
		logger.ErrorContext(ctx, "retry publish failed", "err", err)
		return Nack
	}

	logger.WarnContext(ctx, "stage failed, retry scheduled",
		"attempts", attempts,
		"delay", delay,
		"err", cause,
	)
	return Ack
}

// failStage marks the job terminally failed.
func (d *Dispatcher) failStage(
	ctx context.Context,
	logger *slog.Logger,
	job *model.Job,
	stage model.Stage,
	cause error,
) Disposition {
	if _, err := d.jobs.FailStage(ctx, core.FailStageParams{
		JobID:  job.ID,
		Stage:  stage,
		ErrMsg: cause.Error(),
	}); err != nil {
		logger.ErrorContext(ctx, "failure write failed", "err", err)
		return Nack
	}
	logger.ErrorContext(ctx, "stage failed fatally", "err", cause)
	return Ack
}

func (d *Dispatcher) publishStage(ctx context.Context, jobID string, stage model.Stage, delay time.Duration) error {
	return d.publisher.Publish(ctx, model.TaskInvocation{
		JobID: jobID,
		Task:  stage,
	}, delay)
}
