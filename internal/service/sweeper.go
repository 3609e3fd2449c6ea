package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/data"
	"github.com/townready/townready/internal/domain/model"
)

const (
	sweepBatchSize = 50
	sweepLockKey   = "retry-sweep-lock"
)

// RetrySweeperOptions groups dependencies for the RetrySweeper.
type RetrySweeperOptions struct {
	Jobs      core.JobStore
	Publisher core.TaskPublisher
	// Cache coordinates sweeps across workers; nil means every worker sweeps.
	Cache    core.CacheRepository
	Interval time.Duration

	Logger       *slog.Logger
	TimeProvider data.TimeProvider
}

// RetrySweeper republishes pending retries whose delayed publish was
// lost, typically because the process died between scheduling the retry
// and the delayed delivery going out. The queue already acked that
// delivery, so nothing else will redeliver it; without the sweeper the
// job stays wedged in processing forever. A duplicate republish is
// harmless because the stage claim is conditional.
type RetrySweeper struct {
	jobs      core.JobStore
	publisher core.TaskPublisher
	cache     core.CacheRepository
	interval  time.Duration

	logger       *slog.Logger
	timeProvider data.TimeProvider
}

// NewRetrySweeper constructs a RetrySweeper.
func NewRetrySweeper(opts RetrySweeperOptions) *RetrySweeper {
	if opts.Jobs == nil {
		panic("JobStore is required")
	}
	if opts.Publisher == nil {
		panic("TaskPublisher is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	return &RetrySweeper{
		jobs:         opts.Jobs,
		publisher:    opts.Publisher,
		cache:        opts.Cache,
		interval:     opts.Interval,
		logger:       logger.With("component", "retry_sweeper"),
		timeProvider: tp,
	}
}

// Run sweeps at the configured interval until the context is cancelled.
// Returns nil on graceful shutdown.
func (s *RetrySweeper) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting retry sweeper", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.ErrorContext(ctx, "retry sweep failed", "err", err)
			}
		}
	}
}

// Sweep republishes one batch of overdue retries.
func (s *RetrySweeper) Sweep(ctx context.Context) error {
	if s.cache != nil {
		won, err := s.cache.SetIfNotExists(ctx, sweepLockKey, []byte("1"), s.interval)
		if err != nil {
			// A broken cache must not stop recovery; sweep without the lock.
			s.logger.WarnContext(ctx, "sweep lock unavailable, sweeping anyway", "err", err)
		} else if !won {
			return nil
		}
	}

	now := s.timeProvider.Now().UTC()
	jobs, err := s.jobs.DueRetries(ctx, now, sweepBatchSize)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if job.Retry == nil {
			continue
		}
		inv := model.TaskInvocation{JobID: job.ID, Task: job.Retry.Stage}
		if err := s.publisher.Publish(ctx, inv, 0); err != nil {
			// The next sweep picks this job up again.
			s.logger.WarnContext(ctx, "retry republish failed",
				"job_id", job.ID, "task", job.Retry.Stage, "err", err)
			continue
		}
		s.logger.InfoContext(ctx, "republished overdue retry",
			"job_id", job.ID, "task", job.Retry.Stage)
	}
	return nil
}
