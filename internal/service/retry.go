package service

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/townready/townready/config"
	apperrors "github.com/townready/townready/internal/errors"
)

// RetryScheduler computes backoff delays for failed stage attempts and
// classifies whether a failure is worth retrying. It is stateless and safe
// for concurrent use.
type RetryScheduler struct {
	base           time.Duration
	cap            time.Duration
	jitterFraction float64
	maxAttempts    int
	randFloat      func() float64
}

// NewRetryScheduler creates a RetryScheduler from the pipeline configuration.
func NewRetryScheduler(cfg config.PipelineConfig) *RetryScheduler {
	return &RetryScheduler{
		base:           cfg.RetryBase,
		cap:            cfg.RetryCap,
		jitterFraction: cfg.RetryJitterFraction,
		maxAttempts:    cfg.MaxAttempts,
		randFloat:      rand.Float64,
	}
}

// MaxAttempts returns the per-stage attempt budget.
func (s *RetryScheduler) MaxAttempts() int {
	return s.maxAttempts
}

// Delay returns min(base * 2^attempt, cap) plus a jitter uniform in
// [0, delay*jitterFraction]. Attempt is the zero-based count of prior
// tries, so the first retry waits roughly one base interval.
func (s *RetryScheduler) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(s.base) * math.Pow(2, float64(attempt))
	if capped := float64(s.cap); s.cap > 0 && delay > capped {
		delay = capped
	}

	jitter := s.randFloat() * delay * s.jitterFraction //nolint:gosec // jitter intentionally uses non-crypto rand
	return time.Duration(delay + jitter)
}

// ShouldRetry reports whether a failed attempt should be rescheduled:
// the error must be transient and the stage must have budget left.
// Attempts is the count including the attempt that just failed.
func (s *RetryScheduler) ShouldRetry(err error, attempts int) bool {
	return apperrors.IsRetryable(err) && attempts < s.maxAttempts
}
