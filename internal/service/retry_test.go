package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/townready/townready/config"
	apperrors "github.com/townready/townready/internal/errors"
)

func newTestScheduler(jitter float64) *RetryScheduler {
	s := NewRetryScheduler(config.PipelineConfig{
		MaxAttempts:         3,
		RetryBase:           2 * time.Second,
		RetryCap:            5 * time.Minute,
		RetryJitterFraction: jitter,
	})
	// Deterministic jitter at the top of the range.
	s.randFloat = func() float64 { return 1.0 }
	return s
}

func TestRetryScheduler_Delay(t *testing.T) {
	s := newTestScheduler(0)

	assert.Equal(t, 2*time.Second, s.Delay(0))
	assert.Equal(t, 4*time.Second, s.Delay(1))
	assert.Equal(t, 8*time.Second, s.Delay(2))
	// Negative attempts clamp to the base delay.
	assert.Equal(t, 2*time.Second, s.Delay(-1))
	// Growth stops at the cap.
	assert.Equal(t, 5*time.Minute, s.Delay(20))
}

func TestRetryScheduler_DelayJitter(t *testing.T) {
	s := newTestScheduler(0.2)

	// With randFloat pinned to 1.0 the jitter is exactly delay*fraction.
	assert.Equal(t, time.Duration(float64(2*time.Second)*1.2), s.Delay(0))

	s.randFloat = func() float64 { return 0 }
	assert.Equal(t, 2*time.Second, s.Delay(0))
}

func TestRetryScheduler_DelayMonotone(t *testing.T) {
	s := newTestScheduler(0)

	prev := time.Duration(0)
	for attempt := 0; attempt < 12; attempt++ {
		d := s.Delay(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, 5*time.Minute, "attempt %d", attempt)
		prev = d
	}
}

func TestRetryScheduler_ShouldRetry(t *testing.T) {
	s := newTestScheduler(0)

	transient := apperrors.Unavailable("model endpoint down")
	permanent := apperrors.Validation("bad payload")

	assert.True(t, s.ShouldRetry(transient, 1))
	assert.True(t, s.ShouldRetry(transient, 2))
	// Budget exhausted.
	assert.False(t, s.ShouldRetry(transient, 3))
	// Permanent errors never retry.
	assert.False(t, s.ShouldRetry(permanent, 1))
}
