package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.RetryBase)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.RetryCap)
	assert.Equal(t, 0.2, cfg.Pipeline.RetryJitterFraction)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.Lease)
	assert.Equal(t, time.Minute, cfg.Pipeline.RetrySweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.Storage.LinkTTL)
	assert.Equal(t, 12*time.Hour, cfg.Cache.RegionContextTTL)
	assert.Equal(t, "index.json", cfg.Region.CatalogIndex)
	assert.False(t, cfg.PushAuth.Enabled)
}

func TestAppConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("PIPELINE_MAX_ATTEMPTS", "5")
	t.Setenv("QUEUE_PUSH_ENDPOINT", "https://worker.example.com/tasks/push")
	t.Setenv("SIGNING_KEY", "secret")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 5, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, "https://worker.example.com/tasks/push", cfg.Queue.PushEndpoint)
	assert.Equal(t, "secret", cfg.Storage.SigningKey)
}

func TestPipelineConfig_Sanitize(t *testing.T) {
	p := PipelineConfig{
		MaxAttempts:         0,
		RetryBase:           time.Millisecond,
		RetryCap:            time.Millisecond,
		RetryJitterFraction: 2.5,
		StageTimeout:        0,
		Lease:               time.Second,
	}
	p.Sanitize()

	assert.Equal(t, 1, p.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, p.RetryBase)
	assert.GreaterOrEqual(t, p.RetryCap, p.RetryBase)
	assert.Equal(t, 1.0, p.RetryJitterFraction)
	assert.Equal(t, time.Second, p.StageTimeout)
	assert.Equal(t, 30*time.Second, p.Lease)
	assert.Equal(t, 5*time.Second, p.RetrySweepInterval)
}

func TestPipelineConfig_SanitizeNegativeJitter(t *testing.T) {
	p := PipelineConfig{MaxAttempts: 3, RetryBase: time.Second, RetryCap: time.Minute, RetryJitterFraction: -1, StageTimeout: time.Minute, Lease: time.Minute}
	p.Sanitize()
	assert.Equal(t, 0.0, p.RetryJitterFraction)
}

func TestAppConfig_DetectDevMode(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.True(t, cfg.IsDev)
}
