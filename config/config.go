package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Database and cache configuration
//   - http.go: HTTP server configuration
//   - pipeline.go: Pipeline, queue, storage, region, model, and KPI configuration
type AppConfig struct {
	// IsDev controls development mode behavior (pretty logs, relaxed auth).
	// Set DEV=true or APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig

	// HTTP server configuration
	HTTP HTTPConfig

	// Pipeline execution configuration
	Pipeline PipelineConfig

	// Push delivery authentication configuration
	PushAuth PushAuthConfig

	// Task queue push configuration
	Queue QueueConfig

	// Artifact storage and signed link configuration
	Storage StorageConfig

	// Region catalog and context cache configuration
	Region RegionConfig

	// Generative model configuration
	GenAI GenAIConfig

	// KPI webhook extraction configuration
	KPI KPIConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Pipeline.Sanitize()
	c.Queue.Sanitize()
	c.Storage.Sanitize()
	c.Region.Sanitize()
	c.GenAI.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV environment variables.
// APP_ENV is checked as a fallback so deploy tooling that only sets
// APP_ENV still gets development behavior.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}
