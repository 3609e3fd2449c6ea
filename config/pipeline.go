package config

import "time"

// PipelineConfig contains stage execution and retry configuration.
type PipelineConfig struct {
	// MaxAttempts is the maximum number of attempts per stage before the
	// job is marked failed.
	MaxAttempts int `env:"PIPELINE_MAX_ATTEMPTS" envDefault:"3"`

	// RetryBase is the base delay of the exponential backoff schedule.
	RetryBase time.Duration `env:"PIPELINE_RETRY_BASE" envDefault:"2s"`

	// RetryCap is the upper bound on a single backoff delay.
	RetryCap time.Duration `env:"PIPELINE_RETRY_CAP" envDefault:"5m"`

	// RetryJitterFraction is the fraction of the computed delay added as
	// random jitter (0 disables jitter).
	RetryJitterFraction float64 `env:"PIPELINE_RETRY_JITTER_FRACTION" envDefault:"0.2"`

	// StageTimeout bounds a single stage execution.
	StageTimeout time.Duration `env:"PIPELINE_STAGE_TIMEOUT" envDefault:"120s"`

	// Lease is how long a claimed stage stays protected from concurrent
	// redeliveries before it is considered abandoned.
	Lease time.Duration `env:"PIPELINE_LEASE" envDefault:"10m"`

	// RetrySweepInterval is how often the retry sweeper looks for pending
	// retries whose delayed publish never arrived.
	RetrySweepInterval time.Duration `env:"PIPELINE_RETRY_SWEEP_INTERVAL" envDefault:"1m"`
}

// Sanitize applies guardrails to pipeline configuration values.
func (p *PipelineConfig) Sanitize() {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.RetryBase < 100*time.Millisecond {
		p.RetryBase = 100 * time.Millisecond
	}
	if p.RetryCap < p.RetryBase {
		p.RetryCap = p.RetryBase
	}
	if p.RetryJitterFraction < 0 {
		p.RetryJitterFraction = 0
	}
	if p.RetryJitterFraction > 1 {
		p.RetryJitterFraction = 1
	}
	if p.StageTimeout < 1*time.Second {
		p.StageTimeout = 1 * time.Second
	}
	if p.Lease < 30*time.Second {
		p.Lease = 30 * time.Second
	}
	if p.RetrySweepInterval < 5*time.Second {
		p.RetrySweepInterval = 5 * time.Second
	}
}

// PushAuthConfig contains OIDC verification settings for push deliveries.
type PushAuthConfig struct {
	// Enabled turns on bearer token verification for POST /tasks/push.
	Enabled bool `env:"PUSH_AUTH_ENABLED" envDefault:"false"`

	// Issuer is the expected OIDC token issuer.
	Issuer string `env:"PUSH_AUTH_ISSUER" envDefault:"https://accounts.google.com"`

	// Audience is the expected token audience (normally the push endpoint URL).
	Audience string `env:"PUSH_AUTH_AUDIENCE" envDefault:""`
}

// QueueConfig contains task queue push configuration.
type QueueConfig struct {
	// PushEndpoint is the URL task invocations are POSTed to. When this
	// points back at the worker itself the pipeline is self-driving.
	PushEndpoint string `env:"QUEUE_PUSH_ENDPOINT" envDefault:"http://localhost:8080/tasks/push"`

	// Token is an optional bearer token attached to published deliveries.
	Token string `env:"QUEUE_TOKEN" envDefault:""`

	// PublishTimeout bounds a single publish HTTP request.
	PublishTimeout time.Duration `env:"QUEUE_PUBLISH_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to queue configuration values.
func (q *QueueConfig) Sanitize() {
	if q.PublishTimeout < 1*time.Second {
		q.PublishTimeout = 1 * time.Second
	}
}

// StorageConfig contains artifact storage and signed link configuration.
type StorageConfig struct {
	// SigningKey is the HMAC key for asset link signatures.
	// Required outside development.
	SigningKey string `env:"SIGNING_KEY" envDefault:""`

	// LinkTTL is how long a signed asset link stays valid.
	LinkTTL time.Duration `env:"SIGNING_LINK_TTL" envDefault:"24h"`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StorageConfig) Sanitize() {
	if s.LinkTTL < 1*time.Minute {
		s.LinkTTL = 1 * time.Minute
	}
}

// RegionConfig contains region catalog configuration.
type RegionConfig struct {
	// CatalogDir is the directory holding per-region catalog documents.
	CatalogDir string `env:"REGION_CATALOG_DIR" envDefault:"./catalog"`

	// CatalogIndex is the index file name inside CatalogDir.
	CatalogIndex string `env:"REGION_CATALOG_INDEX" envDefault:"index.json"`
}

// Sanitize applies guardrails to region configuration values.
func (r *RegionConfig) Sanitize() {
	if r.CatalogIndex == "" {
		r.CatalogIndex = "index.json"
	}
}

// GenAIConfig contains generative model configuration. An empty Endpoint
// disables model calls; stage executors fall back to deterministic
// template output.
type GenAIConfig struct {
	Endpoint string        `env:"GENAI_ENDPOINT" envDefault:""`
	Model    string        `env:"GENAI_MODEL"    envDefault:"gemini-2.0-flash"`
	APIKey   string        `env:"GENAI_API_KEY"  envDefault:""`
	Timeout  time.Duration `env:"GENAI_TIMEOUT"  envDefault:"60s"`
}

// Sanitize applies guardrails to model configuration values.
func (g *GenAIConfig) Sanitize() {
	if g.Timeout < 1*time.Second {
		g.Timeout = 1 * time.Second
	}
}

// KPIConfig contains JMESPath expressions used to extract KPI fields from
// webhook payloads of varying shapes.
type KPIConfig struct {
	AttendancePath string `env:"KPI_ATTENDANCE_PATH" envDefault:"attendance || metrics.attendance"`
	EvacTimePath   string `env:"KPI_EVAC_TIME_PATH"  envDefault:"evac_seconds || metrics.evac_seconds"`
	QuizScorePath  string `env:"KPI_QUIZ_SCORE_PATH" envDefault:"quiz_score || metrics.quiz_score"`
}
