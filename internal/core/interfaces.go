// Package core defines the ports between the service layer and its
// infrastructure (hexagonal architecture). Service implementations depend
// on these interfaces, not on concrete data or adapter types.
package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/townready/townready/internal/domain/model"
)

// ClaimStageParams groups parameters for JobStore.ClaimStage.
type ClaimStageParams struct {
	JobID      string
	Stage      model.Stage
	LeaseUntil time.Time
}

// CompleteStageParams groups parameters for JobStore.CompleteStage.
type CompleteStageParams struct {
	JobID  string
	Stage  model.Stage
	Result json.RawMessage
	Assets map[string]model.AssetLink
	// Final marks the last pipeline stage; the job transitions to done.
	Final bool
}

// ScheduleRetryParams groups parameters for JobStore.ScheduleRetry.
type ScheduleRetryParams struct {
	JobID         string
	Stage         model.Stage
	Delay         time.Duration
	NextAttemptAt time.Time
	ErrMsg        string
}

// FailStageParams groups parameters for JobStore.FailStage.
type FailStageParams struct {
	JobID  string
	Stage  model.Stage
	ErrMsg string
}

// JobStore defines the interface for job persistence. Every mutation is a
// conditional write: it succeeds only when the row is still in the state
// the caller observed, which is what makes concurrent redeliveries safe.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id string) (*model.Job, error)

	// ClaimStage atomically marks the stage in-flight, consumes any
	// pending retry, and takes a lease. Returns the updated job and
	// claimed=false when another delivery holds an unexpired lease, the
	// stage already completed, or the job is terminal.
	ClaimStage(ctx context.Context, params ClaimStageParams) (*model.Job, bool, error)

	// CompleteStage persists the stage result and appends the stage to the
	// completed order. Returns false when the claim was lost in the meantime.
	CompleteStage(ctx context.Context, params CompleteStageParams) (bool, error)

	// ScheduleRetry records the pending retry, increments the stage's
	// retry counter, and releases the lease so a later delivery can
	// reclaim the stage.
	ScheduleRetry(ctx context.Context, params ScheduleRetryParams) (bool, error)

	// DueRetries lists jobs whose pending retry has come due but whose
	// stage is not being executed, up to limit. These are retries whose
	// delayed publish never arrived.
	DueRetries(ctx context.Context, now time.Time, limit int) ([]*model.Job, error)

	// FailStage marks the job failed, recording the failing stage and error.
	FailStage(ctx context.Context, params FailStageParams) (bool, error)

	// ReplaceAssets swaps the asset link map, guarded by the refresh
	// counter the caller read. Returns false when a concurrent refresh won.
	ReplaceAssets(ctx context.Context, jobID string, assets map[string]model.AssetLink, expectedRefreshCount int) (bool, error)
}

// BlobStore defines the interface for artifact blob persistence.
type BlobStore interface {
	Put(ctx context.Context, obj *model.StoredObject) error
	Get(ctx context.Context, path string) (*model.StoredObject, error)
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// TaskPublisher defines the interface for re-enqueueing stage invocations.
// A zero delay publishes synchronously; a positive delay schedules the
// publish for later.
type TaskPublisher interface {
	Publish(ctx context.Context, inv model.TaskInvocation, delay time.Duration) error
}

// TextGenerator defines the interface for generative model calls. Enabled
// reports whether a model endpoint is configured; when it is not, stage
// executors fall back to deterministic template output.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, out any) error
	Enabled() bool
}

// KPIRepository defines the interface for post-drill metric persistence.
type KPIRepository interface {
	Insert(ctx context.Context, event *model.KPIEvent) (*model.KPIEvent, error)
	ListByJob(ctx context.Context, jobID string) ([]*model.KPIEvent, error)
}

// RegionCatalog defines the interface for the authoritative region data set.
type RegionCatalog interface {
	// DeriveKey maps a context ref or drill location onto a stable cache
	// key. An empty key means the request carries nothing to resolve by.
	DeriveKey(ref string, loc model.Location) string

	// Resolve finds the best-matching region for the ref or location.
	// Returns (nil, nil) when no region matches.
	Resolve(ctx context.Context, ref string, loc model.Location) (*model.RegionContext, error)
}
