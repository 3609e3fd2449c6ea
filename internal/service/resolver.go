package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/data"
	"github.com/townready/townready/internal/domain/model"
)

// regionCacheKeyPrefix namespaces region context entries in the shared cache.
const regionCacheKeyPrefix = "region_context:"

// RegionResolverOptions groups dependencies for RegionResolver.
type RegionResolverOptions struct {
	Catalog core.RegionCatalog
	Cache   core.CacheRepository // Optional: resolver works without a cache
	TTL     time.Duration

	Logger       *slog.Logger
	TimeProvider data.TimeProvider
}

// RegionResolver resolves the hazard context for a drill request through a
// layered lookup: cache, payload snapshot, catalog, synthesized fallback.
// It always returns a usable context; only infrastructure failures surface
// as errors.
type RegionResolver struct {
	catalog core.RegionCatalog
	cache   core.CacheRepository
	ttl     time.Duration

	logger       *slog.Logger
	timeProvider data.TimeProvider
}

// NewRegionResolver constructs a RegionResolver.
func NewRegionResolver(opts RegionResolverOptions) *RegionResolver {
	if opts.Catalog == nil {
		panic("RegionCatalog is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	return &RegionResolver{
		catalog:      opts.Catalog,
		cache:        opts.Cache,
		ttl:          opts.TTL,
		logger:       logger,
		timeProvider: tp,
	}
}

// Resolve returns the region context for the request. A degraded cache is
// logged and skipped, never fatal; catalog I/O failures propagate so the
// caller can classify them as retryable.
func (r *RegionResolver) Resolve(ctx context.Context, req *model.DrillRequest) (*model.RegionContext, error) {
	key := r.catalog.DeriveKey(req.RegionContextRef, req.Location)

	if key != "" {
		if cached := r.fromCache(ctx, key); cached != nil {
			return cached, nil
		}
	}

	if snap := req.RegionContextSnapshot; snap != nil && snap.RegionKey != "" {
		resolved := *snap
		resolved.Source = model.RegionSourceSnapshot
		r.store(ctx, key, &resolved)
		return &resolved, nil
	}

	resolved, err := r.catalog.Resolve(ctx, req.RegionContextRef, req.Location)
	if err != nil {
		return nil, fmt.Errorf("catalog resolve: %w", err)
	}
	if resolved != nil {
		r.store(ctx, key, resolved)
		return resolved, nil
	}

	// A clean no-match degrades to the synthesized default, which carries
	// no region key and is never cached.
	r.logger.InfoContext(ctx, "no region matched, using fallback context",
		"ref", req.RegionContextRef,
		"address", req.Location.Address,
	)
	return model.FallbackRegionContext(r.timeProvider.Now().UTC()), nil
}

// Invalidate drops the cached context for a key.
func (r *RegionResolver) Invalidate(ctx context.Context, key string) {
	if r.cache == nil || key == "" {
		return
	}
	if _, err := r.cache.Delete(ctx, regionCacheKeyPrefix+key); err != nil {
		r.logger.WarnContext(ctx, "region cache invalidate failed", "key", key, "err", err)
	}
}

func (r *RegionResolver) fromCache(ctx context.Context, key string) *model.RegionContext {
	if r.cache == nil {
		return nil
	}

	raw, err := r.cache.Get(ctx, regionCacheKeyPrefix+key)
	if err != nil {
		r.logger.WarnContext(ctx, "region cache read failed", "key", key, "err", err)
		return nil
	}
	if raw == nil {
		return nil
	}

	var rc model.RegionContext
	if err := json.Unmarshal(raw, &rc); err != nil {
		r.logger.WarnContext(ctx, "region cache entry corrupt, dropping", "key", key, "err", err)
		r.Invalidate(ctx, key)
		return nil
	}

	rc.Source = model.RegionSourceCache
	return &rc
}

// store caches a keyed resolution best-effort.
func (r *RegionResolver) store(ctx context.Context, key string, rc *model.RegionContext) {
	if r.cache == nil || key == "" {
		return
	}

	raw, err := json.Marshal(rc)
	if err != nil {
		r.logger.WarnContext(ctx, "region context marshal failed", "key", key, "err", err)
		return
	}
	if err := r.cache.Set(ctx, regionCacheKeyPrefix+key, raw, r.ttl); err != nil {
		r.logger.WarnContext(ctx, "region cache write failed", "key", key, "err", err)
	}
}
