package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/townready/townready/internal/data"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
	"github.com/townready/townready/internal/mocks"
	"github.com/townready/townready/internal/testutil"
)

func shinjukuContext() *model.RegionContext {
	return &model.RegionContext{
		RegionKey:     "shinjuku",
		MunicipalCode: "13104",
		HazardScores: map[model.HazardType]model.HazardScore{
			model.HazardEarthquake: {FeatureCount: 12, PeakMagnitude: 6.8},
		},
		Source:     model.RegionSourceCatalog,
		ResolvedAt: testutil.TestTime(),
	}
}

func shinjukuRequest() *model.DrillRequest {
	return &model.DrillRequest{
		Location:         model.Location{Address: "Shinjuku, Tokyo"},
		RegionContextRef: "shinjuku",
	}
}

func TestRegionResolver_CacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	catalog := mocks.NewMockRegionCatalog(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	resolver := NewRegionResolver(RegionResolverOptions{
		Catalog: catalog,
		Cache:   cache,
		TTL:     12 * time.Hour,
	})
	ctx := context.Background()
	req := shinjukuRequest()

	cached, err := json.Marshal(shinjukuContext())
	require.NoError(t, err)

	catalog.EXPECT().DeriveKey("shinjuku", req.Location).Return("shinjuku")
	cache.EXPECT().Get(ctx, "region_context:shinjuku").Return(cached, nil)

	rc, err := resolver.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "shinjuku", rc.RegionKey)
	assert.Equal(t, model.RegionSourceCache, rc.Source)
	assert.Equal(t, 12, rc.HazardScores[model.HazardEarthquake].FeatureCount)
}

func TestRegionResolver_SnapshotBeatsCatalog(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	catalog := mocks.NewMockRegionCatalog(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	resolver := NewRegionResolver(RegionResolverOptions{
		Catalog: catalog,
		Cache:   cache,
		TTL:     time.Hour,
	})
	ctx := context.Background()

	req := shinjukuRequest()
	snap := shinjukuContext()
	req.RegionContextSnapshot = snap

	catalog.EXPECT().DeriveKey("shinjuku", req.Location).Return("shinjuku")
	cache.EXPECT().Get(ctx, "region_context:shinjuku").Return(nil, nil)
	cache.EXPECT().Set(ctx, "region_context:shinjuku", gomock.Any(), time.Hour).Return(nil)

	rc, err := resolver.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.RegionSourceSnapshot, rc.Source)
	// The job's snapshot is not mutated.
	assert.Equal(t, model.RegionSourceCatalog, snap.Source)
}

func TestRegionResolver_CatalogAndCachePopulate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	catalog := mocks.NewMockRegionCatalog(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	resolver := NewRegionResolver(RegionResolverOptions{
		Catalog: catalog,
		Cache:   cache,
		TTL:     time.Hour,
	})
	ctx := context.Background()
	req := shinjukuRequest()

	catalog.EXPECT().DeriveKey("shinjuku", req.Location).Return("shinjuku")
	cache.EXPECT().Get(ctx, "region_context:shinjuku").Return(nil, nil)
	catalog.EXPECT().Resolve(ctx, "shinjuku", req.Location).Return(shinjukuContext(), nil)
	cache.EXPECT().Set(ctx, "region_context:shinjuku", gomock.Any(), time.Hour).Return(nil)

	rc, err := resolver.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.RegionSourceCatalog, rc.Source)
}

func TestRegionResolver_Fallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	catalog := mocks.NewMockRegionCatalog(ctrl)
	tp := data.NewFixedTimeProvider(testutil.TestTime())
	resolver := NewRegionResolver(RegionResolverOptions{
		Catalog:      catalog,
		TimeProvider: tp,
	})
	ctx := context.Background()
	req := &model.DrillRequest{Location: model.Location{Address: "nowhere"}}

	catalog.EXPECT().DeriveKey("", req.Location).Return("")
	catalog.EXPECT().Resolve(ctx, "", req.Location).Return(nil, nil)

	rc, err := resolver.Resolve(ctx, req)
	require.NoError(t, err)
	assert.True(t, rc.IsFallback())
	assert.Empty(t, rc.RegionKey)
	assert.Empty(t, rc.HazardScores)
	assert.True(t, rc.ResolvedAt.Equal(testutil.TestTime()))
}

func TestRegionResolver_CacheErrorsDegrade(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	catalog := mocks.NewMockRegionCatalog(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	resolver := NewRegionResolver(RegionResolverOptions{
		Catalog: catalog,
		Cache:   cache,
		TTL:     time.Hour,
	})
	ctx := context.Background()
	req := shinjukuRequest()

	catalog.EXPECT().DeriveKey("shinjuku", req.Location).Return("shinjuku")
	cache.EXPECT().Get(ctx, "region_context:shinjuku").Return(nil, errors.New("redis down"))
	catalog.EXPECT().Resolve(ctx, "shinjuku", req.Location).Return(shinjukuContext(), nil)
	cache.EXPECT().Set(ctx, "region_context:shinjuku", gomock.Any(), time.Hour).Return(errors.New("still down"))

	rc, err := resolver.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.RegionSourceCatalog, rc.Source)
}

func TestRegionResolver_CorruptCacheEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	catalog := mocks.NewMockRegionCatalog(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	resolver := NewRegionResolver(RegionResolverOptions{
		Catalog: catalog,
		Cache:   cache,
		TTL:     time.Hour,
	})
	ctx := context.Background()
	req := shinjukuRequest()

	catalog.EXPECT().DeriveKey("shinjuku", req.Location).Return("shinjuku")
	cache.EXPECT().Get(ctx, "region_context:shinjuku").Return([]byte("{corrupt"), nil)
	cache.EXPECT().Delete(ctx, "region_context:shinjuku").Return(true, nil)
	catalog.EXPECT().Resolve(ctx, "shinjuku", req.Location).Return(shinjukuContext(), nil)
	cache.EXPECT().Set(ctx, "region_context:shinjuku", gomock.Any(), time.Hour).Return(nil)

	rc, err := resolver.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.RegionSourceCatalog, rc.Source)
}

func TestRegionResolver_CatalogErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	catalog := mocks.NewMockRegionCatalog(ctrl)
	resolver := NewRegionResolver(RegionResolverOptions{Catalog: catalog})
	ctx := context.Background()
	req := &model.DrillRequest{Location: model.Location{Address: "Shinjuku"}}

	catalog.EXPECT().DeriveKey("", req.Location).Return("shinjuku")
	catalog.EXPECT().Resolve(ctx, "", req.Location).
		Return(nil, apperrors.Unavailable("catalog volume unreadable"))

	_, err := resolver.Resolve(ctx, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}
