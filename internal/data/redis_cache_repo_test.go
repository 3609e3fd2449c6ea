package data

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/townready/townready/internal/testutil"
)

func TestRedisCacheRepo_SetGet(t *testing.T) {
	client := SetupCacheClient(t)
	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "region:shinjuku", []byte(`{"region_key":"shinjuku"}`), time.Minute))

	val, err := repo.Get(ctx, "region:shinjuku")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"region_key":"shinjuku"}`), val)

	// Missing keys are a nil result, not an error.
	val, err = repo.Get(ctx, "region:missing")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestRedisCacheRepo_Delete(t *testing.T) {
	client := SetupCacheClient(t)
	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), time.Minute))

	deleted, err := repo.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisCacheRepo_SetIfNotExists(t *testing.T) {
	client := SetupCacheClient(t)
	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	set, err := repo.SetIfNotExists(ctx, "delivery:abc", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, set)

	// Second writer loses while the key lives.
	set, err = repo.SetIfNotExists(ctx, "delivery:abc", []byte("2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, set)

	val, err := repo.Get(ctx, "delivery:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)
}

func TestRedisCacheRepo_EmptyKey(t *testing.T) {
	repo := NewRedisCacheRepo(nil)
	ctx := context.Background()

	assert.Error(t, repo.Set(ctx, "", []byte("v"), time.Minute))

	_, err := repo.Get(ctx, "")
	assert.Error(t, err)

	_, err = repo.Delete(ctx, "")
	assert.Error(t, err)

	_, err = repo.SetIfNotExists(ctx, "", []byte("v"), time.Minute)
	assert.Error(t, err)
}

func TestRedisCacheRepo_Health(t *testing.T) {
	client := SetupCacheClient(t)
	repo := NewRedisCacheRepo(client)

	assert.NoError(t, repo.Health(context.Background()))
}

// SetupCacheClient returns a flushed Redis client and closes it on cleanup.
func SetupCacheClient(t *testing.T) *redis.Client {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("redis close failed: %v", err)
		}
	})
	return client
}
