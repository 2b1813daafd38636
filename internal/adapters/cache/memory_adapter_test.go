package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/facetedsearch/internal/domain/providers"
)

func TestMemoryAdapter_SetGet(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemoryAdapter(10)
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "search:abc", []byte(`{"total_count":3}`), 60))

	got, err := cache.Get(ctx, "search:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"total_count":3}`, string(got))

	_, err = cache.Get(ctx, "search:missing")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestMemoryAdapter_Expiry(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemoryAdapter(10)
	require.NoError(t, err)

	now := time.Date(2012, 12, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 30))
	now = now.Add(29 * time.Second)
	_, err = cache.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = cache.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestMemoryAdapter_Eviction(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemoryAdapter(2)
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, cache.Set(ctx, "c", []byte("3"), 0))

	_, err = cache.Get(ctx, "a")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
	_, err = cache.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryAdapter_DeletePattern(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemoryAdapter(10)
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "http:cache:search:1", []byte("1"), 0))
	require.NoError(t, cache.Set(ctx, "http:cache:search:2", []byte("2"), 0))
	require.NoError(t, cache.Set(ctx, "http:cache:facets:1", []byte("3"), 0))

	n, err := cache.DeletePattern(ctx, "http:cache:search:*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = cache.Get(ctx, "http:cache:facets:1")
	assert.NoError(t, err)

	require.NoError(t, cache.Delete(ctx, "http:cache:facets:1"))
	_, err = cache.Get(ctx, "http:cache:facets:1")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}
