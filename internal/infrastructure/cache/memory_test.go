package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

func TestKey(t *testing.T) {
	key := Key("v1", "Giao hàng nhanh")

	assert.True(t, strings.HasPrefix(key, "refinery:v1:"))
	assert.Len(t, strings.TrimPrefix(key, "refinery:v1:"), 64)
	assert.Equal(t, key, Key("v1", "Giao hàng nhanh"))
	assert.NotEqual(t, key, Key("v2", "Giao hàng nhanh"))
	assert.NotEqual(t, key, Key("v1", "giao hàng nhanh"))
}

func TestMemoryCache_GetSet(t *testing.T) {
	cache, err := NewMemoryCache(2, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "a", "giao_hàng"))
	value, ok, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "giao_hàng", value)

	assert.Equal(t, Stats{Hits: 1, Misses: 1}, cache.Stats())
}

func TestMemoryCache_Eviction(t *testing.T) {
	cache, err := NewMemoryCache(2, 0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "1"))
	require.NoError(t, cache.Set(ctx, "b", "2"))
	_, _, _ = cache.Get(ctx, "a")
	require.NoError(t, cache.Set(ctx, "c", "3"))

	assert.Equal(t, 2, cache.Len())
	_, ok, _ := cache.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok, _ = cache.Get(ctx, "a")
	assert.True(t, ok)

	cache.Purge()
	assert.Zero(t, cache.Len())
}

func TestMemoryCache_TTL(t *testing.T) {
	cache, err := NewMemoryCache(10, 20*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "1"))
	_, ok, _ := cache.Get(ctx, "a")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok, _ := cache.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_InvalidSize(t *testing.T) {
	_, err := NewMemoryCache(0, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidConfig))
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache, err := NewMemoryCache(100, 0)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%50)
				_ = cache.Set(ctx, key, key)
				if value, ok, _ := cache.Get(ctx, key); ok {
					assert.Equal(t, key, value)
				}
			}
		}(i)
	}
	wg.Wait()

	stats := cache.Stats()
	assert.EqualValues(t, 8*200, stats.Hits+stats.Misses)
}
