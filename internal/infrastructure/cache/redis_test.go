package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alejandroruanova/review-refinery/internal/pkg/config"
	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

func startRedis(t *testing.T) *config.CacheConfig {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return &config.CacheConfig{
		Host:         host,
		Port:         port.Int(),
		DialTimeout:  5,
		ReadTimeout:  3,
		WriteTimeout: 3,
		PoolSize:     4,
		TTLSeconds:   60,
	}
}

func TestRedisCache(t *testing.T) {
	cfg := startRedis(t)

	cache, err := NewRedisCache(cfg, nil)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	key := Key("v1", "Hàng đẹp")

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, "hàng đẹp"))
	value, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hàng đẹp", value)

	ttl, err := cache.TTL(ctx, key)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Delete(ctx, key))
	_, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, Stats{Hits: 1, Misses: 2}, cache.Stats())
	assert.Equal(t, "up", cache.Health(ctx)["status"])
}

func TestRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache(&config.CacheConfig{Host: "127.0.0.1", Port: 1, DialTimeout: 1}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCacheError))
}
