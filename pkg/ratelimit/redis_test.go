package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestRedisLimiter_AllowsWithinLimitThenBlocks(t *testing.T) {
	client := newTestRedis(t)
	cfg := Config{Enabled: true, Max: 2, Burst: 0, WindowSeconds: 60, OperationTimeout: 2 * time.Second}
	r := NewRedisLimiter(client, cfg)
	key := Key{Tag: KeyUser, Value: "u1"}

	for i := 0; i < 2; i++ {
		result, err := r.Check(context.Background(), key)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := r.Check(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestRedisLimiter_ResetClearsKey(t *testing.T) {
	client := newTestRedis(t)
	cfg := Config{Enabled: true, Max: 1, Burst: 0, WindowSeconds: 60, OperationTimeout: 2 * time.Second}
	r := NewRedisLimiter(client, cfg)
	key := Key{Tag: KeyIP, Value: "1.1.1.1"}

	_, err := r.Check(context.Background(), key)
	require.NoError(t, err)
	blocked, err := r.Check(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	require.NoError(t, r.Reset(context.Background(), key))
	result, err := r.Check(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedisLimiter_Disabled(t *testing.T) {
	client := newTestRedis(t)
	r := NewRedisLimiter(client, Config{Enabled: false, Max: 1, Burst: 0})
	result, err := r.Check(context.Background(), Key{Tag: KeyIP, Value: "x"})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
