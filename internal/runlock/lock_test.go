package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestAcquireAndRelease(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	lock := NewLock(client, "etl:lock", time.Minute, zap.NewNop())
	require.NoError(t, lock.Acquire(ctx))
	require.NoError(t, lock.Release(ctx))

	// 释放后可重新获取
	lock2 := NewLock(client, "etl:lock", time.Minute, zap.NewNop())
	assert.NoError(t, lock2.Acquire(ctx))
}

func TestAcquireHeld(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	first := NewLock(client, "etl:lock", time.Minute, zap.NewNop())
	require.NoError(t, first.Acquire(ctx))

	second := NewLock(client, "etl:lock", time.Minute, zap.NewNop())
	assert.ErrorIs(t, second.Acquire(ctx), ErrHeld)
}

func TestReleaseOnlyOwnToken(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	first := NewLock(client, "etl:lock", time.Minute, zap.NewNop())
	require.NoError(t, first.Acquire(ctx))

	// 模拟锁过期后被另一次运行接管
	require.NoError(t, client.Set(ctx, "etl:lock", "other-token", time.Minute).Err())

	// 释放不报错，但不能删掉别人的锁
	require.NoError(t, first.Release(ctx))
	val, err := client.Get(ctx, "etl:lock").Result()
	require.NoError(t, err)
	assert.Equal(t, "other-token", val)
}
