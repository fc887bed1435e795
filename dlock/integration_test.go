//go:build integration

package dlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora-platform/vendora-core/testkit"
)

func newRedisLocker(t *testing.T) Locker {
	t.Helper()
	conn := testkit.NewRedisConnector(t)
	locker, err := NewRedis(conn, &Config{
		Prefix:        "test:lock:" + testkit.NewID() + ":",
		DefaultTTL:    2 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}, WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = locker.Close() })
	return locker
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	locker := newRedisLocker(t)
	ctx := context.Background()

	ok, err := locker.TryLock(ctx, "inv:42")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = locker.TryLock(ctx, "inv:42")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Unlock(ctx, "inv:42"))

	ok, err = locker.TryLock(ctx, "inv:42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_TTLExpiry(t *testing.T) {
	locker := newRedisLocker(t)
	ctx := context.Background()

	ok, err := locker.TryLock(ctx, "inv:ttl", WithTTL(500*time.Millisecond))
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(700 * time.Millisecond)

	// 持有者未释放，TTL 到期后锁可被重新获取
	ok, err = locker.TryLock(ctx, "inv:ttl")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_UnlockAfterExpiryIsNil(t *testing.T) {
	locker := newRedisLocker(t)
	ctx := context.Background()

	ok, err := locker.TryLock(ctx, "inv:expired", WithTTL(300*time.Millisecond))
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(500 * time.Millisecond)

	assert.NoError(t, locker.Unlock(ctx, "inv:expired"))
}

func TestRedisLocker_CrossInstance(t *testing.T) {
	// 两个 Locker 实例共享同一个前缀，模拟多实例部署
	conn := testkit.NewRedisConnector(t)
	prefix := "test:lock:" + testkit.NewID() + ":"

	newLocker := func() Locker {
		locker, err := NewRedis(conn, &Config{
			Prefix:        prefix,
			DefaultTTL:    2 * time.Second,
			RetryInterval: 50 * time.Millisecond,
		}, WithLogger(testkit.NewLogger()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = locker.Close() })
		return locker
	}

	a := newLocker()
	b := newLocker()
	ctx := context.Background()

	ok, err := a.TryLock(ctx, "settlement:2026-08-30")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.TryLock(ctx, "settlement:2026-08-30")
	require.NoError(t, err)
	assert.False(t, ok, "instance B must not acquire a lock held by instance A")

	// 非持有者释放是无操作，不影响 A 的锁
	require.NoError(t, b.Unlock(ctx, "settlement:2026-08-30"))
	ok, err = b.TryLock(ctx, "settlement:2026-08-30")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Unlock(ctx, "settlement:2026-08-30"))
	ok, err = b.TryLock(ctx, "settlement:2026-08-30")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_ConcurrentSingleWinner(t *testing.T) {
	locker := newRedisLocker(t)
	ctx := context.Background()

	const goroutines = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := locker.TryLock(ctx, "hot-key")
			require.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
