package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vendorProfile struct {
	ID     int     `json:"id" msgpack:"id"`
	Name   string  `json:"name" msgpack:"name"`
	Rating float64 `json:"rating" msgpack:"rating"`
}

func newStandaloneCache(t *testing.T, cfg *Config) Cache {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Mode = "standalone"
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrConfigNil)
}

func TestNew_DistributedRequiresConnector(t *testing.T) {
	_, err := New(&Config{Mode: "distributed"})
	assert.ErrorIs(t, err, ErrConnectorNil)
}

func TestConfig_PrefixOverlapRejected(t *testing.T) {
	_, err := New(&Config{Mode: "standalone", Prefix: "app:", LockPrefix: "app:lock:"})
	assert.ErrorIs(t, err, ErrPrefixOverlap)

	_, err = New(&Config{Mode: "standalone", Prefix: "cache:", LockPrefix: "cache:"})
	assert.ErrorIs(t, err, ErrPrefixOverlap)
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newStandaloneCache(t, nil)
	ctx := context.Background()

	want := vendorProfile{ID: 1001, Name: "Golden Wok", Rating: 4.7}
	require.NoError(t, c.Set(ctx, "vendor:1001", want, time.Minute))

	var got vendorProfile
	require.NoError(t, c.Get(ctx, "vendor:1001", &got))
	assert.Equal(t, want, got)
}

func TestGet_Miss(t *testing.T) {
	c := newStandaloneCache(t, nil)

	var got vendorProfile
	err := c.Get(context.Background(), "vendor:absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDeleteAndHas(t *testing.T) {
	c := newStandaloneCache(t, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	ok, err := c.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	// 删除不存在的条目不报错
	require.NoError(t, c.Delete(ctx, "k"))

	ok, err = c.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOrSet_HitSkipsCompute(t *testing.T) {
	c := newStandaloneCache(t, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "vendor:1", vendorProfile{ID: 1, Name: "cached"}, time.Minute))

	var got vendorProfile
	err := c.GetOrSet(ctx, "vendor:1", &got, func(ctx context.Context) (any, error) {
		t.Fatal("compute must not run on hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", got.Name)
}

func TestGetOrSet_MissComputesAndStores(t *testing.T) {
	c := newStandaloneCache(t, nil)
	ctx := context.Background()

	var got vendorProfile
	err := c.GetOrSet(ctx, "vendor:2", &got, func(ctx context.Context) (any, error) {
		return vendorProfile{ID: 2, Name: "computed"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "computed", got.Name)

	// 第二次直接命中
	var again vendorProfile
	err = c.GetOrSet(ctx, "vendor:2", &again, func(ctx context.Context) (any, error) {
		t.Fatal("compute must not run after fill")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestGetOrSet_ComputeErrorCachesNothingAndReleasesLock(t *testing.T) {
	c := newStandaloneCache(t, nil)
	ctx := context.Background()
	wantErr := errors.New("upstream unavailable")

	var got vendorProfile
	err := c.GetOrSet(ctx, "vendor:3", &got, func(ctx context.Context) (any, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	ok, err := c.Has(ctx, "vendor:3")
	require.NoError(t, err)
	assert.False(t, ok, "failed compute must not cache anything")

	// 锁已释放：立即重试不会落入等待路径
	start := time.Now()
	err = c.GetOrSet(ctx, "vendor:3", &got, func(ctx context.Context) (any, error) {
		return vendorProfile{ID: 3, Name: "recovered"}, nil
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 90*time.Millisecond, "lock must be free after a failed compute")
	assert.Equal(t, "recovered", got.Name)
}

func TestGetOrSet_StampedeSingleCompute(t *testing.T) {
	c := newStandaloneCache(t, nil)
	ctx := context.Background()

	var computes atomic.Int32
	var wg sync.WaitGroup

	const goroutines = 20
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got vendorProfile
			err := c.GetOrSet(ctx, "hot:vendor", &got, func(ctx context.Context) (any, error) {
				computes.Add(1)
				time.Sleep(20 * time.Millisecond)
				return vendorProfile{ID: 7, Name: "hot"}, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "hot", got.Name)
		}()
	}
	wg.Wait()

	// 防击穿上界：持有者一次，最多加两个降级批次
	assert.LessOrEqual(t, computes.Load(), int32(3), "stampede must be bounded")
}

func TestGetOrSet_DegradedPathAfterWaits(t *testing.T) {
	c := newStandaloneCache(t, nil)
	ctx := context.Background()

	holderStarted := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var got vendorProfile
		_ = c.GetOrSet(ctx, "slow:key", &got, func(ctx context.Context) (any, error) {
			close(holderStarted)
			<-release
			return vendorProfile{Name: "holder"}, nil
		})
	}()

	<-holderStarted

	// 持有者长时间不回填，等待方 100ms+200ms 复查后降级自行计算
	var got vendorProfile
	start := time.Now()
	err := c.GetOrSet(ctx, "slow:key", &got, func(ctx context.Context) (any, error) {
		return vendorProfile{Name: "degraded"}, nil
	})
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, "degraded", got.Name)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond, "both wait rounds must elapse first")

	close(release)
	wg.Wait()

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.LockContentions)
	assert.EqualValues(t, 1, stats.DegradedComputes)
}

func TestGetOrSet_WithoutProtection(t *testing.T) {
	c := newStandaloneCache(t, nil)
	ctx := context.Background()

	var got string
	err := c.GetOrSet(ctx, "plain", &got, func(ctx context.Context) (any, error) {
		return "value", nil
	}, WithoutStampedeProtection())
	require.NoError(t, err)
	assert.Equal(t, "value", got)
}

func TestStats_CountsHitsAndMisses(t *testing.T) {
	c := newStandaloneCache(t, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))

	var v int
	require.NoError(t, c.Get(ctx, "k", &v))
	require.NoError(t, c.Get(ctx, "k", &v))
	assert.ErrorIs(t, c.Get(ctx, "absent", &v), ErrCacheMiss)

	stats := c.Stats()
	assert.EqualValues(t, 2, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRatio(), 0.001)
}

func TestMsgpackSerializerRoundTrip(t *testing.T) {
	c := newStandaloneCache(t, &Config{Serializer: "msgpack"})
	ctx := context.Background()

	want := vendorProfile{ID: 5, Name: "Noodle House", Rating: 4.2}
	require.NoError(t, c.Set(ctx, "vendor:5", want, time.Minute))

	var got vendorProfile
	require.NoError(t, c.Get(ctx, "vendor:5", &got))
	assert.Equal(t, want, got)
}

func TestStartSweeper_IdempotentAndStopsOnClose(t *testing.T) {
	c := newStandaloneCache(t, nil)

	c.StartSweeper(10 * time.Millisecond)
	c.StartSweeper(10 * time.Millisecond) // 重复启动是无操作

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, c.Close())
}
