package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"

	"github.com/vendora-platform/vendora-core/cache/serializer"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// memEntry 单机驱动的条目：值字节加原子簿记
// 簿记就地更新，读取路径无须重写条目
type memEntry struct {
	data           []byte
	createdAt      int64
	hits           atomic.Int64
	lastAccessedAt atomic.Int64
}

type standaloneCache struct {
	*core
	cache *otter.Cache[string, *memEntry]
}

// defaultStandaloneTTL 未指定 TTL 时的基准过期时间，Set 时逐条覆盖
const defaultStandaloneTTL = 24 * time.Hour

// newStandalone 创建单机内存缓存实例
func newStandalone(cfg *Config, s serializer.Serializer, opt *options) (Cache, error) {
	capacity := 10000
	if cfg.Standalone != nil && cfg.Standalone.Capacity > 0 {
		capacity = cfg.Standalone.Capacity
	}

	// 写入过期策略与 Redis TTL 语义一致：读取不重置 TTL
	otterCache, err := otter.New(&otter.Options[string, *memEntry]{
		MaximumSize:      capacity,
		StatsRecorder:    stats.NewCounter(),
		ExpiryCalculator: otter.ExpiryWriting[string, *memEntry](defaultStandaloneTTL),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to build otter cache")
	}

	locker, owns, err := buildLocker(cfg, opt)
	if err != nil {
		return nil, err
	}

	return &standaloneCache{
		core:  newCore(cfg, s, locker, owns, "standalone", opt.Logger, opt.Meter),
		cache: otterCache,
	}, nil
}

func (c *standaloneCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}

	data, err := c.serializer.Marshal(value)
	if err != nil {
		return xerrors.Wrap(err, "failed to marshal value")
	}

	now := time.Now().UnixMilli()
	env := &memEntry{data: data, createdAt: now}
	env.lastAccessedAt.Store(now)

	c.cache.Set(c.cfg.Prefix+key, env)
	c.cache.SetExpiresAfter(c.cfg.Prefix+key, ttl)
	return nil
}

func (c *standaloneCache) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return ErrKeyEmpty
	}

	env, ok := c.cache.GetIfPresent(c.cfg.Prefix + key)
	if !ok {
		c.recordMiss(ctx)
		return ErrCacheMiss
	}

	if err := c.serializer.Unmarshal(env.data, dest); err != nil {
		return xerrors.Wrap(err, "failed to unmarshal value")
	}

	env.hits.Add(1)
	env.lastAccessedAt.Store(time.Now().UnixMilli())
	c.recordHit(ctx)
	return nil
}

func (c *standaloneCache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	c.cache.Invalidate(c.cfg.Prefix + key)
	return nil
}

func (c *standaloneCache) Has(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	_, ok := c.cache.GetIfPresent(c.cfg.Prefix + key)
	return ok, nil
}

func (c *standaloneCache) GetOrSet(ctx context.Context, key string, dest any, fn ComputeFunc, opts ...GetOrSetOption) error {
	return c.getOrSet(ctx, key, dest, fn, c.Get, c.Set, opts...)
}

func (c *standaloneCache) Close() error {
	c.cache.InvalidateAll()
	return c.close()
}
