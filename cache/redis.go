package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vendora-platform/vendora-core/cache/serializer"
	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/connector"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// entry 存储信封：值字节加读取簿记
// 簿记仅在读取路径更新，写入路径只重置
type entry struct {
	Value          []byte `json:"value" msgpack:"value"`
	Hits           int64  `json:"hits" msgpack:"hits"`
	CreatedAt      int64  `json:"created_at" msgpack:"created_at"`
	LastAccessedAt int64  `json:"last_accessed_at" msgpack:"last_accessed_at"`
}

type redisCache struct {
	*core
	client *redis.Client
}

// newRedis 创建 Redis 缓存实例
func newRedis(conn connector.RedisConnector, cfg *Config, s serializer.Serializer, opt *options) (Cache, error) {
	locker, owns, err := buildLocker(cfg, opt)
	if err != nil {
		return nil, err
	}

	return &redisCache{
		core:   newCore(cfg, s, locker, owns, "distributed", opt.Logger, opt.Meter),
		client: conn.GetClient(),
	}, nil
}

func (c *redisCache) dataKey(key string) string {
	return c.cfg.Prefix + key
}

func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
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
	env, err := c.serializer.Marshal(&entry{
		Value:          data,
		CreatedAt:      now,
		LastAccessedAt: now,
	})
	if err != nil {
		return xerrors.Wrap(err, "failed to marshal entry")
	}

	return c.client.Set(ctx, c.dataKey(key), env, ttl).Err()
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return ErrKeyEmpty
	}

	raw, err := c.client.Get(ctx, c.dataKey(key)).Bytes()
	if err == redis.Nil {
		c.recordMiss(ctx)
		return ErrCacheMiss
	}
	if err != nil {
		return xerrors.Wrap(err, "failed to get entry")
	}

	var env entry
	if err := c.serializer.Unmarshal(raw, &env); err != nil {
		return xerrors.Wrap(err, "failed to unmarshal entry")
	}
	if err := c.serializer.Unmarshal(env.Value, dest); err != nil {
		return xerrors.Wrap(err, "failed to unmarshal value")
	}

	c.recordHit(ctx)
	c.touch(ctx, key, &env)
	return nil
}

// touch 以 pipeline 回写读取簿记，保留剩余 TTL
// 簿记是尽力而为的观测数据，回写失败只记日志
// XX 模式保证只覆盖仍然存在的键：读取与回写之间过期的条目不会被复活成永久键
func (c *redisCache) touch(ctx context.Context, key string, env *entry) {
	env.Hits++
	env.LastAccessedAt = time.Now().UnixMilli()

	raw, err := c.serializer.Marshal(env)
	if err != nil {
		return
	}

	pipe := c.client.Pipeline()
	pipe.SetArgs(ctx, c.dataKey(key), raw, redis.SetArgs{Mode: "XX", KeepTTL: true})
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.DebugContext(ctx, "failed to update entry bookkeeping",
			clog.String("key", key), clog.Error(err))
	}
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return c.client.Del(ctx, c.dataKey(key)).Err()
}

func (c *redisCache) Has(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	n, err := c.client.Exists(ctx, c.dataKey(key)).Result()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to check entry")
	}
	return n > 0, nil
}

func (c *redisCache) GetOrSet(ctx context.Context, key string, dest any, fn ComputeFunc, opts ...GetOrSetOption) error {
	return c.getOrSet(ctx, key, dest, fn, c.Get, c.Set, opts...)
}

func (c *redisCache) Close() error {
	// 连接器是借用的，这里只释放组件自身的资源
	return c.close()
}
