// Package cache 提供带防击穿回源的缓存组件。
//
// 核心能力：
//   - 统一的 Cache 接口，Redis（分布式）与 otter（单机内存）两种驱动
//   - GetOrSet 回源防击穿：未命中时只有抢到回源锁的调用方执行计算，
//     其余调用方短暂等待复查，等待耗尽后降级自行计算
//   - 条目信封携带 hits / last_accessed_at 簿记，仅在读取路径更新
//   - 数据前缀与锁前缀强制不相交，批量清理互不波及
//   - 周期清扫协程上报聚合命中统计（仅观测用途）
//
// 基本使用：
//
//	cacheClient, _ := cache.New(&cache.Config{
//	    Prefix:     "cache:",
//	    Serializer: "msgpack",
//	}, cache.WithRedisConnector(redisConn), cache.WithLogger(logger))
//	defer cacheClient.Close()
//
//	var vendor Vendor
//	err := cacheClient.GetOrSet(ctx, "vendor:1001", &vendor, func(ctx context.Context) (any, error) {
//	    return loadVendorFromDB(ctx, 1001)
//	}, cache.WithTTL(10*time.Minute))
package cache

import (
	"context"
	"time"

	"github.com/vendora-platform/vendora-core/cache/serializer"
	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/dlock"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// Cache 定义了缓存组件的核心能力
type Cache interface {
	// Set 写入条目。写入路径不做簿记更新
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Get 读取条目并反序列化到 dest
	// 未命中返回 ErrCacheMiss；命中时顺带更新条目的 hits / last_accessed_at
	Get(ctx context.Context, key string, dest any) error

	// Delete 删除条目，条目不存在不报错
	Delete(ctx context.Context, key string) error

	// Has 检查条目是否存在，不更新簿记
	Has(ctx context.Context, key string) (bool, error)

	// GetOrSet 读取条目，未命中时通过 fn 回源计算并写入
	// 默认启用防击穿：并发未命中时只有锁持有者计算
	GetOrSet(ctx context.Context, key string, dest any, fn ComputeFunc, opts ...GetOrSetOption) error

	// Stats 返回聚合统计快照（仅观测）
	Stats() Stats

	// StartSweeper 启动周期清扫协程，定期上报聚合统计
	StartSweeper(interval time.Duration)

	// Close 停止清扫协程并释放组件资源，不关闭借用的连接器
	Close() error
}

// New 根据配置创建缓存实例
//
// Mode 为 "standalone" 时创建 otter 本地内存缓存；
// Mode 为 "distributed"（默认）时创建 Redis 缓存，
// 需要通过 WithRedisConnector 注入连接器。
func New(cfg *Config, opts ...Option) (Cache, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.Logger == nil {
		opt.Logger = clog.Default().WithNamespace("cache")
	}

	s, err := serializer.New(cfg.Serializer)
	if err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case "standalone":
		return newStandalone(cfg, s, &opt)
	case "distributed":
		if opt.RedisConn == nil {
			return nil, xerrors.Wrap(ErrConnectorNil, "use WithRedisConnector for distributed mode")
		}
		return newRedis(opt.RedisConn, cfg, s, &opt)
	default:
		return nil, xerrors.New("cache: unsupported mode: " + cfg.Mode)
	}
}

// buildLocker 按配置创建回源锁，注入的 Locker 优先
func buildLocker(cfg *Config, opt *options) (dlock.Locker, bool, error) {
	if opt.Locker != nil {
		return opt.Locker, false, nil
	}

	lockCfg := &dlock.Config{
		Prefix:     cfg.LockPrefix,
		DefaultTTL: cfg.LockTTL,
	}

	var (
		locker dlock.Locker
		err    error
	)
	if cfg.Mode == "standalone" {
		locker, err = dlock.NewMemory(lockCfg)
	} else {
		locker, err = dlock.NewRedis(opt.RedisConn, lockCfg, dlock.WithLogger(opt.Logger))
	}
	if err != nil {
		return nil, false, err
	}
	return locker, true, nil
}
