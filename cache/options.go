package cache

import (
	"time"

	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/connector"
	"github.com/vendora-platform/vendora-core/dlock"
	"github.com/vendora-platform/vendora-core/metrics"
)

// Option 缓存组件选项函数
type Option func(*options)

// options 选项结构（内部使用）
type options struct {
	Logger    clog.Logger
	Meter     metrics.Meter
	RedisConn connector.RedisConnector
	Locker    dlock.Locker
}

// WithLogger 注入日志记录器
// 组件内部会自动追加 Namespace: logger.WithNamespace("cache")
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.Logger = l.WithNamespace("cache")
		}
	}
}

// WithMeter 注入指标 Meter
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		o.Meter = m
	}
}

// WithRedisConnector 注入 Redis 连接器 (仅用于分布式模式)
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.RedisConn = conn
	}
}

// WithLocker 注入自定义回源锁
// 默认情况下组件按 LockPrefix 自建 Locker；多个缓存实例共享一把锁时使用此选项
func WithLocker(l dlock.Locker) Option {
	return func(o *options) {
		o.Locker = l
	}
}

// GetOrSetOption GetOrSet 操作的选项函数
type GetOrSetOption func(*getOrSetOptions)

type getOrSetOptions struct {
	TTL               time.Duration
	DisableProtection bool
}

// WithTTL 指定本次写入的条目 TTL，覆盖 DefaultTTL
func WithTTL(d time.Duration) GetOrSetOption {
	return func(o *getOrSetOptions) {
		if d > 0 {
			o.TTL = d
		}
	}
}

// WithoutStampedeProtection 本次调用跳过回源锁，直接计算
func WithoutStampedeProtection() GetOrSetOption {
	return func(o *getOrSetOptions) {
		o.DisableProtection = true
	}
}
