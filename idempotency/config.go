package idempotency

import (
	"time"

	"github.com/vendora-platform/vendora-core/xerrors"
)

// DriverType 幂等组件驱动类型
type DriverType string

const (
	// DriverRedis 使用 Redis 作为后端
	DriverRedis DriverType = "redis"
	// DriverMemory 使用内存作为后端（仅单机 / 测试）
	DriverMemory DriverType = "memory"
)

// Config 幂等性组件配置
type Config struct {
	// Driver 后端类型: "redis" | "memory" (默认 "redis")
	Driver DriverType `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Prefix 存储键前缀，默认 "idempotency:"
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// AcquireTTL 处理中记录的初始有效期，默认 5m
	// 记录以此 TTL 创建（或接管）；持有者崩溃且无人接管时，
	// 记录最迟在 AcquireTTL 到期后消失，键重新可用
	AcquireTTL time.Duration `json:"acquire_ttl" yaml:"acquire_ttl" mapstructure:"acquire_ttl"`

	// DefaultTTL 已落定记录的有效期，默认 24h
	// 结果落定时记录 TTL 延长至此值；超过后记录整体消失，
	// 后续相同请求将重新执行
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`

	// ProcessingWindow 处理窗口，默认 30s
	// 处理中的记录在窗口内拒绝重复请求；超过窗口视为持有者已崩溃，
	// 新请求原子接管记录并重新执行
	ProcessingWindow time.Duration `json:"processing_window" yaml:"processing_window" mapstructure:"processing_window"`
}

func (c *Config) setDefaults() {
	if c == nil {
		return
	}
	if c.Driver == "" {
		c.Driver = DriverRedis
	}
	if c.Prefix == "" {
		c.Prefix = "idempotency:"
	}
	if c.AcquireTTL <= 0 {
		c.AcquireTTL = 5 * time.Minute
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 24 * time.Hour
	}
	if c.ProcessingWindow <= 0 {
		c.ProcessingWindow = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c == nil {
		return ErrConfigNil
	}
	switch c.Driver {
	case DriverRedis, DriverMemory:
		return nil
	default:
		return xerrors.New("idempotency: unsupported driver: " + string(c.Driver))
	}
}
