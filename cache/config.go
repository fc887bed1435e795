package cache

import (
	"strings"
	"time"
)

// Config 缓存组件统一配置
type Config struct {
	// Mode 缓存模式: "standalone" | "distributed" (默认 "distributed")
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Prefix 数据条目前缀 (默认 "cache:")
	// 必须与 LockPrefix 不相交，保证批量清理数据时不会误删锁
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// LockPrefix 回源锁前缀 (默认 "lock:")
	LockPrefix string `json:"lock_prefix" yaml:"lock_prefix" mapstructure:"lock_prefix"`

	// Serializer 值序列化方式: "json" | "msgpack" (默认 "json")
	Serializer string `json:"serializer" yaml:"serializer" mapstructure:"serializer"`

	// DefaultTTL 条目默认有效期 (默认 10m)，Set/GetOrSet 未显式指定时使用
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`

	// LockTTL 回源锁有效期 (默认 30s)
	// 持有者崩溃后锁在 TTL 到期时自动释放，等待方最终走降级路径
	LockTTL time.Duration `json:"lock_ttl" yaml:"lock_ttl" mapstructure:"lock_ttl"`

	// DisableStampedeProtection 关闭回源防击穿 (默认开启)
	DisableStampedeProtection bool `json:"disable_stampede_protection" yaml:"disable_stampede_protection" mapstructure:"disable_stampede_protection"`

	// Standalone 单机缓存配置
	Standalone *StandaloneConfig `json:"standalone" yaml:"standalone" mapstructure:"standalone"`
}

// StandaloneConfig 单机缓存配置
type StandaloneConfig struct {
	// Capacity 缓存最大容量（条目数，默认：10000）
	Capacity int `json:"capacity" yaml:"capacity" mapstructure:"capacity"`
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = "distributed"
	}
	if c.Prefix == "" {
		c.Prefix = "cache:"
	}
	if c.LockPrefix == "" {
		c.LockPrefix = "lock:"
	}
	if c.Serializer == "" {
		c.Serializer = "json"
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 10 * time.Minute
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if strings.HasPrefix(c.Prefix, c.LockPrefix) || strings.HasPrefix(c.LockPrefix, c.Prefix) {
		return ErrPrefixOverlap
	}
	return nil
}
