package dlock

import "time"

// Config 组件静态配置
type Config struct {
	// Prefix 锁 Key 的全局前缀，例如 "lock:"
	// 前缀必须与缓存数据前缀不相交，保证锁条目与数据条目互不覆盖
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// DefaultTTL 默认锁超时时间
	// 没有自动续期：持有者崩溃后锁在 TTL 到期时自动释放
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`

	// RetryInterval 加锁重试间隔 (仅 Lock 模式有效)
	RetryInterval time.Duration `json:"retry_interval" yaml:"retry_interval" mapstructure:"retry_interval"`
}

func (c *Config) setDefaults() {
	if c.Prefix == "" {
		c.Prefix = "lock:"
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 10 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 100 * time.Millisecond
	}
}

func (c *Config) validate() error {
	if c == nil {
		return ErrConfigNil
	}
	return nil
}
