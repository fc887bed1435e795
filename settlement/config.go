package settlement

import "time"

// DefaultFeeRate 平台默认手续费率 (2.5%)
const DefaultFeeRate = 0.025

// Config 组件静态配置
type Config struct {
	// FeeRate 手续费率，按可结算金额比例收取
	FeeRate float64 `json:"fee_rate" yaml:"fee_rate" mapstructure:"fee_rate"`

	// CronSpec 每日自动结算的 cron 表达式，结算前一个自然日
	CronSpec string `json:"cron_spec" yaml:"cron_spec" mapstructure:"cron_spec"`

	// LockPrefix 结算互斥锁的 Key 前缀
	LockPrefix string `json:"lock_prefix" yaml:"lock_prefix" mapstructure:"lock_prefix"`

	// LockTTL 单次结算持锁上限，超时后锁自动释放
	LockTTL time.Duration `json:"lock_ttl" yaml:"lock_ttl" mapstructure:"lock_ttl"`

	// HistoryLimit History 默认返回条数
	HistoryLimit int `json:"history_limit" yaml:"history_limit" mapstructure:"history_limit"`
}

func (c *Config) setDefaults() {
	if c.FeeRate <= 0 {
		c.FeeRate = DefaultFeeRate
	}
	if c.CronSpec == "" {
		// 每日凌晨两点结算前一天
		c.CronSpec = "0 2 * * *"
	}
	if c.LockPrefix == "" {
		c.LockPrefix = "settlement:"
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 5 * time.Minute
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 30
	}
}

func (c *Config) validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		return ErrInvalidFeeRate
	}
	return nil
}
