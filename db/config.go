package db

import (
	"time"

	"github.com/vendora-platform/vendora-core/xerrors"
)

// Config DB 组件配置
type Config struct {
	// Driver 指定数据库驱动类型: "mysql" 或 "sqlite"
	// 默认值: "mysql"
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// SlowThreshold 慢查询阈值，超过该耗时的 SQL 以 Warn 级别记录
	// 默认值: 200ms
	SlowThreshold time.Duration `json:"slow_threshold" yaml:"slow_threshold" mapstructure:"slow_threshold"`
}

// setDefaults 设置配置的默认值（内部使用）
func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = "mysql"
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
}

// validate 验证配置的有效性（内部使用）
func (c *Config) validate() error {
	if c.Driver != "mysql" && c.Driver != "sqlite" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "unsupported driver: %s (must be 'mysql' or 'sqlite')", c.Driver)
	}
	return nil
}
