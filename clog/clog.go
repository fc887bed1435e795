// Package clog 为 Vendora 平台提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，每个组件派生自己的子 Logger
//   - 零外部依赖（仅依赖 Go 标准库）
//   - 采用函数式选项模式，与平台其他组件保持一致
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("order settled", clog.String("date", "2026-08-30"))
//
// 组件内派生：
//
//	cacheLogger := logger.WithNamespace("cache")
//	cacheLogger.Warn("stampede fallback", clog.String("key", key))
package clog

import "fmt"

// New 创建一个新的 Logger 实例
//
// config - 日志配置，如果为 nil 会使用默认配置
// opts   - 函数式选项列表，用于命名空间等配置
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := applyOptions(opts...)

	return newLogger(config, options)
}

// Default 返回一个输出到 stdout 的 info 级别 Logger。
// 组件在未注入 Logger 时使用，不应在初始化阶段失败。
func Default() Logger {
	logger, err := New(DefaultConfig())
	if err != nil {
		return NewNoop()
	}
	return logger
}
