package clog

import "context"

// noopLogger 丢弃所有日志的空实现
type noopLogger struct{}

// NewNoop 创建一个丢弃所有日志的 Logger，主要用于测试。
func NewNoop() Logger {
	return &noopLogger{}
}

func (n *noopLogger) Debug(msg string, fields ...Field) {}
func (n *noopLogger) Info(msg string, fields ...Field)  {}
func (n *noopLogger) Warn(msg string, fields ...Field)  {}
func (n *noopLogger) Error(msg string, fields ...Field) {}

func (n *noopLogger) DebugContext(ctx context.Context, msg string, fields ...Field) {}
func (n *noopLogger) InfoContext(ctx context.Context, msg string, fields ...Field)  {}
func (n *noopLogger) WarnContext(ctx context.Context, msg string, fields ...Field)  {}
func (n *noopLogger) ErrorContext(ctx context.Context, msg string, fields ...Field) {}

func (n *noopLogger) With(fields ...Field) Logger              { return n }
func (n *noopLogger) WithNamespace(parts ...string) Logger     { return n }
func (n *noopLogger) SetLevel(level Level) error               { return nil }
