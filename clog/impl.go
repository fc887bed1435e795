package clog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// slogLogger 基于 slog 的 Logger 实现（非导出）
type slogLogger struct {
	handler   slog.Handler
	levelVar  *slog.LevelVar
	namespace string
	fields    []Field
}

// newLogger 创建 Logger 实例（内部函数）
func newLogger(cfg *Config, opts *options) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(level.toSlog())

	writer, err := resolveOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(writer, handlerOpts)
	}

	return &slogLogger{
		handler:   handler,
		levelVar:  levelVar,
		namespace: strings.Join(opts.namespace, "."),
	}, nil
}

// resolveOutput 解析输出目标：stdout、stderr 或文件路径
func resolveOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout", "":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
		}
		return f, nil
	}
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if !l.handler.Enabled(ctx, level) {
		return
	}

	attrs := make([]Field, 0, len(l.fields)+len(fields)+1)
	if l.namespace != "" {
		attrs = append(attrs, slog.String("namespace", l.namespace))
	}
	attrs = append(attrs, l.fields...)
	attrs = append(attrs, fields...)

	slog.New(l.handler).LogAttrs(ctx, level, msg, attrs...)
}

func (l *slogLogger) Debug(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Info(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Warn(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Error(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelError, msg, fields)
}

func (l *slogLogger) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *slogLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	clone := *l
	clone.fields = append(append([]Field(nil), l.fields...), fields...)
	return &clone
}

func (l *slogLogger) WithNamespace(parts ...string) Logger {
	if len(parts) == 0 {
		return l
	}
	clone := *l
	joined := strings.Join(parts, ".")
	if l.namespace != "" {
		clone.namespace = l.namespace + "." + joined
	} else {
		clone.namespace = joined
	}
	return &clone
}

func (l *slogLogger) SetLevel(level Level) error {
	l.levelVar.Set(level.toSlog())
	return nil
}
