package settlement

import (
	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/metrics"
)

// Option Settlement 组件初始化选项函数
type Option func(*options)

// options 选项结构（内部使用，小写）
type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("settlement")
		}
	}
}

// WithMeter 注入指标采集器
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}
