package clog

// Option Logger 初始化选项函数
type Option func(*options)

// options 选项结构（内部使用）
type options struct {
	namespace []string
}

// applyOptions 应用选项列表
func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithNamespace 设置初始命名空间
//
// 示例：
//
//	logger, _ := clog.New(cfg, clog.WithNamespace("vendora", "core"))
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespace = append(o.namespace, parts...)
	}
}
