package metrics

// Config 指标系统配置
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "vendora-core"
//	  version: "v1.0.0"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 是否启用指标收集。
	// 为 false 时 metrics.New() 返回 noop Meter，所有操作都是空操作。
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 服务名称，作为 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 服务版本，作为 OpenTelemetry Resource 的 service.version
	Version string `mapstructure:"version"`

	// Port Prometheus HTTP 服务器监听端口，大于 0 时启动内置服务器
	Port int `mapstructure:"port"`

	// Path Prometheus 指标的 HTTP 路径，如 "/metrics"
	Path string `mapstructure:"path"`
}
