package metrics

// Config 指标系统配置
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "numkit-server"
//	  version: "v1.0.0"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 是否启用指标收集；为 false 时 New() 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 服务名称，作为 OTel Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 服务版本，作为 OTel Resource 的 service.version
	Version string `mapstructure:"version"`

	// Port Prometheus HTTP 服务器监听端口；大于 0 时启动暴露服务
	Port int `mapstructure:"port"`

	// Path Prometheus 指标的 HTTP 路径，必须以 "/" 开头
	Path string `mapstructure:"path"`
}

// NewDevDefaultConfig 返回开发/测试环境默认配置（禁用暴露端口）
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
	}
}
