package numgen

import (
	"github.com/ceyewan/numkit/clog"
	"github.com/ceyewan/numkit/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置
type options struct {
	Logger clog.Logger
	Meter  metrics.Meter
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.Logger = logger
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.Meter = meter
	}
}
