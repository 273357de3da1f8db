// Package metrics 为 numkit 提供统一的指标收集能力。
// 基于 OpenTelemetry 标准构建，提供简洁的 Counter、Gauge、Histogram 指标接口，
// 内置 Prometheus HTTP 服务器，支持指标自动暴露。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "numkit-server",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("numgen_issued_total", "已发放号码总数")
//	counter.Inc(ctx, metrics.L("prefix", "ORDER"), metrics.L("mode", "normal"))
package metrics

import "context"

// Meter 指标工厂接口
type Meter interface {
	// Counter 创建计数器，用于只增不减的累计值
	Counter(name string, desc string) (Counter, error)

	// Gauge 创建仪表盘，用于可任意增减的瞬时值
	Gauge(name string, desc string) (Gauge, error)

	// Histogram 创建直方图，用于观察值的分布（如耗时）
	Histogram(name string, desc string) (Histogram, error)

	// Shutdown 关闭 Meter，刷新所有指标。通常在进程退出时调用。
	Shutdown(ctx context.Context) error
}

// Counter 计数器接口
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值（应为正数）
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口
type Gauge interface {
	// Set 将 gauge 设置为给定的值
	Set(ctx context.Context, val float64, labels ...Label)
}

// Histogram 直方图接口
type Histogram interface {
	// Record 记录一个观察值
	Record(ctx context.Context, val float64, labels ...Label)
}

// Label 指标标签，为指标添加维度信息
//
// 标签值应相对稳定，避免高基数标签（如请求 ID）。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数，创建一个 Label 实例
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
