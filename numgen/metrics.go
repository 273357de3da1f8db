package numgen

// Metrics 指标常量定义
const (
	// MetricIssued 已发放号码总数 (Counter)，标签: prefix, mode
	MetricIssued = "numgen_issued_total"

	// MetricModeTransitions 状态机模式切换总数 (Counter)，标签: prefix, from, to
	MetricModeTransitions = "numgen_mode_transitions_total"

	// MetricStoreLatency 计数器存储调用耗时秒数 (Histogram)，标签: op
	MetricStoreLatency = "numgen_store_op_seconds"
)
