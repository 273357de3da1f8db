// Package clog 为 numkit 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，适配多组件服务
//   - 零外部依赖（仅依赖 Go 标准库）
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("number issued", clog.String("prefix", "ORDER"))
package clog

// Logger 日志接口，提供结构化日志记录功能
//
// 支持五个日志级别：Debug、Info、Warn、Error、Fatal。
//
// 创建子 Logger：
//
//	child := logger.With(clog.String("component", "numgen"))
//	namespaced := logger.WithNamespace("server", "api")
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal 记录日志后以退出码 1 终止进程
	Fatal(msg string, fields ...Field)

	// With 返回携带固定字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 返回携带命名空间的子 Logger，多级以 "." 连接
	WithNamespace(parts ...string) Logger
}
