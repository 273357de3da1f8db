// Package testkit 提供 numkit 各组件测试共用的依赖构造工具。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/numkit/clog"
	"github.com/ceyewan/numkit/metrics"
)

// NewLogger 返回一个用于测试的 logger，输出开发环境格式
func NewLogger() clog.Logger {
	logger, err := clog.New(clog.NewDevDefaultConfig("numkit"))
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个用于测试的 meter，不实际输出指标
func NewMeter() metrics.Meter {
	return metrics.Discard()
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
// 用于生成唯一的前缀键或 Redis 键后缀，避免测试间数据冲突
func NewID() string {
	return uuid.New().String()[0:8]
}
