package clog

import (
	"fmt"
	"sync"
)

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用开发环境默认配置。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("numkit")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(config)
	if err != nil {
		return nil, err
	}

	for _, o := range opts {
		logger = o(logger)
	}
	return logger, nil
}

// Option 函数式选项，用于配置 Logger 实例
type Option func(Logger) Logger

// WithNamespace 设置日志命名空间，支持多级命名空间
func WithNamespace(parts ...string) Option {
	return func(l Logger) Logger {
		return l.WithNamespace(parts...)
	}
}

var (
	defaultLogger Logger
	defaultOnce   sync.Once
)

// Default 返回进程级默认 Logger
//
// 未显式初始化时懒加载一个开发环境配置的实例，加载失败退化为 Discard。
func Default() Logger {
	defaultOnce.Do(func() {
		logger, err := New(NewDevDefaultConfig("numkit"))
		if err != nil {
			logger = Discard()
		}
		defaultLogger = logger
	})
	return defaultLogger
}
