// Package config 为 numkit 提供统一的配置管理能力。
// 支持多源配置加载和热更新通知，基于 Viper 实现。
//
// 配置优先级：环境变量 > .env 文件 > 配置文件。
//
// 基本使用：
//
//	loader, err := config.New(&config.Config{
//		Name:      "config",
//		Paths:     []string{".", "./config"},
//		EnvPrefix: "NUMKIT",
//	})
//	if err != nil {
//		panic(err)
//	}
//	if err := loader.Load(ctx); err != nil {
//		panic(err)
//	}
//
//	var cfg AppConfig
//	if err := loader.Unmarshal(&cfg); err != nil {
//		panic(err)
//	}
package config

import (
	"context"
	"time"
)

// Loader 定义配置加载器的核心行为
type Loader interface {
	// Load 加载配置并初始化内部状态，启动文件监听
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// OnChange 注册配置文件变更回调
	OnChange(fn func(Event))
}

// Event 配置变更事件
type Event struct {
	File      string // 变更的配置文件路径
	Timestamp time.Time
}
