package clog

import (
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input       string
		expected    Level
		expectError bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"Warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
		{"", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("ParseLevel(%q) 期望出错", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) 出错: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("ParseLevel(%q) = %v，期望 %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	// 空配置应填入默认值
	cfg := &Config{}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate() 出错: %v", err)
	}
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" {
		t.Errorf("默认值错误: %+v", cfg)
	}

	// 非法级别应报错
	bad := &Config{Level: "loud"}
	if err := bad.validate(); err == nil {
		t.Error("期望非法级别报错")
	}

	// 非法格式应报错
	bad = &Config{Format: "xml"}
	if err := bad.validate(); err == nil {
		t.Error("期望非法格式报错")
	}
}

func TestNewAndDerivedLoggers(t *testing.T) {
	logger, err := New(&Config{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("New() 出错: %v", err)
	}

	// 派生 Logger 不应影响原 Logger
	child := logger.With(String("component", "numgen"))
	if child == nil {
		t.Fatal("With() = nil")
	}
	namespaced := logger.WithNamespace("server", "api")
	if namespaced == nil {
		t.Fatal("WithNamespace() = nil")
	}

	// 各级别方法不应 panic
	child.Debug("debug message", Int("n", 1))
	child.Info("info message", Int64("seq", 42))
	child.Warn("warn message", Bool("degraded", true))
	child.Error("error message", Error(nil))
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Info("should be dropped")
	if logger.With(String("k", "v")) != logger {
		t.Error("Discard().With 应返回自身")
	}
}
