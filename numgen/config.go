package numgen

import (
	"time"

	"github.com/ceyewan/numkit/xerrors"
)

// Config 号码发放引擎配置
type Config struct {
	// Store 计数器存储后端: "redis" | "db" | "memory"，默认 "redis"
	Store string `yaml:"store" json:"store" mapstructure:"store"`

	// RuleStore 前缀规则存储后端: "memory" | "redis"，默认 "memory"
	RuleStore string `yaml:"rule_store" json:"rule_store" mapstructure:"rule_store"`

	// KeyPrefix 存储键前缀，默认 "numkit"
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" mapstructure:"key_prefix"`

	// BlockSize 本地号段的预留块大小，默认 1000
	BlockSize int64 `yaml:"block_size" json:"block_size" mapstructure:"block_size"`

	// StoreTimeout 单次存储调用的超时上限，默认 500ms；
	// 超时后按存储不可达处理，触发降级而不是无限等待
	StoreTimeout time.Duration `yaml:"store_timeout" json:"store_timeout" mapstructure:"store_timeout"`

	// ProbeInterval 后台可达性探测间隔，默认 2s
	ProbeInterval time.Duration `yaml:"probe_interval" json:"probe_interval" mapstructure:"probe_interval"`
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Store == "" {
		c.Store = "redis"
	}
	if c.RuleStore == "" {
		c.RuleStore = "memory"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "numkit"
	}
	if c.BlockSize <= 0 {
		c.BlockSize = 1000
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 500 * time.Millisecond
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 2 * time.Second
	}
}

// validate 验证配置
func (c *Config) validate() error {
	switch c.Store {
	case "redis", "db", "memory":
	default:
		return xerrors.WithCode(ErrValidation, "unsupported_store")
	}
	switch c.RuleStore {
	case "memory", "redis":
	default:
		return xerrors.WithCode(ErrValidation, "unsupported_rule_store")
	}
	return nil
}
