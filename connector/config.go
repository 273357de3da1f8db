package connector

import (
	"fmt"
	"time"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	// 基础配置（可选，有默认值）
	Name string `mapstructure:"name"` // 连接器名称 (默认: "default")

	// 核心配置
	Addr     string `mapstructure:"addr"`     // [必填] 连接地址，如 "127.0.0.1:6379"
	Password string `mapstructure:"password"` // [可选] 认证密码
	DB       int    `mapstructure:"db"`       // [可选] 数据库编号 (默认: 0)

	// 高级配置（可选，有默认值）
	PoolSize     int           `mapstructure:"pool_size"`      // 连接池大小 (默认: 10)
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 最小空闲连接数 (默认: 5)
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // 连接超时 (默认: 5s)
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // 读取超时 (默认: 3s)
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // 写入超时 (默认: 3s)
}

// setDefaults 设置默认值
func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 5
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// validate 验证配置
func (c *RedisConfig) validate() error {
	c.setDefaults()
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	return nil
}

// DBConfig 关系数据库连接配置（GORM）
type DBConfig struct {
	// 基础配置（可选，有默认值）
	Name string `mapstructure:"name"` // 连接器名称 (默认: "default")

	// Driver 驱动类型: "mysql" | "sqlite"
	Driver string `mapstructure:"driver"`

	// DSN 完整 DSN (可选，若提供则忽略 Host/Port 等，优先级最高)
	// sqlite 驱动下为数据库文件路径，":memory:" 表示内存库
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"` // 默认: 3306
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	// 高级配置（可选，有默认值）
	Charset      string        `mapstructure:"charset"`        // 字符集 (默认: "utf8mb4")
	MaxIdleConns int           `mapstructure:"max_idle_conns"` // 最大空闲连接数 (默认: 10)
	MaxOpenConns int           `mapstructure:"max_open_conns"` // 最大打开连接数 (默认: 100)
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`   // 连接最大生命周期 (默认: 1h)
}

// setDefaults 设置默认值
func (c *DBConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Driver == "" {
		c.Driver = "mysql"
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.Charset == "" {
		c.Charset = "utf8mb4"
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.MaxLifetime == 0 {
		c.MaxLifetime = time.Hour
	}
}

// validate 验证配置
func (c *DBConfig) validate() error {
	c.setDefaults()
	switch c.Driver {
	case "sqlite":
		if c.DSN == "" {
			return fmt.Errorf("sqlite dsn (file path) is required")
		}
	case "mysql":
		if c.DSN == "" {
			if c.Host == "" {
				return fmt.Errorf("mysql host is required")
			}
			if c.Username == "" {
				return fmt.Errorf("mysql username is required")
			}
			if c.Database == "" {
				return fmt.Errorf("mysql database is required")
			}
		}
	default:
		return fmt.Errorf("unsupported db driver: %s", c.Driver)
	}
	return nil
}
