package connector

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ceyewan/numkit/clog"
	"github.com/ceyewan/numkit/xerrors"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type dbConnector struct {
	cfg     *DBConfig
	db      *gorm.DB
	logger  clog.Logger
	healthy atomic.Bool
}

// NewDB 创建关系数据库连接器，驱动由 cfg.Driver 决定
func NewDB(cfg *DBConfig, opts ...Option) (DBConnector, error) {
	if cfg == nil {
		return nil, ErrConfig
	}
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(err, "invalid db config")
	}

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	c := &dbConnector{
		cfg:    cfg,
		logger: opt.logger.With(clog.String("connector", cfg.Driver), clog.String("name", cfg.Name)),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
				cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Charset)
		}
		dialector = mysql.Open(dsn)
	default:
		return nil, xerrors.Wrapf(ErrConfig, "unsupported db driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "db connector[%s]: open failed", cfg.Name)
	}

	c.db = db
	return c, nil
}

// Connect 建立连接并配置连接池
func (c *dbConnector) Connect(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		c.logger.Error("failed to get sql db instance", clog.Error(err))
		return xerrors.Wrapf(err, "db connector[%s]: failed to get db instance", c.cfg.Name)
	}

	sqlDB.SetMaxIdleConns(c.cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(c.cfg.MaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		c.logger.Error("failed to connect to database", clog.Error(err))
		return xerrors.Wrapf(err, "db connector[%s]: ping failed", c.cfg.Name)
	}

	c.healthy.Store(true)
	c.logger.Info("successfully connected to database", clog.String("driver", c.cfg.Driver))

	return nil
}

// Close 关闭连接
func (c *dbConnector) Close() error {
	c.logger.Info("closing database connection")
	c.healthy.Store(false)

	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck 检查连接健康状态
func (c *dbConnector) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(err, "db connector[%s]: failed to get db instance", c.cfg.Name)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("database health check failed", clog.Error(err))
		return xerrors.Wrapf(err, "db connector[%s]: health check failed", c.cfg.Name)
	}

	c.healthy.Store(true)
	return nil
}

// IsHealthy 返回缓存的健康状态
func (c *dbConnector) IsHealthy() bool {
	return c.healthy.Load()
}

// Name 返回连接器名称
func (c *dbConnector) Name() string {
	return c.cfg.Name
}

// GetDB 返回 GORM 实例
func (c *dbConnector) GetDB() *gorm.DB {
	return c.db
}
