package testkit

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/ceyewan/numkit/connector"
)

// GetSQLiteConnector 获取内存 SQLite 连接器，测试结束时自动关闭
func GetSQLiteConnector(t *testing.T) connector.DBConnector {
	conn, err := connector.NewDB(&connector.DBConfig{
		Name:   "test-sqlite",
		Driver: "sqlite",
		DSN:    ":memory:",
	}, connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create sqlite connector: %v", err)
	}

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect to sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// GetSQLiteDB 获取内存 SQLite 的 GORM 实例
func GetSQLiteDB(t *testing.T) *gorm.DB {
	return GetSQLiteConnector(t).GetDB()
}
