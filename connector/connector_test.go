package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisConfigValidate(t *testing.T) {
	t.Run("missing addr", func(t *testing.T) {
		cfg := &RedisConfig{}
		assert.Error(t, cfg.validate())
	})

	t.Run("defaults applied", func(t *testing.T) {
		cfg := &RedisConfig{Addr: "127.0.0.1:6379"}
		require.NoError(t, cfg.validate())
		assert.Equal(t, "default", cfg.Name)
		assert.Equal(t, 10, cfg.PoolSize)
		assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	})
}

func TestDBConfigValidate(t *testing.T) {
	t.Run("sqlite requires dsn", func(t *testing.T) {
		cfg := &DBConfig{Driver: "sqlite"}
		assert.Error(t, cfg.validate())
	})

	t.Run("sqlite with dsn", func(t *testing.T) {
		cfg := &DBConfig{Driver: "sqlite", DSN: ":memory:"}
		assert.NoError(t, cfg.validate())
	})

	t.Run("mysql requires core fields", func(t *testing.T) {
		cfg := &DBConfig{Driver: "mysql"}
		assert.Error(t, cfg.validate())
	})

	t.Run("mysql full dsn bypasses field checks", func(t *testing.T) {
		cfg := &DBConfig{Driver: "mysql", DSN: "user:pass@tcp(localhost:3306)/numkit"}
		assert.NoError(t, cfg.validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &DBConfig{Driver: "oracle"}
		assert.Error(t, cfg.validate())
	})
}

func TestNewSQLiteConnector(t *testing.T) {
	ctx := context.Background()

	conn, err := NewDB(&DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.Connect(ctx))
	assert.True(t, conn.IsHealthy())
	assert.NoError(t, conn.HealthCheck(ctx))
	assert.NotNil(t, conn.GetDB())
	assert.Equal(t, "default", conn.Name())
}
