package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "nexabuild_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "mongo", cfg.Store.Driver)
	require.Equal(t, "nexabuild_test", cfg.MongoDB.Database)
	require.Equal(t, "resources", cfg.MongoDB.Collection)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Store.Driver)
	require.Equal(t, "database.sqlite", cfg.Store.SQLitePath)
	require.Equal(t, "0.0.0.0:5000", cfg.Server.Addr())
	require.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	require.Equal(t, 256, cfg.Workspace.MaxEntries)
}

func TestLoadConfigPortFallback(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("PORT", "8123")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8123", cfg.Server.Port)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRedisDriverNeedsHost(t *testing.T) {
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_HOST", "")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "REDIS_HOST")
}
