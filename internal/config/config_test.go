package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Storage: StorageConfig{Backend: "memory"},
		Queue: QueueConfig{
			DefaultMaxRetries: 3,
			Retention:         7 * 24 * time.Hour,
		},
		Cache: CacheConfig{DefaultTTL: time.Hour},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_UnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = "sqlite"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_FileBackendNeedsDir(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = "file"
	assert.Error(t, cfg.Validate())

	cfg.Storage.File.Dir = "/var/lib/offlinepay"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_RedisBackendNeedsPort(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg.Storage.Redis.Port = 6379
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_PostgresBackendNeedsHost(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = "postgres"
	cfg.Storage.Postgres.Port = 5432
	assert.Error(t, cfg.Validate())

	cfg.Storage.Postgres.Host = "localhost"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Validate_QueueAndCache(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.DefaultMaxRetries = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Queue.Retention = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Cache.DefaultTTL = 0
	assert.Error(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 3, cfg.Queue.DefaultMaxRetries)
	assert.Equal(t, 7*24*time.Hour, cfg.Queue.Retention)
	assert.Equal(t, 60*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}

func TestRedisConfig_Addr(t *testing.T) {
	c := RedisConfig{Host: "10.0.0.5", Port: 6380}
	assert.Equal(t, "10.0.0.5:6380", c.RedisAddr())
}

func TestPostgresConfig_DSN(t *testing.T) {
	c := PostgresConfig{
		Host: "localhost", Port: 5432, User: "offlinepay",
		Password: "secret", Database: "offlinepay", SSLMode: "disable",
	}
	assert.Contains(t, c.DSN(), "host=localhost")
	assert.Contains(t, c.DSN(), "dbname=offlinepay")
}
