package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Storage       StorageConfig       `mapstructure:"storage"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Simulator     SimulatorConfig     `mapstructure:"simulator"`
	InstanceID    string              `mapstructure:"instance_id"`
}

// StorageConfig selects and configures the persistent store backend.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"` // memory | file | redis | postgres
	File     FileConfig     `mapstructure:"file"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type QueueConfig struct {
	DefaultMaxRetries int           `mapstructure:"default_max_retries"`
	Retention         time.Duration `mapstructure:"retention"`
}

type CacheConfig struct {
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

// SimulatorConfig drives cmd/simulator only.
type SimulatorConfig struct {
	FlapInterval    time.Duration `mapstructure:"flap_interval"`
	EnqueueInterval time.Duration `mapstructure:"enqueue_interval"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("OFFLINEPAY")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/offlinepay")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case "memory", "file", "redis", "postgres":
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of memory, file, redis, postgres, got %q", c.Storage.Backend))
	}
	if c.Storage.Backend == "file" && c.Storage.File.Dir == "" {
		errs = append(errs, fmt.Errorf("storage.file.dir is required for the file backend"))
	}
	if c.Storage.Backend == "redis" && c.Storage.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("storage.redis.port must be positive"))
	}
	if c.Storage.Backend == "postgres" {
		if c.Storage.Postgres.Host == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.host is required"))
		}
		if c.Storage.Postgres.Port <= 0 {
			errs = append(errs, fmt.Errorf("storage.postgres.port must be positive"))
		}
	}
	if c.Queue.DefaultMaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("queue.default_max_retries must be positive"))
	}
	if c.Queue.Retention <= 0 {
		errs = append(errs, fmt.Errorf("queue.retention must be positive"))
	}
	if c.Cache.DefaultTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.default_ttl must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.file.dir", "")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.connect_retries", 5)
	v.SetDefault("storage.redis.connect_retry_delay", "1s")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "offlinepay")
	v.SetDefault("storage.postgres.database", "offlinepay")
	v.SetDefault("storage.postgres.max_connections", 10)
	v.SetDefault("storage.postgres.conn_max_lifetime", "1h")
	v.SetDefault("storage.postgres.ssl_mode", "disable")

	// Queue defaults
	v.SetDefault("queue.default_max_retries", 3)
	v.SetDefault("queue.retention", "168h") // one week of audit history

	// Cache defaults
	v.SetDefault("cache.default_ttl", "60m")

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	// Simulator defaults
	v.SetDefault("simulator.flap_interval", "20s")
	v.SetDefault("simulator.enqueue_interval", "5s")

	// Instance ID
	v.SetDefault("instance_id", "offlinepay-1")
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
