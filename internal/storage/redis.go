package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/offlinepay/internal/config"
	"github.com/cassiomorais/offlinepay/pkg/retry"
	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "offlinepay:collection:"

// NewRedisClient creates a Redis client and verifies connectivity with a
// bounded retry, matching the store's availability-over-strictness posture.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	maxRetries := cfg.ConnectRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	retryDelay := cfg.ConnectRetryDelay
	if retryDelay <= 0 {
		retryDelay = 1 * time.Second
	}

	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  uint(maxRetries),
		InitialDelay: retryDelay,
		MaxDelay:     30 * time.Second,
	}, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis after %d retries: %w", maxRetries, err)
	}

	return client, nil
}

// RedisStore keeps each collection under a single Redis key. Suitable when
// the client shares a device-local or sidecar Redis with other tooling.
type RedisStore struct {
	client *goredis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) ReadCollection(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+name).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis store: read collection %s: %w", name, err)
	}
	return data, nil
}

func (s *RedisStore) WriteCollection(ctx context.Context, name string, data []byte) error {
	if err := s.client.Set(ctx, redisKeyPrefix+name, data, 0).Err(); err != nil {
		return fmt.Errorf("redis store: write collection %s: %w", name, err)
	}
	return nil
}
