package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis connection backing the KV stores.
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
}

// RedisKV is a thin KV adapter over go-redis.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV connects to Redis and verifies connectivity.
func NewRedisKV(cfg RedisConfig) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisKV{client: client}, nil
}

// Get returns the value for key; the bool reports presence.
func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key; ttl of zero means no expiry.
func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the underlying Redis client.
func (r *RedisKV) Close() error {
	return r.client.Close()
}
