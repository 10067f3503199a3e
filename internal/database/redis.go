package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/lockgate/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the go-redis client used by the Redis lockout store
type RedisClient struct{ *redis.Client }

// NewRedis connects to Redis and verifies the connection with PING
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("redis connection established", slog.String("addr", cfg.Addr), slog.Int("db", cfg.DB))

	return &RedisClient{client}, nil
}

// HealthCheck verifies Redis is reachable
func (c *RedisClient) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
