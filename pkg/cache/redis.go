package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-assessment-api/pkg/config"
)

// Required reports whether any enabled component needs a Redis connection.
func Required(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.Cache.Enabled || cfg.Assessment.LockBackend == config.LockBackendRedis
}

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return client, nil
}

// SetupKey is the cache key of a resolved assessment setup.
func SetupKey(id string) string {
	return "assessment:setup:" + id
}

// SetupPattern matches every cached assessment setup.
const SetupPattern = "assessment:setup:*"
