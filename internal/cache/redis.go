package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a cache shared between processes through a Redis server.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis connects to the server named in cfg and verifies it responds.
func NewRedis(ctx context.Context, logger *zap.Logger, cfg config.CacheConfig) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Address == "" {
		return nil, errors.New("redis cache requires an address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Address, err)
	}

	logger.Info("connected to redis plan cache",
		zap.String("op", "cache.NewRedis"),
		zap.String("address", cfg.Address),
		zap.Int("db", cfg.DB),
	)
	return &Redis{client: client, logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
