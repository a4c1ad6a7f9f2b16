// Package cache stores computed plan reports so identical requests are served
// without re-running the simulation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/iwvelando/debt-snowball/internal/config"
	"go.uber.org/zap"
)

// Supported cache drivers.
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// DefaultTTL applies when the configuration does not set one.
const DefaultTTL = time.Hour

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "debt-snowball:plan:"

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the cached value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// New returns the cache selected by cfg. An empty driver disables caching.
func New(ctx context.Context, logger *zap.Logger, cfg config.CacheConfig) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Driver) {
	case "", DriverNone:
		return Nop{}, nil
	case DriverMemory:
		logger.Debug("using in-memory plan cache", zap.String("op", "cache.New"))
		return NewMemory(), nil
	case DriverRedis:
		return NewRedis(ctx, logger, cfg)
	}
	return nil, fmt.Errorf("unknown cache driver %q: expected %s, %s or %s", cfg.Driver, DriverNone, DriverMemory, DriverRedis)
}

// TTL returns the configured expiry or DefaultTTL.
func TTL(cfg config.CacheConfig) time.Duration {
	if cfg.TTL > 0 {
		return cfg.TTL
	}
	return DefaultTTL
}

// Key derives a cache key from the JSON encoding of v. Equal values always
// produce equal keys because encoding/json writes struct fields in
// declaration order and sorts map keys.
func Key(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	return fmt.Sprintf("%s%016x", KeyPrefix, xxhash.Sum64(raw)), nil
}

// Nop is a cache that never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Close() error                                             { return nil }
