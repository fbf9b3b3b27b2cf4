package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store is a key-value backend with TTL and prefix scans
type Store interface {
	// Get returns the stored value and whether a live entry was found
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value; a zero ttl means no expiry
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// DeleteByPrefix removes every key starting with prefix and reports how
	// many were removed. Deleting nothing is not an error.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// CountByPrefix counts live keys starting with prefix
	CountByPrefix(ctx context.Context, prefix string) (int, error)

	Close() error
}

// pruner is implemented by stores that need expired entries swept explicitly
type pruner interface {
	Prune(ctx context.Context) (int, error)
}

// MetadataCache memoizes rendered output per content fingerprint. Concurrent
// misses on the same key may both compute; the result is deterministic so
// the last write wins harmlessly.
type MetadataCache struct {
	store Store
}

// NewMetadataCache wraps a store
func NewMetadataCache(store Store) *MetadataCache {
	return &MetadataCache{store: store}
}

// Fetch returns the cached value for key, or runs producer and stores its
// result. Producer errors are returned and nothing is stored.
func (c *MetadataCache) Fetch(ctx context.Context, key string, ttl time.Duration, producer func(context.Context) (string, error)) (string, error) {
	value, found, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Warn("Error reading metadata cache, regenerating", "error", err, "key", key)
	} else if found {
		slog.Debug("Metadata cache hit", "key", key)
		return value, nil
	}

	slog.Debug("Metadata cache miss", "key", key)
	value, err = producer(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to produce value for %s: %w", key, err)
	}

	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("Failed to store metadata cache entry", "error", err, "key", key)
	}
	return value, nil
}

// DeleteByPrefix removes every entry under prefix
func (c *MetadataCache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	n, err := c.store.DeleteByPrefix(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache prefix %s: %w", prefix, err)
	}
	if n > 0 {
		slog.Debug("Deleted metadata cache entries", "prefix", prefix, "count", n)
	}
	return n, nil
}

// CountByPrefix counts live entries under prefix
func (c *MetadataCache) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	n, err := c.store.CountByPrefix(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache prefix %s: %w", prefix, err)
	}
	return n, nil
}

// Prune sweeps expired entries when the backend needs it
func (c *MetadataCache) Prune(ctx context.Context) (int, error) {
	p, ok := c.store.(pruner)
	if !ok {
		return 0, nil
	}
	return p.Prune(ctx)
}

// Close releases the backend
func (c *MetadataCache) Close() error {
	return c.store.Close()
}

// OpenStore creates the backend selected in the configuration
func OpenStore(ctx context.Context, cfg CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.MemorySize)
	case "sqlite":
		return OpenSQLiteStore(ctx, cfg.SQLitePath)
	case "redis":
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
