package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

const cacheNamespace = "rich_microdata:"

// Generator is the cached entry point for rendering page metadata
type Generator struct {
	cfg   *Config
	cache *MetadataCache
}

// CacheStats counts cached renders per variant
type CacheStats struct {
	Topics     int `json:"topics"`
	Categories int `json:"categories"`
	Users      int `json:"users"`
}

// NewGenerator creates a generator. A nil cache disables caching.
func NewGenerator(cfg *Config, cache *MetadataCache) *Generator {
	return &Generator{cfg: cfg, cache: cache}
}

// fingerprint builds the cache key {variant}:{entityId}:{lastModifiedEpoch}.
// Default pages have no entity and are never cached.
func fingerprint(variant Variant, data *PageData) (string, bool) {
	var id int64
	var modified time.Time
	switch variant {
	case VariantTopic:
		id, modified = data.Topic.ID, data.Topic.UpdatedAt
	case VariantCategory:
		id, modified = data.Category.ID, data.Category.UpdatedAt
	case VariantUser:
		id, modified = data.User.ID, data.User.UpdatedAt
	default:
		return "", false
	}
	return fmt.Sprintf("%s%d", entityPrefix(variant, id), modified.Unix()), true
}

// entityPrefix matches every fingerprint of one entity regardless of its
// modification time.
func entityPrefix(variant Variant, id int64) string {
	return fmt.Sprintf("%s%s:%d:", cacheNamespace, variant, id)
}

func variantPrefix(variant Variant) string {
	return cacheNamespace + variant.String() + ":"
}

// Generate renders the head fragment for data. It never fails: any error or
// panic yields an empty result so the host page still renders.
func (g *Generator) Generate(ctx context.Context, data *PageData, lang LanguageOptions) (result HeadResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic in metadata generation", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			result = HeadResult{}
		}
	}()

	if !g.cfg.Enabled {
		return HeadResult{}
	}

	variant := classify(data)
	key, cacheable := fingerprint(variant, data)
	if !cacheable || g.cache == nil {
		return NewCoordinator(data, g.cfg, lang).Generate()
	}

	raw, err := g.cache.Fetch(ctx, key, g.cfg.CacheTTL(), func(context.Context) (string, error) {
		encoded, err := json.Marshal(NewCoordinator(data, g.cfg, lang).Generate())
		if err != nil {
			return "", fmt.Errorf("failed to encode head result: %w", err)
		}
		return string(encoded), nil
	})
	if err != nil {
		slog.Error("Failed to generate metadata", "variant", variant, "key", key, "error", err)
		return HeadResult{}
	}

	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		slog.Error("Discarding unreadable cache entry", "key", key, "error", err)
		return HeadResult{}
	}
	return result
}

// InvalidateTopic drops every cached render of a topic
func (g *Generator) InvalidateTopic(ctx context.Context, id int64) error {
	return g.invalidate(ctx, entityPrefix(VariantTopic, id))
}

// InvalidateCategory drops every cached render of a category
func (g *Generator) InvalidateCategory(ctx context.Context, id int64) error {
	return g.invalidate(ctx, entityPrefix(VariantCategory, id))
}

// InvalidateUser drops every cached render of a user profile
func (g *Generator) InvalidateUser(ctx context.Context, id int64) error {
	return g.invalidate(ctx, entityPrefix(VariantUser, id))
}

// ClearAll drops the whole metadata cache
func (g *Generator) ClearAll(ctx context.Context) error {
	return g.invalidate(ctx, cacheNamespace)
}

func (g *Generator) invalidate(ctx context.Context, prefix string) error {
	if g.cache == nil {
		return nil
	}
	_, err := g.cache.DeleteByPrefix(ctx, prefix)
	return err
}

// Stats counts cached entries per variant
func (g *Generator) Stats(ctx context.Context) (CacheStats, error) {
	var stats CacheStats
	if g.cache == nil {
		return stats, nil
	}
	for _, c := range []struct {
		variant Variant
		dst     *int
	}{
		{VariantTopic, &stats.Topics},
		{VariantCategory, &stats.Categories},
		{VariantUser, &stats.Users},
	} {
		n, err := g.cache.CountByPrefix(ctx, variantPrefix(c.variant))
		if err != nil {
			return stats, err
		}
		*c.dst = n
	}
	return stats, nil
}
