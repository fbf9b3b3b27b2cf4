package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore is an in-process LRU store with per-entry expiry
type MemoryStore struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewMemoryStore creates a store holding at most size entries
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = 1024
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &MemoryStore{entries: entries, now: time.Now}, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	entry, ok := m.entries.Get(key)
	if !ok {
		return "", false, nil
	}
	if entry.expired(m.now()) {
		m.entries.Remove(key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries.Add(key, entry)
	return nil
}

func (m *MemoryStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	deleted := 0
	for _, key := range m.entries.Keys() {
		if strings.HasPrefix(key, prefix) && m.entries.Remove(key) {
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := m.now()
	count := 0
	for _, key := range m.entries.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		// Peek so that counting does not disturb recency
		if entry, ok := m.entries.Peek(key); ok && !entry.expired(now) {
			count++
		}
	}
	return count, nil
}

// Prune removes expired entries
func (m *MemoryStore) Prune(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := m.now()
	removed := 0
	for _, key := range m.entries.Keys() {
		if entry, ok := m.entries.Peek(key); ok && entry.expired(now) && m.entries.Remove(key) {
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Close() error {
	m.entries.Purge()
	return nil
}
