package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore keeps rendered metadata in a SQLite table. Expiry times are
// stored as unix nanoseconds so comparisons never depend on time formatting.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

const createMetadataCacheTable = `
	CREATE TABLE IF NOT EXISTS metadata_cache (
		cache_key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0     -- 0 means no expiry
	)`

var createMetadataCacheIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_metadata_cache_expires ON metadata_cache(expires_at)",
}

// OpenSQLiteStore opens (and if needed creates) the cache database at path.
// Use ":memory:" for a throwaway store.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	slog.Debug("Initializing cache database", "path", path)

	db, err := sql.Open("sqlite", path) // Use "sqlite" driver name
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Debug("Cache database initialized successfully")
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createMetadataCacheTable); err != nil {
		return fmt.Errorf("failed to create metadata_cache table: %w", err)
	}
	for _, indexSQL := range createMetadataCacheIndexes {
		if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create metadata_cache index: %w", err)
		}
	}
	return nil
}

// Get retrieves a live cache entry
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := `
		SELECT value
		FROM metadata_cache
		WHERE cache_key = ? AND (expires_at = 0 OR expires_at > ?)`

	var value string
	err := s.db.QueryRowContext(ctx, query, key, s.now().UnixNano()).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query metadata cache: %w", err)
	}
	return value, true, nil
}

// Set stores an entry, replacing any previous value for the key
func (s *SQLiteStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	now := s.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	query := `
		INSERT INTO metadata_cache (cache_key, value, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`

	if _, err := s.db.ExecContext(ctx, query, key, value, now.UnixNano(), expiresAt); err != nil {
		return fmt.Errorf("failed to store metadata cache entry: %w", err)
	}
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix
func (s *SQLiteStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM metadata_cache WHERE substr(cache_key, 1, ?) = ?`,
		utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete metadata cache entries: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// CountByPrefix counts live entries whose key starts with prefix
func (s *SQLiteStore) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM metadata_cache
		WHERE substr(cache_key, 1, ?) = ? AND (expires_at = 0 OR expires_at > ?)`,
		utf8.RuneCountInString(prefix), prefix, s.now().UnixNano()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count metadata cache entries: %w", err)
	}
	return count, nil
}

// Prune removes expired cache entries
func (s *SQLiteStore) Prune(ctx context.Context) (int, error) {
	slog.Debug("Cleaning up expired metadata cache entries")

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM metadata_cache WHERE expires_at != 0 AND expires_at <= ?", s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired cache: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		slog.Debug("Cleaned up expired metadata cache entries", "count", rowsAffected)
	}
	return int(rowsAffected), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
