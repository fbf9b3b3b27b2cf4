package main

import (
	"context"
	"testing"
	"time"
)

// Test helper functions

func setupTestStore(t *testing.T) (*SQLiteStore, *time.Time) {
	t.Helper()
	store, err := OpenSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

// runStoreContract exercises the behaviour every Store backend shares.
// advance moves the backend's clock forward.
func runStoreContract(t *testing.T, store Store, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		if _, found, err := store.Get(ctx, "absent"); err != nil || found {
			t.Errorf("Expected a clean miss, got found=%v err=%v", found, err)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := store.Set(ctx, "rich_microdata:topic:1:100", "head", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		value, found, err := store.Get(ctx, "rich_microdata:topic:1:100")
		if err != nil || !found || value != "head" {
			t.Errorf("Get = %q, %v, %v", value, found, err)
		}

		if err := store.Set(ctx, "rich_microdata:topic:1:100", "replaced", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if value, _, _ := store.Get(ctx, "rich_microdata:topic:1:100"); value != "replaced" {
			t.Errorf("Expected replaced value, got %q", value)
		}
	})

	t.Run("prefix boundary", func(t *testing.T) {
		for _, key := range []string{
			"rich_microdata:topic:1:100",
			"rich_microdata:topic:1:200",
			"rich_microdata:topic:12:100",
			"rich_microdata:user:1:100",
		} {
			if err := store.Set(ctx, key, "v", time.Minute); err != nil {
				t.Fatalf("Set(%s) failed: %v", key, err)
			}
		}

		count, err := store.CountByPrefix(ctx, "rich_microdata:topic:")
		if err != nil || count != 3 {
			t.Errorf("CountByPrefix(topic) = %d, %v; want 3", count, err)
		}

		deleted, err := store.DeleteByPrefix(ctx, "rich_microdata:topic:1:")
		if err != nil || deleted != 2 {
			t.Errorf("DeleteByPrefix(topic:1:) = %d, %v; want 2", deleted, err)
		}
		if _, found, _ := store.Get(ctx, "rich_microdata:topic:12:100"); !found {
			t.Error("topic:12 must survive deleting topic:1:")
		}
		if _, found, _ := store.Get(ctx, "rich_microdata:user:1:100"); !found {
			t.Error("user:1 must survive deleting topic:1:")
		}

		deleted, err = store.DeleteByPrefix(ctx, "rich_microdata:topic:1:")
		if err != nil || deleted != 0 {
			t.Errorf("Repeated delete = %d, %v; want 0", deleted, err)
		}
	})

	t.Run("wildcard characters are literal", func(t *testing.T) {
		if err := store.Set(ctx, "pre_fix:a", "v", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := store.Set(ctx, "preXfix:a", "v", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if count, _ := store.CountByPrefix(ctx, "pre_fix:"); count != 1 {
			t.Errorf("Expected underscore to match literally, got %d", count)
		}
		if count, _ := store.CountByPrefix(ctx, "pre*"); count != 0 {
			t.Errorf("Expected star to match literally, got %d", count)
		}
	})

	t.Run("expiry", func(t *testing.T) {
		if err := store.Set(ctx, "short", "v", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := store.Set(ctx, "forever", "v", 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		advance(2 * time.Minute)

		if _, found, _ := store.Get(ctx, "short"); found {
			t.Error("Expired entry should not be returned")
		}
		if _, found, _ := store.Get(ctx, "forever"); !found {
			t.Error("Entry without TTL should never expire")
		}
	})
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, now := setupTestStore(t)
	runStoreContract(t, store, func(d time.Duration) { *now = now.Add(d) })
}

func TestSQLiteStore_Prune(t *testing.T) {
	store, now := setupTestStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "a", "1", time.Minute)
	_ = store.Set(ctx, "b", "2", time.Hour)
	_ = store.Set(ctx, "c", "3", 0)
	*now = now.Add(10 * time.Minute)

	removed, err := store.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 expired entry removed, got %d", removed)
	}
	if count, _ := store.CountByPrefix(ctx, ""); count != 2 {
		t.Errorf("Expected 2 live entries, got %d", count)
	}
}

func TestOpenSQLiteStore_File(t *testing.T) {
	path := t.TempDir() + "/cache.db"
	ctx := context.Background()

	store, err := OpenSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	if err := store.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	_ = store.Close()

	// reopening runs the migrations again and keeps the data
	store, err = OpenSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer func() { _ = store.Close() }()
	if value, found, _ := store.Get(ctx, "k"); !found || value != "v" {
		t.Errorf("Expected persisted value, got %q %v", value, found)
	}
}
