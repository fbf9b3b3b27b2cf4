package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, mr := setupRedisStore(t)
	runStoreContract(t, store, mr.FastForward)
}

func TestRedisStore_TTLIsApplied(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "rich_microdata:user:7:1", "v", time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("rich_microdata:user:7:1"))

	require.NoError(t, store.Set(ctx, "persistent", "v", 0))
	assert.Zero(t, mr.TTL("persistent"))
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, err := NewRedisStore(ctx, RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	value, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisStore(ctx, RedisOptions{Addr: addr})
	assert.Error(t, err)
}

func TestGlobPrefix(t *testing.T) {
	testCases := map[string]string{
		"":                        "*",
		"rich_microdata:topic:1:": "rich_microdata:topic:1:*",
		"a*b?c[d]":                `a\*b\?c\[d\]*`,
		`back\slash`:              `back\\slash*`,
	}
	for input, expected := range testCases {
		assert.Equal(t, expected, globPrefix(input), "globPrefix(%q)", input)
	}
}
