package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/unipost/internal/logging"
	"github.com/jimdaga/unipost/internal/references"
)

func setup(t *testing.T) (*EmbeddingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Hour, logging.Discard()), mr
}

func TestPutThenGet(t *testing.T) {
	c, mr := setup(t)
	ctx := context.Background()
	refs := []references.Reference{
		{Title: "a", Body: "one", Score: 0.9},
		{Title: "b", Body: "two", Score: 0.5},
		{Title: "c", Body: "three", Score: 0.2},
	}

	require.NoError(t, c.Put(ctx, "sustentabilidade", refs))

	got, ok, err := c.Get(ctx, "sustentabilidade")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, refs, got)

	assert.Equal(t, time.Hour, mr.TTL(Key("sustentabilidade")))
}

func TestGetMiss(t *testing.T) {
	c, _ := setup(t)

	got, ok, err := c.Get(context.Background(), "nada")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestEmptyEntryRoundTrips(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "q", []references.Reference{}))
	got, ok, err := c.Get(ctx, "q")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.NoError(t, c.Put(ctx, "nil", nil))
	got, ok, err = c.Get(ctx, "nil")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []references.Reference{}, got)
}

func TestCorruptEntryIsDropped(t *testing.T) {
	c, mr := setup(t)
	require.NoError(t, mr.Set(Key("q"), "{not json"))

	_, ok, err := c.Get(context.Background(), "q")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(Key("q")))
}

func TestExpiry(t *testing.T) {
	c, mr := setup(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "q", []references.Reference{{Title: "a", Score: 1}}))

	mr.FastForward(2 * time.Hour)

	_, ok, err := c.Get(ctx, "q")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyNormalization(t *testing.T) {
	assert.Equal(t, Key("Energia  Solar "), Key("energia solar"))
	assert.Contains(t, Key("x"), KeyPrefix)
	assert.Len(t, Key("x"), len(KeyPrefix)+32)
}

func TestClear(t *testing.T) {
	c, mr := setup(t)
	ctx := context.Background()
	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, c.Put(ctx, q, []references.Reference{{Title: q, Score: 1}}))
	}
	require.NoError(t, mr.Set("session:keep", "1"))

	removed, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.True(t, mr.Exists("session:keep"))
}
