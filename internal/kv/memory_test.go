package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetNX(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "k", "v1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", val)
}

func TestSetNX_AfterExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	store.SetClock(func() time.Time { return base })

	ok, err := store.SetNX(ctx, "k", "v1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	store.SetClock(func() time.Time { return base.Add(2 * time.Second) })

	ok, err = store.SetNX(ctx, "k", "v2", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompareAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v1", 0))

	ok, err := store.CompareAndDelete(ctx, "k", "other")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.CompareAndDelete(ctx, "k", "v1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIncr_KeepsExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	store.SetClock(func() time.Time { return base })

	n, err := store.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Expire(ctx, "counter", time.Minute)
	require.NoError(t, err)

	n, err = store.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Incrementing must not extend the window.
	store.SetClock(func() time.Time { return base.Add(2 * time.Minute) })
	n, err = store.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIncrByFloat(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	f, err := store.IncrByFloat(ctx, "sum", 100.5)
	require.NoError(t, err)
	assert.InDelta(t, 100.5, f, 1e-9)

	f, err = store.IncrByFloat(ctx, "sum", 49.5)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, f, 1e-9)
}

func TestKeys_PrefixAndExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	store.SetClock(func() time.Time { return base })

	require.NoError(t, store.Set(ctx, "evt:a:1", "x", time.Second))
	require.NoError(t, store.Set(ctx, "evt:a:2", "x", time.Minute))
	require.NoError(t, store.Set(ctx, "evt:b:1", "x", time.Minute))

	keys, err := store.Keys(ctx, "evt:a:")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	store.SetClock(func() time.Time { return base.Add(2 * time.Second) })

	keys, err = store.Keys(ctx, "evt:a:")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
