package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"payout/internal/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// unreachableStore simulates a coordination store that is down.
type unreachableStore struct {
	*kv.MemoryStore
}

var errStoreDown = errors.New("store unreachable")

func (unreachableStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return false, errStoreDown
}

func (unreachableStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	return false, errStoreDown
}

func newTestManager(t *testing.T) (*Manager, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	return NewManager(store, zap.NewNop()), store
}

func TestAcquire_ThenHeld(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	token, ok := m.Acquire(ctx, "batch", time.Minute)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok = m.Acquire(ctx, "batch", time.Minute)
	assert.False(t, ok)
}

func TestRelease_RequiresMatchingToken(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	token, ok := m.Acquire(ctx, "batch", time.Minute)
	require.True(t, ok)

	assert.False(t, m.Release(ctx, "batch", "someone-elses-token"))

	// The wrong-token release left the lock intact.
	_, ok = m.Acquire(ctx, "batch", time.Minute)
	assert.False(t, ok)

	assert.True(t, m.Release(ctx, "batch", token))

	_, ok = m.Acquire(ctx, "batch", time.Minute)
	assert.True(t, ok)
}

func TestRelease_AfterExpiryAndReacquisition(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	base := time.Now()
	store.SetClock(func() time.Time { return base })

	staleToken, ok := m.Acquire(ctx, "batch", time.Second)
	require.True(t, ok)

	// The first holder's ttl lapses and another worker takes over.
	store.SetClock(func() time.Time { return base.Add(2 * time.Second) })
	freshToken, ok := m.Acquire(ctx, "batch", time.Minute)
	require.True(t, ok)

	// The stale holder must not free the new holder's lock.
	assert.False(t, m.Release(ctx, "batch", staleToken))
	assert.True(t, m.Release(ctx, "batch", freshToken))
}

func TestAcquire_FailsClosedWhenStoreUnreachable(t *testing.T) {
	m := NewManager(unreachableStore{kv.NewMemoryStore()}, zap.NewNop())

	_, ok := m.Acquire(context.Background(), "batch", time.Minute)
	assert.False(t, ok)
}

func TestWithLock_RunsAndReleases(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	ran := false
	ok, err := m.WithLock(ctx, "batch", time.Minute, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, ran)

	// Released on exit, so a second round acquires immediately.
	ok, err = m.WithLock(ctx, "batch", time.Minute, func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithLock_SkipsWhenHeld(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	held, err := store.SetNX(ctx, "batch", "other-holder", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	ran := false
	ok, err := m.WithLock(ctx, "batch", time.Minute, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, ran)
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	ok, err := m.WithLock(ctx, "batch", time.Minute, func(ctx context.Context) error {
		return errStoreDown
	})
	assert.True(t, ok)
	assert.ErrorIs(t, err, errStoreDown)

	_, acquired := m.Acquire(ctx, "batch", time.Minute)
	assert.True(t, acquired)
}
