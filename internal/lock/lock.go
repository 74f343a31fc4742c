package lock

import (
	"context"
	"time"

	"payout/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager provides cooperative mutual exclusion across worker instances,
// backed by the shared coordination store. Locks carry a ttl so a crashed
// holder cannot block the batch forever.
type Manager struct {
	store  port.KVStore
	logger *zap.Logger
}

func NewManager(store port.KVStore, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Acquire attempts to take the lock. The returned token identifies this
// holder and is required for release. A store error fails closed: the lock
// is reported as not acquired, never as silently held.
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool) {
	token := uuid.NewString()
	ok, err := m.store.SetNX(ctx, key, token, ttl)
	if err != nil {
		m.logger.Warn("lock acquire failed, treating as not acquired",
			zap.String("key", key), zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	return token, true
}

// Release frees the lock only while it is still held under token. A lock
// that expired and was reacquired by another holder is left alone.
func (m *Manager) Release(ctx context.Context, key, token string) bool {
	ok, err := m.store.CompareAndDelete(ctx, key, token)
	if err != nil {
		m.logger.Warn("lock release failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		m.logger.Warn("lock no longer held at release, possibly expired",
			zap.String("key", key))
	}
	return ok
}

// WithLock runs fn while holding the lock, releasing it on every exit path
// including a panic unwinding through fn. Returns false without running fn
// when the lock is already held elsewhere.
func (m *Manager) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error) {
	token, ok := m.Acquire(ctx, key, ttl)
	if !ok {
		return false, nil
	}
	defer m.Release(ctx, key, token)
	return true, fn(ctx)
}
