package kv

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"payout/internal/port"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-process KVStore with the same atomicity guarantees
// as the redis adapter. Used in tests and single-node development; a real
// deployment points at redis so counters and locks are shared.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]entry), now: time.Now}
}

// SetClock replaces the store's time source. Test hook for expiry behavior.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) get(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(s.now()) {
		delete(s.data, key)
		return entry{}, false
	}
	return e, true
}

func (s *MemoryStore) put(key, value string, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.data[key] = e
}

func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.get(key); ok {
		return false, nil
	}
	s.put(key, value, ttl)
	return true, nil
}

func (s *MemoryStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key)
	if !ok || e.value != value {
		return false, nil
	}
	delete(s.data, key)
	return true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, value, ttl)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if e, ok := s.get(key); ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	e := s.data[key]
	e.value = strconv.FormatInt(n, 10)
	s.data[key] = e
	return n, nil
}

func (s *MemoryStore) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var f float64
	if e, ok := s.get(key); ok {
		parsed, err := strconv.ParseFloat(e.value, 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	}
	f += delta
	e := s.data[key]
	e.value = strconv.FormatFloat(f, 'f', -1, 64)
	s.data[key] = e
	return f, nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key)
	if !ok {
		return false, nil
	}
	e.expiresAt = s.now().Add(ttl)
	s.data[key] = e
	return true, nil
}

func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var keys []string
	for k, e := range s.data {
		if e.expired(now) {
			delete(s.data, k)
			continue
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

var _ port.KVStore = (*MemoryStore)(nil)
