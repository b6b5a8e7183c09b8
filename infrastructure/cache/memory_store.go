package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

// MemoryStore is the fallback Store used when redis is unavailable and in
// tests. Now is overridable so expiry behavior can be driven by a fake clock.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	Now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), Now: time.Now}
}

func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) IncrBy(_ context.Context, key string, n int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	var current int64
	expiresAt := e.expiresAt
	if ok {
		current, _ = strconv.ParseInt(e.value, 10, 64)
	} else if ttl > 0 {
		expiresAt = s.Now().Add(ttl)
	} else {
		expiresAt = time.Time{}
	}
	current += n
	s.entries[key] = memoryEntry{value: strconv.FormatInt(current, 10), expiresAt: expiresAt}
	return current, nil
}

func (s *MemoryStore) GetInt(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.Now().Add(ttl)
	}
	s.entries[key] = memoryEntry{value: value, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
