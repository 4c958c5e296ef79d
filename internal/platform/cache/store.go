package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store is a small in-process TTL cache. Zero eviction pressure is expected;
// expired entries are dropped lazily on read.
type Store[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]entry[V]
	now   func() time.Time
}

func New[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		ttl:   ttl,
		items: make(map[string]entry[V]),
		now:   time.Now,
	}
}

func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	s.items[key] = entry[V]{value: value, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
