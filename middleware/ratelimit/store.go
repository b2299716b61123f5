package ratelimit

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type Store interface {
	Get(key string) (count int, resetTime time.Time, exists bool)
	Increment(key string, resetTime time.Time) (count int)
	Decrement(key string)
	Reset(key string)
}

// MemoryStore keeps fixed-window counters in a go-cache instance; each entry
// expires at the end of its window and the cache janitor drops it.
type MemoryStore struct {
	mu    sync.Mutex
	items *gocache.Cache
}

type entry struct {
	count     int
	resetTime time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (s *MemoryStore) lookup(key string) (*entry, bool) {
	v, found := s.items.Get(key)
	if !found {
		return nil, false
	}
	e := v.(*entry)
	if !time.Now().Before(e.resetTime) {
		return nil, false
	}
	return e, true
}

func (s *MemoryStore) Get(key string) (count int, resetTime time.Time, exists bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.lookup(key); ok {
		return e.count, e.resetTime, true
	}
	return 0, time.Time{}, false
}

func (s *MemoryStore) Increment(key string, resetTime time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.lookup(key); ok {
		e.count++
		return e.count
	}

	s.items.Set(key, &entry{count: 1, resetTime: resetTime}, time.Until(resetTime))
	return 1
}

func (s *MemoryStore) Decrement(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return
	}
	e.count--
	if e.count <= 0 {
		s.items.Delete(key)
	}
}

func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items.Delete(key)
}
