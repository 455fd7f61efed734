package cache

import (
	"context"
	"sync"
	"time"
)

// entry holds a cached value with its creation timestamp.
type entry struct {
	value     []byte
	createdAt time.Time
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	done       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryStore creates a MemoryStore holding at most maxEntries values for
// up to ttl. A background goroutine evicts expired entries every 5 minutes.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	m := &MemoryStore{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, time.Time, bool) {
	m.mu.RLock()
	e, ok := m.store[key]
	m.mu.RUnlock()
	if !ok || time.Since(e.createdAt) > m.ttl {
		return nil, time.Time{}, false
	}
	return e.value, e.createdAt, true
}

// Set stores a value. If the store is at capacity, an arbitrary entry is
// evicted to make room.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxEntries {
		for k := range m.store {
			delete(m.store, k)
			break
		}
	}
	m.store[key] = &entry{value: value, createdAt: time.Now()}
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

// Stop terminates the cleanup goroutine.
func (m *MemoryStore) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *MemoryStore) evictExpired(now time.Time) {
	cutoff := now.Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.store {
		if e.createdAt.Before(cutoff) {
			delete(m.store, k)
		}
	}
}

func (m *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.evictExpired(now)
		}
	}
}
