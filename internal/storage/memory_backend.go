package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Benny93/propfinder-go/internal/graph"
)

// DefaultMaxEntries bounds the in-memory cache when no limit is given.
const DefaultMaxEntries = 10000

type memoryEntry struct {
	entry   Entry
	expires time.Time
}

// MemoryBackend is an in-memory Cache, used when no cache directory is
// configured and in tests. It holds at most maxEntries searches and evicts
// the least recently used one beyond that. Expired entries are dropped when
// they are read or counted.
type MemoryBackend struct {
	mu         sync.RWMutex
	maxEntries int
	entries    *expirable.LRU[string, memoryEntry]
	now        func() time.Time
}

// NewMemoryBackend creates an in-memory cache holding DefaultMaxEntries.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithLimit(DefaultMaxEntries)
}

// NewMemoryBackendWithLimit creates an in-memory cache holding at most
// maxEntries searches. A non-positive limit uses DefaultMaxEntries.
func NewMemoryBackendWithLimit(maxEntries int) *MemoryBackend {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	m := &MemoryBackend{maxEntries: maxEntries, now: time.Now}
	m.entries = m.newLRU()
	return m
}

// newLRU builds the store. Expiry is tracked per entry, so the LRU itself
// runs without a TTL and starts no cleanup goroutine.
func (m *MemoryBackend) newLRU() *expirable.LRU[string, memoryEntry] {
	return expirable.NewLRU[string, memoryEntry](m.maxEntries, nil, 0)
}

// Initialize implements Cache.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = m.newLRU()
	}
	return nil
}

// Close implements Cache.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries != nil {
		m.entries.Purge()
	}
	m.entries = nil
	return nil
}

// Get implements Cache.
func (m *MemoryBackend) Get(ctx context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.entries == nil {
		return Entry{}, false, nil
	}
	e, ok := m.entries.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	if m.expired(e) {
		m.entries.Remove(key)
		return Entry{}, false, nil
	}
	return e.entry, true, nil
}

// Put implements Cache.
func (m *MemoryBackend) Put(ctx context.Context, key string, ids []graph.PropertyID, ttl time.Duration) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.entries == nil {
		return ErrNotInitialized
	}

	now := m.now()
	e := memoryEntry{entry: Entry{IDs: append([]graph.PropertyID(nil), ids...), StoredAt: now.UTC()}}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	m.entries.Add(key, e)
	return nil
}

// Clear implements Cache.
func (m *MemoryBackend) Clear(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries == nil {
		return 0, nil
	}
	count := m.removeExpired()
	m.entries.Purge()
	return count, nil
}

// Stats implements Cache.
func (m *MemoryBackend) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries == nil {
		return Stats{}, nil
	}
	return Stats{Entries: m.removeExpired()}, nil
}

// held returns the number of entries held, expired or not.
func (m *MemoryBackend) held() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.entries == nil {
		return 0
	}
	return m.entries.Len()
}

// removeExpired drops expired entries and returns how many remain.
func (m *MemoryBackend) removeExpired() int {
	for _, key := range m.entries.Keys() {
		if e, ok := m.entries.Peek(key); ok && m.expired(e) {
			m.entries.Remove(key)
		}
	}
	return m.entries.Len()
}

func (m *MemoryBackend) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
