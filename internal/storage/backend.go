// Package storage provides the search-result cache for propfinder.
//
// It defines the Cache interface every cache implementation must satisfy,
// along with the entry type shared by the backends.
package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/Benny93/propfinder-go/internal/graph"
)

// Entry is one cached backend answer.
type Entry struct {
	// IDs are the matched properties in backend order.
	IDs []graph.PropertyID `json:"ids"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`
}

// Stats summarises cache contents.
type Stats struct {
	// Entries is the number of live entries.
	Entries int

	// SizeBytes is the on-disk size, zero for memory caches.
	SizeBytes int64
}

// Cache stores search results keyed by query.
//
// Implementations must be thread-safe and support concurrent access.
type Cache interface {
	// Lifecycle methods

	// Initialize opens or creates the cache at the given path.
	// If readOnly is true, the cache is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the cache.
	Close() error

	// Entry operations

	// Get returns the entry for key. The second result is false on a miss
	// or when the entry has expired.
	Get(ctx context.Context, key string) (Entry, bool, error)

	// Put stores ids under key. A positive ttl expires the entry.
	Put(ctx context.Context, key string, ids []graph.PropertyID, ttl time.Duration) error

	// Maintenance

	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)

	// Stats reports the cache size.
	Stats(ctx context.Context) (Stats, error)
}

// Key builds the cache key of a backend query.
func Key(term string, size int) string {
	return strconv.Itoa(size) + ":" + term
}
