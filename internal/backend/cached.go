package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metrics"
	"github.com/Benny93/propfinder-go/internal/storage"
)

// CachedSearcher answers repeated queries from a cache. Failed searches are
// not cached; cache errors are logged and the query goes to the backend.
type CachedSearcher struct {
	next    Searcher
	cache   storage.Cache
	ttl     time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewCachedSearcher wraps next with cache. A non-positive ttl keeps
// entries until the cache is cleared.
func NewCachedSearcher(next Searcher, cache storage.Cache, ttl time.Duration, log *slog.Logger, m *metrics.Metrics) *CachedSearcher {
	if log == nil {
		log = slog.Default()
	}
	return &CachedSearcher{next: next, cache: cache, ttl: ttl, log: log, metrics: m}
}

// Search implements Searcher.
func (c *CachedSearcher) Search(ctx context.Context, term string, size int) ([]graph.PropertyID, error) {
	key := storage.Key(term, size)

	entry, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.ObserveCache("error")
		c.log.Warn("cache lookup failed", "term", term, "error", err)
	case ok:
		c.metrics.ObserveCache("hit")
		return entry.IDs, nil
	default:
		c.metrics.ObserveCache("miss")
	}

	ids, err := c.next.Search(ctx, term, size)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(ctx, key, ids, c.ttl); err != nil {
		c.log.Warn("cache store failed", "term", term, "error", err)
	}
	return ids, nil
}

// Probe implements Searcher. It always reaches the backend.
func (c *CachedSearcher) Probe(ctx context.Context) error {
	return c.next.Probe(ctx)
}
