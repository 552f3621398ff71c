package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Benny93/propfinder-go/internal/backend"
	"github.com/Benny93/propfinder-go/internal/config"
	"github.com/Benny93/propfinder-go/internal/dataset"
	"github.com/Benny93/propfinder-go/internal/finder"
	"github.com/Benny93/propfinder-go/internal/metrics"
	"github.com/Benny93/propfinder-go/internal/storage"
)

// app holds everything a command needs to run searches.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	cache   storage.Cache
	finder  *finder.Finder
}

// newApp loads the dataset and wires the backend client, cache and finder.
// m may be nil.
func newApp(cfg *config.Config, log *slog.Logger, m *metrics.Metrics) (*app, error) {
	snap, err := dataset.Load(cfg.Data, log)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	m.ObserveReload(true, snap.Metadata.Len())

	a := &app{cfg: cfg, log: log, metrics: m}

	client := backend.NewClient(cfg.Backend, log, m)
	var searcher finder.Searcher = client
	if cfg.Cache.Enabled {
		a.cache, err = openCache(cfg.Cache, false)
		if err != nil {
			return nil, err
		}
		searcher = backend.NewCachedSearcher(client, a.cache, cfg.Cache.TTL, log, m)
	}

	a.finder = finder.New(searcher, snap, cfg.Finder, log)
	return a, nil
}

// Close releases the cache.
func (a *app) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}

// openCache opens the badger cache in cc.Dir, or an in-memory cache when no
// directory is configured.
func openCache(cc config.CacheConfig, readOnly bool) (storage.Cache, error) {
	var cache storage.Cache = storage.NewMemoryBackendWithLimit(cc.MaxEntries)
	if cc.Dir != "" {
		cache = storage.NewBadgerBackend()
	}
	if err := cache.Initialize(cc.Dir, readOnly); err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}
	return cache, nil
}
