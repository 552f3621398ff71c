package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/propfinder-go/internal/graph"
)

// Key prefixes for different data types
const (
	prefixSearch = "s:" // cached search results
)

// ErrNotInitialized is returned when the cache is used before Initialize.
var ErrNotInitialized = errors.New("cache not initialized")

// BadgerBackend is a BadgerDB-backed cache.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	readOnly    bool
	mu          sync.RWMutex
}

// NewBadgerBackend creates a new BadgerDB cache.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(2).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	b.readOnly = readOnly
	return nil
}

// Close releases all resources held by the cache.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// Get returns the entry stored under key.
func (b *BadgerBackend) Get(ctx context.Context, key string) (Entry, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return Entry{}, false, ErrNotInitialized
	}

	var entry Entry
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(searchKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("getting cache entry: %w", err)
	}
	return entry, true, nil
}

// Put stores ids under key.
func (b *BadgerBackend) Put(ctx context.Context, key string, ids []graph.PropertyID, ttl time.Duration) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return ErrNotInitialized
	}
	if b.readOnly {
		return nil
	}

	data, err := json.Marshal(Entry{IDs: ids, StoredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	e := badger.NewEntry(searchKey(key), data)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	}); err != nil {
		return fmt.Errorf("setting cache entry: %w", err)
	}
	return nil
}

// Clear removes every cached search result.
func (b *BadgerBackend) Clear(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return 0, ErrNotInitialized
	}

	count, err := b.count()
	if err != nil {
		return 0, err
	}
	if err := b.db.DropPrefix([]byte(prefixSearch)); err != nil {
		return 0, fmt.Errorf("dropping cache entries: %w", err)
	}
	return count, nil
}

// Stats reports the number of live entries and the on-disk size.
func (b *BadgerBackend) Stats(ctx context.Context) (Stats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return Stats{}, ErrNotInitialized
	}

	count, err := b.count()
	if err != nil {
		return Stats{}, err
	}
	lsm, vlog := b.db.Size()
	return Stats{Entries: count, SizeBytes: lsm + vlog}, nil
}

// count walks the search prefix without fetching values. Expired entries
// are skipped by the iterator.
func (b *BadgerBackend) count() (int, error) {
	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixSearch)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return count, nil
}

func searchKey(key string) []byte {
	return []byte(prefixSearch + key)
}
