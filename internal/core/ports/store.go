package ports

import (
	"time"

	"go.trai.ch/incr/internal/core/domain"
)

// CacheStore is the durable record of fingerprints, results and dependency snapshots.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// Load reads the persisted index into memory. A missing index yields an
	// empty store. An unreadable or corrupt index also leaves the store empty;
	// the returned error describes it and callers report it as a warning.
	Load() error

	// Save writes the full in-memory state to durable storage.
	Save() error

	// Get returns the entry for id.
	Get(id string) (domain.CacheEntry, bool)

	// Put replaces the entry for id.
	Put(id string, entry domain.CacheEntry)

	// Delete removes the entry for id.
	Delete(id string)

	// Clear removes every entry whose id matches and returns how many were removed.
	Clear(match func(id string) bool) int

	// IDs returns every stored id in sorted order.
	IDs() []string

	// Metrics returns the cumulative metrics of every pass recorded in the index.
	Metrics() domain.Metrics

	// LastSaved returns the timestamp of the persisted index, zero if never saved.
	LastSaved() time.Time

	// AddMetrics accumulates the metrics of a finished pass.
	AddMetrics(metrics domain.Metrics)
}

// StoreOpener binds cache stores to index files.
type StoreOpener interface {
	// Open returns a store for the index at path. It does not read the index.
	Open(path string, compression domain.Compression) CacheStore
}
