// Package cas implements the persisted cache store.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CacheStore = (*Store)(nil)

// Store implements ports.CacheStore using a single JSON index file,
// optionally compressed.
type Store struct {
	path        string
	compression domain.Compression
	now         func() time.Time

	mu    sync.RWMutex
	index *domain.Index
}

// NewStore creates a store backed by the index at path. The index is not read
// until Load is called.
func NewStore(path string, compression domain.Compression) *Store {
	if compression == "" {
		compression = domain.CompressionNone
	}
	return &Store{
		path:        filepath.Clean(path),
		compression: compression,
		now:         time.Now,
		index:       domain.NewIndex(),
	}
}

// WithClock replaces the clock used for index timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Path returns the index file path.
func (s *Store) Path() string {
	return s.path
}

// Load implements ports.CacheStore.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = domain.NewIndex()

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", s.path)
	}

	if len(data) == 0 {
		return nil
	}

	doc, err := decode(data)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreDecompressFailed.Error()), "path", s.path)
	}

	var index domain.Index
	if err := json.Unmarshal(doc, &index); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "path", s.path)
	}

	if index.Version != domain.IndexVersion {
		err := zerr.With(domain.ErrStoreVersionMismatch, "path", s.path)
		return zerr.With(zerr.With(err, "found", index.Version), "expected", domain.IndexVersion)
	}

	if index.Entries == nil {
		index.Entries = make(map[string]domain.CacheEntry)
	}
	s.index = &index
	return nil
}

// Save implements ports.CacheStore. The index is written to a temporary file
// and renamed into place so a crash never leaves a truncated index.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index.Version = domain.IndexVersion
	s.index.Timestamp = s.now().UTC()

	doc, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	data, err := encode(doc, s.compression)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error()), "compression", string(s.compression))
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", s.path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // No-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", s.path)
	}
	if err := tmp.Chmod(domain.FilePerm); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", s.path)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", s.path)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", s.path)
	}

	return nil
}

// Get retrieves a copy of the entry for id.
func (s *Store) Get(id string) (domain.CacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.index.Entries[id]
	if !ok {
		return domain.CacheEntry{}, false
	}
	return entry.Clone(), true
}

// Put stores a copy of entry in memory.
func (s *Store) Put(id string, entry domain.CacheEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Entries[id] = entry.Clone()
}

// Delete removes the entry for id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.index.Entries, id)
}

// Clear removes every entry whose id matches.
func (s *Store) Clear(match func(id string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id := range s.index.Entries {
		if match(id) {
			delete(s.index.Entries, id)
			removed++
		}
	}
	return removed
}

// IDs returns every stored id in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.index.Entries))
}

// Metrics returns the cumulative metrics recorded in the index.
func (s *Store) Metrics() domain.Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Metrics
}

// LastSaved returns the timestamp written by the last save.
func (s *Store) LastSaved() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Timestamp
}

// AddMetrics accumulates the metrics of a finished pass.
func (s *Store) AddMetrics(metrics domain.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Metrics = s.index.Metrics.Add(metrics)
}

// Opener implements ports.StoreOpener for index files.
type Opener struct{}

// NewOpener creates an Opener.
func NewOpener() *Opener {
	return &Opener{}
}

// Open implements ports.StoreOpener.
func (o *Opener) Open(path string, compression domain.Compression) ports.CacheStore {
	return NewStore(path, compression)
}
