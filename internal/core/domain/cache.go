package domain

import (
	"maps"
	"slices"
	"time"
)

// IndexVersion is the persisted index format version.
const IndexVersion = 1

// CacheEntry is the persisted record of a computed item.
type CacheEntry struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	// Result is the opaque payload returned by the compute step.
	Result []byte `json:"result"`
	// Dependencies maps each dependency observed at compute time to that
	// dependency's Digest at the same moment. An empty digest means the
	// dependency had no entry (external).
	Dependencies map[string]string `json:"dependencies,omitempty"`
	// Digest identifies this entry's content and result for dependents.
	Digest     string    `json:"digest"`
	ComputedAt time.Time `json:"computed_at"`
}

// DependencyIDs returns the recorded dependency ids in sorted order.
func (e CacheEntry) DependencyIDs() []string {
	return slices.Sorted(maps.Keys(e.Dependencies))
}

// Clone returns a deep copy of the entry.
func (e CacheEntry) Clone() CacheEntry {
	out := e
	out.Result = slices.Clone(e.Result)
	out.Dependencies = maps.Clone(e.Dependencies)
	return out
}

// Index is the persisted state of a cache store.
type Index struct {
	Version   int                   `json:"version"`
	Timestamp time.Time             `json:"timestamp"`
	Entries   map[string]CacheEntry `json:"entries"`
	Metrics   Metrics               `json:"metrics"`
}

// NewIndex returns an empty index at the current version.
func NewIndex() *Index {
	return &Index{
		Version: IndexVersion,
		Entries: make(map[string]CacheEntry),
	}
}
