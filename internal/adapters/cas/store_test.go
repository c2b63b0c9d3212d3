package cas_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/cas"
	"go.trai.ch/incr/internal/core/domain"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func sampleEntry() domain.CacheEntry {
	return domain.CacheEntry{
		Fingerprint:  domain.Fingerprint{ContentHash: "abc", MetaHash: "0000000000000001"},
		Result:       []byte(`{"x":1}`),
		Dependencies: map[string]string{"b.css": "ffff"},
		Digest:       "1234",
		ComputedAt:   fixedTime,
	}
}

func newStore(t *testing.T, compression domain.Compression) (*cas.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".incr", "index.json")
	return cas.NewStore(path, compression).WithClock(func() time.Time { return fixedTime }), path
}

func TestStore_PutAndGet(t *testing.T) {
	store, _ := newStore(t, domain.CompressionNone)

	_, ok := store.Get("a.css")
	assert.False(t, ok)

	entry := sampleEntry()
	store.Put("a.css", entry)
	entry.Result[0] = 'X'

	got, ok := store.Get("a.css")
	require.True(t, ok)
	assert.Equal(t, `{"x":1}`, string(got.Result), "store must keep its own copy")

	got.Dependencies["c.css"] = "1"
	again, _ := store.Get("a.css")
	assert.Len(t, again.Dependencies, 1, "callers must receive copies")

	store.Delete("a.css")
	_, ok = store.Get("a.css")
	assert.False(t, ok)
}

func TestStore_MissingIndexIsCold(t *testing.T) {
	store, path := newStore(t, domain.CompressionNone)

	require.NoError(t, store.Load())
	assert.Empty(t, store.IDs())
	assert.True(t, store.LastSaved().IsZero())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "load must not create the index")
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	for _, compression := range []domain.Compression{domain.CompressionNone, domain.CompressionZstd, domain.CompressionLZ4} {
		t.Run(string(compression), func(t *testing.T) {
			store1, path := newStore(t, compression)
			store1.Put("a.css", sampleEntry())
			store1.Put("b.css", domain.CacheEntry{Digest: "ffff", ComputedAt: fixedTime})
			store1.AddMetrics(domain.Metrics{Processed: 2, Misses: 2, ProcessingTime: time.Second})
			require.NoError(t, store1.Save())

			store2 := cas.NewStore(path, compression)
			require.NoError(t, store2.Load())

			assert.Equal(t, []string{"a.css", "b.css"}, store2.IDs())
			got, ok := store2.Get("a.css")
			require.True(t, ok)
			assert.Equal(t, sampleEntry(), got)
			assert.Equal(t, store1.Metrics(), store2.Metrics())
			assert.Equal(t, fixedTime, store2.LastSaved())
		})
	}
}

func TestStore_CompressionIsDetectedOnLoad(t *testing.T) {
	store1, path := newStore(t, domain.CompressionZstd)
	store1.Put("a.css", sampleEntry())
	require.NoError(t, store1.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("INZ1")))

	// A store configured for lz4 still reads the zstd index and rewrites it.
	store2 := cas.NewStore(path, domain.CompressionLZ4)
	require.NoError(t, store2.Load())
	_, ok := store2.Get("a.css")
	require.True(t, ok)
	require.NoError(t, store2.Save())

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("INL1")))
}

func TestStore_CorruptIndexStartsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"garbage", "{not json", domain.ErrStoreUnmarshalFailed.Error()},
		{"bad zstd", "INZ1garbage", domain.ErrStoreDecompressFailed.Error()},
		{"short lz4", "INL1", domain.ErrStoreDecompressFailed.Error()},
		{"oversized lz4", "INL1\x00\x00\x00\x40\x00\x00\x00\x00x", domain.ErrStoreDecompressFailed.Error()},
		{"future version", `{"version": 99, "entries": {"a": {}}}`, domain.ErrStoreVersionMismatch.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, path := newStore(t, domain.CompressionNone)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			store.Put("stale", domain.CacheEntry{})
			err := store.Load()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.Empty(t, store.IDs())
		})
	}
}

func TestStore_Clear(t *testing.T) {
	store, _ := newStore(t, domain.CompressionNone)
	for _, id := range []string{"src/a.css", "src/b.css", "docs/c.md"} {
		store.Put(id, domain.CacheEntry{})
	}

	removed := store.Clear(func(id string) bool { return filepath.Ext(id) == ".css" })
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"docs/c.md"}, store.IDs())
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	store, path := newStore(t, domain.CompressionNone)
	store.Put("a.css", sampleEntry())
	require.NoError(t, store.Save())
	require.NoError(t, store.Save())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.json", entries[0].Name())
}

func TestStore_IndexLayout(t *testing.T) {
	store, path := newStore(t, domain.CompressionNone)
	store.Put("a.css", sampleEntry())
	store.AddMetrics(domain.Metrics{Processed: 1, Misses: 1})
	require.NoError(t, store.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "index_layout", data)
}

func TestOpener_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	store := cas.NewOpener().Open(path, domain.CompressionZstd)

	store.Put("root", domain.CacheEntry{Digest: "1"})
	require.NoError(t, store.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("INZ1")))
}
