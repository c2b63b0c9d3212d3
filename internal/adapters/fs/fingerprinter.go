package fs

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fingerprinter = (*Fingerprinter)(nil)

// Fingerprinter derives file fingerprints for ids relative to a root directory.
type Fingerprinter struct {
	root string
	// memo maps id+meta hash to content hash. It is nil unless metadata is trusted.
	memo *lru.Cache[string, string]
}

// NewFingerprinter creates a Fingerprinter for files under root.
// With trustMetadata, files whose size and modification time are unchanged
// since the last read are not re-hashed; memoSize bounds that memo.
func NewFingerprinter(root string, trustMetadata bool, memoSize int) (*Fingerprinter, error) {
	f := &Fingerprinter{root: root}
	if !trustMetadata {
		return f, nil
	}
	if memoSize <= 0 {
		memoSize = domain.DefaultMemoSize
	}
	memo, err := lru.New[string, string](memoSize)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create fingerprint memo"), "size", memoSize)
	}
	f.memo = memo
	return f, nil
}

// Root returns the directory ids are resolved against.
func (f *Fingerprinter) Root() string {
	return f.root
}

// Path returns the file path of id.
func (f *Fingerprinter) Path(id string) string {
	return filepath.Join(f.root, filepath.FromSlash(id))
}

// Fingerprint returns the content and metadata hashes of id.
// Missing, unreadable and non-regular files are absent.
func (f *Fingerprinter) Fingerprint(id string) domain.Fingerprint {
	path := f.Path(id)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return domain.AbsentFingerprint
	}

	meta := MetaHash(info)
	key := id + "\x00" + meta
	if f.memo != nil {
		if content, ok := f.memo.Get(key); ok {
			return domain.Fingerprint{ContentHash: content, MetaHash: meta}
		}
	}

	content, err := ContentHash(path)
	if err != nil {
		return domain.AbsentFingerprint
	}
	if f.memo != nil {
		f.memo.Add(key, content)
	}
	return domain.Fingerprint{ContentHash: content, MetaHash: meta}
}

// ContentHash computes the SHA-256 of a file's content as lowercase hex.
func ContentHash(path string) (string, error) {
	file, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// MetaHash computes the XXHash of a file's size and modification time.
func MetaHash(info os.FileInfo) string {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(info.Size()))              //nolint:gosec // Sizes are non-negative
	binary.LittleEndian.PutUint64(buf[8:], uint64(info.ModTime().UnixNano())) //nolint:gosec // Bit pattern only
	return domain.HexDigest(xxhash.Sum64(buf[:]))
}
