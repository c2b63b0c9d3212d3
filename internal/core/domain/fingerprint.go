package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is the identity of an item at a point in time.
type Fingerprint struct {
	// ContentHash is a cryptographic hash of the item's raw content.
	ContentHash string `json:"content_hash"`
	// MetaHash is a cheap hash of size and modification time.
	MetaHash string `json:"meta_hash"`
}

// AbsentFingerprint is returned for items that cannot be read.
var AbsentFingerprint = Fingerprint{}

// Absent reports whether the fingerprint describes an unreadable or missing item.
func (f Fingerprint) Absent() bool {
	return f.ContentHash == ""
}

// Equal reports whether both hashes match.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.ContentHash == other.ContentHash && f.MetaHash == other.MetaHash
}

// HexDigest formats a 64-bit hash the way every hash in the index is stored.
func HexDigest(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// ResultDigest derives the digest recorded by dependents of an entry.
// It changes whenever either the content or the computed result changes.
func ResultDigest(contentHash string, result []byte) string {
	h := xxhash.New()
	_, _ = h.WriteString(contentHash)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(result)
	return HexDigest(h.Sum64())
}

// ShortHash truncates a hex hash for display.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return hash
	}
	return hash[:12]
}
