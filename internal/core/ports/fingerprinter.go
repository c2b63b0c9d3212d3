package ports

import "go.trai.ch/incr/internal/core/domain"

// Fingerprinter derives the identity of an item.
//
//go:generate mockgen -source=fingerprinter.go -destination=mocks/mock_fingerprinter.go -package=mocks
type Fingerprinter interface {
	// Fingerprint returns the current content and metadata hashes of id.
	// Unreadable or missing items yield domain.AbsentFingerprint, never an error.
	Fingerprint(id string) domain.Fingerprint
}
