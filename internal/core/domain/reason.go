package domain

import "strings"

// ReasonKind classifies why an item needs processing.
type ReasonKind uint8

const (
	// ReasonNone means the item is clean.
	ReasonNone ReasonKind = iota
	// ReasonNew means the item has no cache entry.
	ReasonNew
	// ReasonDeleted means the item's source no longer exists.
	ReasonDeleted
	// ReasonContentChanged means the content hash differs from the cached one.
	ReasonContentChanged
	// ReasonMetadataChanged means only the metadata hash differs.
	ReasonMetadataChanged
	// ReasonDependencyChanged means a recorded dependency is stale or was recomputed.
	ReasonDependencyChanged
	// ReasonForced means the caller bypassed the cache.
	ReasonForced
)

const dependencyChangedPrefix = "dependency-changed:"

var reasonCodes = map[ReasonKind]string{
	ReasonNone:            "",
	ReasonNew:             "new",
	ReasonDeleted:         "deleted",
	ReasonContentChanged:  "content-changed",
	ReasonMetadataChanged: "metadata-changed",
	ReasonForced:          "forced",
}

// Reason is a staleness reason code.
type Reason struct {
	Kind ReasonKind
	// Dependency is set for ReasonDependencyChanged.
	Dependency string
}

// DependencyChanged builds a dependency-changed:<id> reason.
func DependencyChanged(id string) Reason {
	return Reason{Kind: ReasonDependencyChanged, Dependency: id}
}

// String returns the reason code, e.g. "content-changed" or "dependency-changed:a.css".
func (r Reason) String() string {
	if r.Kind == ReasonDependencyChanged {
		return dependencyChangedPrefix + r.Dependency
	}
	return reasonCodes[r.Kind]
}

// IsZero reports whether r carries no reason.
func (r Reason) IsZero() bool {
	return r.Kind == ReasonNone
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	*r = ParseReason(string(text))
	return nil
}

// ParseReason parses a reason code. Unknown codes yield the zero Reason.
func ParseReason(s string) Reason {
	if dep, ok := strings.CutPrefix(s, dependencyChangedPrefix); ok {
		return DependencyChanged(dep)
	}
	for kind, code := range reasonCodes {
		if code == s {
			return Reason{Kind: kind}
		}
	}
	return Reason{}
}

// Verdict is the result of a staleness check.
type Verdict struct {
	Needed bool
	Reason Reason
}
