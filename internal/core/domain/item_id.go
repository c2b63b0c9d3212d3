package domain

import "unique"

// ItemID is an interned item identifier.
// Paths and node ids repeat across the graph, the store and every pass, so they are
// held as unique.Handle[string] and compared by pointer.
type ItemID struct {
	h unique.Handle[string]
}

// NewItemID interns s and returns its ItemID.
func NewItemID(s string) ItemID {
	return ItemID{h: unique.Make(s)}
}

// NewItemIDs interns every string in s.
func NewItemIDs(s []string) []ItemID {
	res := make([]ItemID, len(s))
	for i, v := range s {
		res[i] = NewItemID(v)
	}
	return res
}

// String returns the underlying string value.
func (id ItemID) String() string {
	return id.h.Value()
}

// Handle returns the underlying unique.Handle[string].
func (id ItemID) Handle() unique.Handle[string] {
	return id.h
}

// MarshalText implements encoding.TextMarshaler.
func (id ItemID) MarshalText() ([]byte, error) {
	return []byte(id.h.Value()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ItemID) UnmarshalText(text []byte) error {
	id.h = unique.Make(string(text))
	return nil
}
