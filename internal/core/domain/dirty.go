package domain

import "github.com/RoaringBitmap/roaring/v2"

// DirtySet is the set of items requiring recomputation in the current pass,
// with one reason per item.
type DirtySet struct {
	bits    *roaring.Bitmap
	reasons map[NodeID]Reason
}

// NewDirtySet returns an empty DirtySet.
func NewDirtySet() *DirtySet {
	return &DirtySet{
		bits:    roaring.New(),
		reasons: make(map[NodeID]Reason),
	}
}

// Mark adds n with reason r. It returns false and keeps the first reason if n
// is already marked.
func (d *DirtySet) Mark(n NodeID, r Reason) bool {
	if !d.bits.CheckedAdd(uint32(n)) {
		return false
	}
	d.reasons[n] = r
	return true
}

// Contains reports whether n is marked.
func (d *DirtySet) Contains(n NodeID) bool {
	return d.bits.Contains(uint32(n))
}

// Reason returns the reason n was marked with.
func (d *DirtySet) Reason(n NodeID) (Reason, bool) {
	r, ok := d.reasons[n]
	return r, ok
}

// Unmark removes n.
func (d *DirtySet) Unmark(n NodeID) {
	d.bits.Remove(uint32(n))
	delete(d.reasons, n)
}

// Len returns the number of marked items.
func (d *DirtySet) Len() int {
	return int(d.bits.GetCardinality())
}

// Nodes returns the marked handles in ascending order.
func (d *DirtySet) Nodes() []NodeID {
	raw := d.bits.ToArray()
	out := make([]NodeID, len(raw))
	for i, v := range raw {
		out[i] = NodeID(v)
	}
	return out
}

// Clear removes every mark.
func (d *DirtySet) Clear() {
	d.bits.Clear()
	clear(d.reasons)
}
