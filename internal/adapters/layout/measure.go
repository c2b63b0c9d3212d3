package layout

import (
	"context"
	"encoding/json"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

// Box is the measured size of a node and the result payload of a layout entry.
type Box struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Measurer computes node boxes, reading child boxes from the layout store.
type Measurer struct {
	tree  *Tree
	store ports.CacheStore
}

// NewMeasurer creates a Measurer.
func NewMeasurer(tree *Tree, store ports.CacheStore) *Measurer {
	return &Measurer{tree: tree, store: store}
}

// Measure is the compute step of the layout call site.
//
// A leaf's box is its fixed size. A container's box is twice its padding plus
// the sum of its children along the main axis plus the gaps between them, and
// twice its padding plus the largest child across the cross axis. Fixed sizes
// take precedence on either axis.
func (m *Measurer) Measure(_ context.Context, id string) (domain.Output, error) {
	n, ok := m.tree.Node(id)
	if !ok {
		return domain.Output{}, zerr.With(domain.ErrLayoutNodeNotFound, "id", id)
	}

	var main, cross float64
	for i, child := range n.Children {
		box, err := m.childBox(child.ID)
		if err != nil {
			return domain.Output{}, zerr.With(err, "parent", id)
		}
		cm, cc := box.Height, box.Width
		if n.Direction == DirectionRow {
			cm, cc = box.Width, box.Height
		}
		main += cm
		if i > 0 {
			main += n.Gap
		}
		cross = max(cross, cc)
	}
	main += 2 * n.Padding
	cross += 2 * n.Padding

	box := Box{Width: cross, Height: main}
	if n.Direction == DirectionRow {
		box = Box{Width: main, Height: cross}
	}
	if n.Width != nil {
		box.Width = *n.Width
	}
	if n.Height != nil {
		box.Height = *n.Height
	}

	result, err := json.Marshal(box)
	if err != nil {
		return domain.Output{}, zerr.Wrap(err, domain.ErrComputeFailed.Error())
	}
	return domain.Output{Result: result, Dependencies: n.ChildIDs()}, nil
}

func (m *Measurer) childBox(id string) (Box, error) {
	entry, ok := m.store.Get(id)
	if !ok {
		return Box{}, zerr.With(domain.ErrLayoutChildNotMeasured, "child", id)
	}
	var box Box
	if err := json.Unmarshal(entry.Result, &box); err != nil {
		return Box{}, zerr.With(zerr.Wrap(err, domain.ErrLayoutChildNotMeasured.Error()), "child", id)
	}
	return box, nil
}
