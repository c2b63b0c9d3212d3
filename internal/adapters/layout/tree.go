// Package layout implements the layout-node call site: a YAML tree of boxes
// whose sizes are recalculated incrementally.
package layout

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.Fingerprinter = (*Tree)(nil)

// Direction is the main axis along which a container stacks its children.
type Direction string

const (
	// DirectionColumn stacks children vertically.
	DirectionColumn Direction = "column"
	// DirectionRow stacks children horizontally.
	DirectionRow Direction = "row"
)

// Node is a box in the layout tree.
type Node struct {
	ID        string    `yaml:"id"`
	Width     *float64  `yaml:"width,omitempty"`
	Height    *float64  `yaml:"height,omitempty"`
	Direction Direction `yaml:"direction,omitempty"`
	Padding   float64   `yaml:"padding,omitempty"`
	Gap       float64   `yaml:"gap,omitempty"`
	Children  []*Node   `yaml:"children,omitempty"`
}

// ChildIDs returns the ids of the node's children in order.
func (n *Node) ChildIDs() []string {
	ids := make([]string, len(n.Children))
	for i, c := range n.Children {
		ids[i] = c.ID
	}
	return ids
}

// Tree is a parsed layout tree indexed by node id.
type Tree struct {
	root  *Node
	nodes map[string]*Node
	order []string
}

// LoadTree reads and parses the layout tree at path.
func LoadTree(path string) (*Tree, error) {
	//nolint:gosec // Path is provided by the user on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLayoutReadFailed.Error()), "path", path)
	}

	tree, err := ParseTree(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return tree, nil
}

// ParseTree parses a YAML layout tree.
func ParseTree(data []byte) (*Tree, error) {
	var root Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, zerr.Wrap(err, domain.ErrLayoutParseFailed.Error())
	}

	t := &Tree{root: &root, nodes: make(map[string]*Node)}
	if err := t.index(&root); err != nil {
		return nil, err
	}
	return t, nil
}

type indexFrame struct {
	node *Node
	next int
}

// index validates every node and records a post-order, so children always
// precede their parent.
func (t *Tree) index(root *Node) error {
	stack := []*indexFrame{{node: root}}
	if err := t.register(root); err != nil {
		return err
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		if f.next == len(f.node.Children) {
			t.order = append(t.order, f.node.ID)
			stack = stack[:len(stack)-1]
			continue
		}

		child := f.node.Children[f.next]
		f.next++
		if err := t.register(child); err != nil {
			return err
		}
		stack = append(stack, &indexFrame{node: child})
	}
	return nil
}

func (t *Tree) register(n *Node) error {
	if n == nil || n.ID == "" {
		return domain.ErrLayoutMissingID
	}
	if _, dup := t.nodes[n.ID]; dup {
		return zerr.With(domain.ErrLayoutDuplicateNode, "id", n.ID)
	}
	switch n.Direction {
	case "":
		n.Direction = DirectionColumn
	case DirectionColumn, DirectionRow:
	default:
		return zerr.With(zerr.With(domain.ErrLayoutInvalidDirection, "id", n.ID), "direction", string(n.Direction))
	}
	t.nodes[n.ID] = n
	return nil
}

// Root returns the id of the root node.
func (t *Tree) Root() string {
	return t.root.ID
}

// IDs returns every node id, children before parents.
func (t *Tree) IDs() []string {
	return t.order
}

// Node returns the node with the given id.
func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Edges returns each container's child ids keyed by container id.
func (t *Tree) Edges() map[string][]string {
	edges := make(map[string][]string)
	for id, n := range t.nodes {
		if len(n.Children) > 0 {
			edges[id] = n.ChildIDs()
		}
	}
	return edges
}

// Fingerprint implements ports.Fingerprinter. The content hash covers the
// node's own properties and its ordered child ids; a child's properties do not
// contribute. Nodes missing from the tree are absent.
func (t *Tree) Fingerprint(id string) domain.Fingerprint {
	n, ok := t.nodes[id]
	if !ok {
		return domain.AbsentFingerprint
	}

	canonical := canonicalize(n)
	sum := sha256.Sum256(canonical)
	return domain.Fingerprint{
		ContentHash: hex.EncodeToString(sum[:]),
		MetaHash:    domain.HexDigest(xxhash.Sum64(canonical)),
	}
}

func canonicalize(n *Node) []byte {
	buf := make([]byte, 0, 128)
	buf = appendOptional(buf, n.Width)
	buf = appendOptional(buf, n.Height)
	buf = append(buf, n.Direction...)
	buf = append(buf, 0)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(n.Padding))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(n.Gap))
	for _, c := range n.Children {
		buf = append(buf, c.ID...)
		buf = append(buf, 0)
	}
	return buf
}

func appendOptional(buf []byte, v *float64) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return binary.LittleEndian.AppendUint64(buf, math.Float64bits(*v))
}
