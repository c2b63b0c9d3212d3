// Package domain contains the core domain models of the incremental dependency cache.
package domain

import "slices"

// NodeID is a dense handle into a DependencyGraph arena.
type NodeID uint32

// Cycle is a back edge skipped while ordering: From depends on To, and To was
// still being visited.
type Cycle struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// String formats the edge as "from -> to".
func (c Cycle) String() string {
	return c.From + " -> " + c.To
}

// DependencyGraph stores "depends-on" edges between items.
// Items live in a dense arena addressed by NodeID; forward and reverse adjacency
// are kept as NodeID lists so staleness walks never hash strings.
// A removed node keeps its arena slot with no edges.
type DependencyGraph struct {
	ids   []ItemID
	index map[ItemID]NodeID
	deps  [][]NodeID
	rdeps [][]NodeID
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		index: make(map[ItemID]NodeID),
	}
}

// Node returns the handle for id, adding an isolated node if it is new.
func (g *DependencyGraph) Node(id string) NodeID {
	key := NewItemID(id)
	if n, ok := g.index[key]; ok {
		return n
	}
	n := NodeID(len(g.ids))
	g.ids = append(g.ids, key)
	g.deps = append(g.deps, nil)
	g.rdeps = append(g.rdeps, nil)
	g.index[key] = n
	return n
}

// Lookup returns the handle for id without adding it.
func (g *DependencyGraph) Lookup(id string) (NodeID, bool) {
	n, ok := g.index[NewItemID(id)]
	return n, ok
}

// ID returns the string id of a handle.
func (g *DependencyGraph) ID(n NodeID) string {
	return g.ids[n].String()
}

// Len returns the number of arena slots.
func (g *DependencyGraph) Len() int {
	return len(g.ids)
}

// AddEdge records that dependent depends on dependency. It is idempotent.
// Self edges are ignored.
func (g *DependencyGraph) AddEdge(dependent, dependency string) {
	from := g.Node(dependent)
	to := g.Node(dependency)
	g.link(from, to)
}

func (g *DependencyGraph) link(from, to NodeID) {
	if from == to || slices.Contains(g.deps[from], to) {
		return
	}
	g.deps[from] = append(g.deps[from], to)
	g.rdeps[to] = append(g.rdeps[to], from)
}

// SetDependencies replaces the dependency set of id.
func (g *DependencyGraph) SetDependencies(id string, deps []string) {
	from := g.Node(id)
	for _, old := range g.deps[from] {
		g.rdeps[old] = remove(g.rdeps[old], from)
	}
	g.deps[from] = nil
	for _, dep := range deps {
		g.link(from, g.Node(dep))
	}
}

// RemoveNode drops every edge touching id and returns its former dependents.
func (g *DependencyGraph) RemoveNode(id string) []string {
	n, ok := g.Lookup(id)
	if !ok {
		return nil
	}
	for _, dep := range g.deps[n] {
		g.rdeps[dep] = remove(g.rdeps[dep], n)
	}
	dependents := g.names(g.rdeps[n])
	for _, parent := range g.rdeps[n] {
		g.deps[parent] = remove(g.deps[parent], n)
	}
	g.deps[n] = nil
	g.rdeps[n] = nil
	return dependents
}

// DependenciesOf returns the ids id depends on, in insertion order.
func (g *DependencyGraph) DependenciesOf(id string) []string {
	n, ok := g.Lookup(id)
	if !ok {
		return nil
	}
	return g.names(g.deps[n])
}

// DependentsOf returns the ids that depend on id, in insertion order.
func (g *DependencyGraph) DependentsOf(id string) []string {
	n, ok := g.Lookup(id)
	if !ok {
		return nil
	}
	return g.names(g.rdeps[n])
}

// Dependencies returns the forward adjacency of n. The slice must not be modified.
func (g *DependencyGraph) Dependencies(n NodeID) []NodeID {
	return g.deps[n]
}

// Dependents returns the reverse adjacency of n. The slice must not be modified.
func (g *DependencyGraph) Dependents(n NodeID) []NodeID {
	return g.rdeps[n]
}

const (
	unvisited uint8 = iota
	visiting
	visited
)

type frame struct {
	n    NodeID
	next int
}

// TopologicalOrder orders ids so that every id follows its in-set dependencies.
//
// The traversal is one explicit-stack depth-first search sharing a single visit
// table. Edges through ids outside the set are followed so transitive ordering
// holds. An edge into a node that is still being visited is a cycle: it is not
// followed and is returned as a Cycle, so the call always terminates and every id
// appears exactly once. Roots are taken in input order and dependencies in
// insertion order, making the result deterministic.
// Unknown ids are added to the graph as isolated nodes.
func (g *DependencyGraph) TopologicalOrder(ids []string) ([]string, []Cycle) {
	roots := make([]NodeID, 0, len(ids))
	for _, id := range ids {
		roots = append(roots, g.Node(id))
	}

	inSet := make([]bool, len(g.ids))
	for _, n := range roots {
		inSet[n] = true
	}

	state := make([]uint8, len(g.ids))
	order := make([]string, 0, len(roots))
	var cycles []Cycle
	var stack []frame

	for _, root := range roots {
		if state[root] != unvisited {
			continue
		}
		state[root] = visiting
		stack = append(stack, frame{n: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(g.deps[top.n]) {
				dep := g.deps[top.n][top.next]
				top.next++
				switch state[dep] {
				case unvisited:
					state[dep] = visiting
					stack = append(stack, frame{n: dep})
				case visiting:
					cycles = append(cycles, Cycle{From: g.ID(top.n), To: g.ID(dep)})
				}
				continue
			}

			state[top.n] = visited
			if inSet[top.n] {
				order = append(order, g.ID(top.n))
			}
			stack = stack[:len(stack)-1]
		}
	}

	return order, cycles
}

func (g *DependencyGraph) names(nodes []NodeID) []string {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = g.ID(n)
	}
	return out
}

func remove(list []NodeID, n NodeID) []NodeID {
	if i := slices.Index(list, n); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}
