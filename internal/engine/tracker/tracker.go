// Package tracker decides which items of a pass are stale and cascades staleness to dependents.
package tracker

import (
	"github.com/RoaringBitmap/roaring/v2"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
)

var clean = domain.Verdict{}

// Tracker is the invalidation tracker for one graph/store pair.
// Verdicts and fingerprints are memoized for the duration of a pass; BeginPass resets them.
// A Tracker is not safe for concurrent use.
type Tracker struct {
	graph *domain.DependencyGraph
	store ports.CacheStore
	fp    ports.Fingerprinter

	batch  *roaring.Bitmap
	memo   map[domain.NodeID]domain.Verdict
	prints map[domain.NodeID]domain.Fingerprint
	dirty  *domain.DirtySet
}

// New creates a Tracker.
func New(graph *domain.DependencyGraph, store ports.CacheStore, fp ports.Fingerprinter) *Tracker {
	return &Tracker{
		graph:  graph,
		store:  store,
		fp:     fp,
		batch:  roaring.New(),
		memo:   make(map[domain.NodeID]domain.Verdict),
		prints: make(map[domain.NodeID]domain.Fingerprint),
		dirty:  domain.NewDirtySet(),
	}
}

// BeginPass resets all pass-scoped state and records the batch membership.
func (t *Tracker) BeginPass(ids []string) {
	t.batch.Clear()
	for _, id := range ids {
		t.batch.Add(uint32(t.graph.Node(id)))
	}
	clear(t.memo)
	clear(t.prints)
	t.dirty.Clear()
}

// InBatch reports whether id belongs to the current pass.
func (t *Tracker) InBatch(id string) bool {
	n, ok := t.graph.Lookup(id)
	return ok && t.batch.Contains(uint32(n))
}

// Fingerprint returns the fingerprint of id, reading it at most once per pass.
func (t *Tracker) Fingerprint(id string) domain.Fingerprint {
	n := t.graph.Node(id)
	if fp, ok := t.prints[n]; ok {
		return fp
	}
	fp := t.fp.Fingerprint(id)
	t.prints[n] = fp
	return fp
}

// Refresh re-reads the fingerprint of id, replacing the pass cache.
func (t *Tracker) Refresh(id string) domain.Fingerprint {
	fp := t.fp.Fingerprint(id)
	t.prints[t.graph.Node(id)] = fp
	return fp
}

// Dirty returns the dirty set of the current pass.
func (t *Tracker) Dirty() *domain.DirtySet {
	return t.dirty
}

// MarkDirty marks id as needing processing. It returns false if id was already dirty.
func (t *Tracker) MarkDirty(id string, reason domain.Reason) bool {
	n := t.graph.Node(id)
	delete(t.memo, n)
	return t.dirty.Mark(n, reason)
}

// Resolve records that id was freshly computed in this pass.
// Later staleness checks treat it as clean; its dirty mark is kept for reporting.
func (t *Tracker) Resolve(id string) {
	t.memo[t.graph.Node(id)] = clean
}

// Forget drops the pass state of an item that no longer exists.
func (t *Tracker) Forget(id string) {
	n, ok := t.graph.Lookup(id)
	if !ok {
		return
	}
	delete(t.prints, n)
	t.memo[n] = clean
}

// Cascade marks every transitive dependent of id dirty with reason
// dependency-changed:<immediate dependency> and returns the newly marked ids.
// Dependents that are already dirty are neither re-marked nor walked through:
// whatever marked them cascades from them as well.
func (t *Tracker) Cascade(id string) []string {
	start, ok := t.graph.Lookup(id)
	if !ok {
		return nil
	}

	seen := roaring.New()
	seen.Add(uint32(start))
	queue := []domain.NodeID{start}
	var marked []string

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, parent := range t.graph.Dependents(n) {
			if !seen.CheckedAdd(uint32(parent)) {
				continue
			}
			if !t.dirty.Mark(parent, domain.DependencyChanged(t.graph.ID(n))) {
				continue
			}
			delete(t.memo, parent)
			marked = append(marked, t.graph.ID(parent))
			queue = append(queue, parent)
		}
	}

	return marked
}

type evalFrame struct {
	n     domain.NodeID
	entry domain.CacheEntry
	deps  []string
	next  int
}

// NeedsProcessing reports whether id must be recomputed, and why.
//
// An item is stale when it is marked dirty, has no entry, is absent, its
// fingerprint changed, or one of its recorded dependencies changed since the
// entry was written or is itself stale. The dependency walk uses an explicit
// stack; a dependency already on the stack closes a cycle and is skipped.
// A stale id is added to the dirty set with its reason.
func (t *Tracker) NeedsProcessing(id string) domain.Verdict {
	root := t.graph.Node(id)
	v := t.evaluate(root)
	if v.Needed {
		t.dirty.Mark(root, v.Reason)
	}
	return v
}

func (t *Tracker) evaluate(root domain.NodeID) domain.Verdict {
	if v, ok := t.memo[root]; ok {
		return v
	}

	var stack []*evalFrame
	onStack := make(map[domain.NodeID]bool)

	// enter settles n from local evidence, or pushes it for a dependency walk.
	enter := func(n domain.NodeID) (domain.Verdict, bool) {
		if v, ok := t.memo[n]; ok {
			return v, true
		}
		entry, v, decided := t.localCheck(n)
		if decided {
			t.memo[n] = v
			return v, true
		}
		stack = append(stack, &evalFrame{n: n, entry: entry, deps: entry.DependencyIDs()})
		onStack[n] = true
		return clean, false
	}

	// unwind settles every frame on the stack as needed: the top frame with
	// reason, each frame below it because of the frame above.
	unwind := func(reason domain.Reason) {
		for i := len(stack) - 1; i >= 0; i-- {
			t.memo[stack[i].n] = domain.Verdict{Needed: true, Reason: reason}
			reason = domain.DependencyChanged(t.graph.ID(stack[i].n))
		}
		stack = stack[:0]
	}

	if v, decided := enter(root); decided {
		return v
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		if f.next == len(f.deps) {
			t.memo[f.n] = clean
			delete(onStack, f.n)
			stack = stack[:len(stack)-1]
			continue
		}

		dep := f.deps[f.next]
		f.next++

		dn := t.graph.Node(dep)
		if onStack[dn] {
			continue
		}

		depEntry, ok := t.store.Get(dep)
		switch {
		case !ok && t.batch.Contains(uint32(dn)):
			unwind(domain.DependencyChanged(dep))
			continue
		case !ok:
			if f.entry.Dependencies[dep] != "" {
				unwind(domain.DependencyChanged(dep))
			}
			continue
		case depEntry.Digest != f.entry.Dependencies[dep]:
			unwind(domain.DependencyChanged(dep))
			continue
		}

		v, decided := enter(dn)
		if decided && v.Needed {
			unwind(domain.DependencyChanged(dep))
		}
	}

	return t.memo[root]
}

// localCheck classifies n without looking at its dependencies.
// decided is false only when n has a matching entry with recorded dependencies.
func (t *Tracker) localCheck(n domain.NodeID) (domain.CacheEntry, domain.Verdict, bool) {
	if r, ok := t.dirty.Reason(n); ok {
		return domain.CacheEntry{}, domain.Verdict{Needed: true, Reason: r}, true
	}

	id := t.graph.ID(n)
	fp := t.Fingerprint(id)
	entry, ok := t.store.Get(id)

	switch {
	case fp.Absent():
		return entry, needed(domain.ReasonDeleted), true
	case !ok:
		return entry, needed(domain.ReasonNew), true
	case fp.ContentHash != entry.Fingerprint.ContentHash:
		return entry, needed(domain.ReasonContentChanged), true
	case fp.MetaHash != entry.Fingerprint.MetaHash:
		return entry, needed(domain.ReasonMetadataChanged), true
	case len(entry.Dependencies) == 0:
		return entry, clean, true
	}
	return entry, clean, false
}

func needed(kind domain.ReasonKind) domain.Verdict {
	return domain.Verdict{Needed: true, Reason: domain.Reason{Kind: kind}}
}
