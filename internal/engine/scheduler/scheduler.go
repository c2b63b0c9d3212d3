// Package scheduler runs incremental passes over a batch of items.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/engine/tracker"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ItemStatus is the state of an item within the current pass.
type ItemStatus string

const (
	// StatusPending indicates the item has not been settled yet.
	StatusPending ItemStatus = "Pending"
	// StatusRunning indicates the compute step is executing.
	StatusRunning ItemStatus = "Running"
	// StatusCached indicates the stored result was reused.
	StatusCached ItemStatus = "Cached"
	// StatusComputed indicates the item was recomputed and stored.
	StatusComputed ItemStatus = "Computed"
	// StatusRemoved indicates the item no longer exists and was dropped.
	StatusRemoved ItemStatus = "Removed"
	// StatusFailed indicates the compute step failed or a dependency failed.
	StatusFailed ItemStatus = "Failed"
)

// ComputeFunc recomputes one item. It must be safe for concurrent use when
// Options.Parallelism is greater than one.
type ComputeFunc func(ctx context.Context, id string) (domain.Output, error)

// Options configure a pass.
type Options struct {
	// ContinueOnError keeps processing independent items after a compute failure.
	ContinueOnError bool
	// NoCache recomputes every item that still exists.
	NoCache bool
	// FlushEvery is the number of computed items between periodic saves.
	FlushEvery int
	// Parallelism bounds concurrent compute steps within a dependency wave.
	Parallelism int
}

func (o Options) withDefaults() Options {
	if o.FlushEvery <= 0 {
		o.FlushEvery = domain.DefaultFlushEvery
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 1
	}
	return o
}

// Scheduler orchestrates passes for one graph/store pair.
type Scheduler struct {
	graph    *domain.DependencyGraph
	store    ports.CacheStore
	tracker  *tracker.Tracker
	tracer   ports.Tracer
	reporter ports.Reporter
	logger   ports.Logger
	now      func() time.Time

	mu         sync.RWMutex
	itemStatus map[domain.ItemID]ItemStatus
}

// NewScheduler creates a Scheduler. The graph and store are owned by the
// scheduler for the duration of every pass.
func NewScheduler(
	graph *domain.DependencyGraph,
	store ports.CacheStore,
	fp ports.Fingerprinter,
	tracer ports.Tracer,
	reporter ports.Reporter,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		graph:      graph,
		store:      store,
		tracker:    tracker.New(graph, store, fp),
		tracer:     tracer,
		reporter:   reporter,
		logger:     logger,
		now:        time.Now,
		itemStatus: make(map[domain.ItemID]ItemStatus),
	}
}

// WithClock replaces the clock used for entry timestamps.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Graph returns the dependency graph the scheduler maintains.
func (s *Scheduler) Graph() *domain.DependencyGraph {
	return s.graph
}

// RestoreGraph rebuilds the dependency graph from the entries of a loaded store.
func RestoreGraph(store ports.CacheStore) *domain.DependencyGraph {
	g := domain.NewDependencyGraph()
	for _, id := range store.IDs() {
		entry, _ := store.Get(id)
		g.Node(id)
		for _, dep := range entry.DependencyIDs() {
			g.AddEdge(id, dep)
		}
	}
	return g
}

func (s *Scheduler) initStatuses(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.itemStatus)
	for _, id := range ids {
		s.itemStatus[domain.NewItemID(id)] = StatusPending
	}
}

func (s *Scheduler) status(id string) ItemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemStatus[domain.NewItemID(id)]
}

func (s *Scheduler) updateStatus(id string, status ItemStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemStatus[domain.NewItemID(id)] = status
}

// Process runs one pass over ids.
//
// Items are settled in topological order. Clean items are served from the
// store, deleted items are dropped, and stale items are recomputed through
// compute and written back. Item failures are reported in the returned report;
// the error is non-nil only when the pass was canceled or the final save failed.
// The store is saved at the end of every pass, including canceled ones.
func (s *Scheduler) Process(
	ctx context.Context,
	ids []string,
	compute ComputeFunc,
	opts Options,
) (*domain.Report, error) {
	opts = opts.withDefaults()
	runID := uuid.NewString()

	ctx, span := s.tracer.Start(ctx, "process",
		ports.WithAttribute("run_id", runID),
		ports.WithAttribute("items", len(ids)),
	)
	defer span.End()

	order, cycles := s.graph.TopologicalOrder(ids)
	for _, c := range cycles {
		s.logger.Warn(fmt.Sprintf("dependency cycle broken at %s", c))
	}

	s.tracker.BeginPass(order)
	s.initStatuses(order)
	s.reporter.OnPlan(order)

	p := &pass{
		Scheduler: s,
		opts:      opts,
		compute:   compute,
		report:    domain.NewReport(runID),
		failed:    roaring.New(),
	}
	p.report.Cycles = cycles

	var err error
	if opts.Parallelism > 1 {
		err = p.runWaves(ctx, order)
	} else {
		err = p.runSequential(ctx, order)
	}

	p.report.Metrics = p.metrics
	s.store.AddMetrics(p.metrics)
	if saveErr := s.store.Save(); saveErr != nil {
		err = errors.Join(err, saveErr)
	}

	span.SetAttribute("hits", p.metrics.Hits)
	span.SetAttribute("misses", p.metrics.Misses)
	if err != nil {
		span.RecordError(err)
	}

	s.reporter.OnComplete(p.report)
	return p.report, err
}

// pass holds the state of one Process call.
type pass struct {
	*Scheduler
	opts    Options
	compute ComputeFunc
	report  *domain.Report
	metrics domain.Metrics
	failed  *roaring.Bitmap

	sinceFlush int
}

// job is a compute step that has been decided but not committed.
type job struct {
	id     string
	reason domain.Reason
	out    domain.Output
	dur    time.Duration
	err    error
}

func (p *pass) runSequential(ctx context.Context, order []string) error {
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return p.cancel(err)
		}

		j, ok := p.plan(id)
		if !ok {
			continue
		}
		p.run(ctx, j)
		if p.commit(j) {
			p.report.Aborted = true
			return nil
		}
	}
	return nil
}

// runWaves groups items so that every item sits in a later wave than all of its
// in-batch dependencies. Decisions and commits stay sequential in topological
// order; only the compute steps within a wave run concurrently.
func (p *pass) runWaves(ctx context.Context, order []string) error {
	for _, wave := range p.waves(order) {
		if err := ctx.Err(); err != nil {
			return p.cancel(err)
		}

		var jobs []*job
		for _, id := range wave {
			if j, ok := p.plan(id); ok {
				jobs = append(jobs, j)
			}
		}

		var g errgroup.Group
		g.SetLimit(p.opts.Parallelism)
		for _, j := range jobs {
			g.Go(func() error {
				p.run(ctx, j)
				return nil
			})
		}
		_ = g.Wait()

		for _, j := range jobs {
			if p.commit(j) {
				p.report.Aborted = true
				return nil
			}
		}
	}
	return nil
}

func (p *pass) waves(order []string) [][]string {
	level := make(map[domain.NodeID]int, len(order))
	var waves [][]string
	for _, id := range order {
		w := 0
		for _, dep := range p.batchDependencies(id) {
			if dl, ok := level[dep]; ok && dl+1 > w {
				w = dl + 1
			}
		}
		level[p.graph.Node(id)] = w
		if w == len(waves) {
			waves = append(waves, nil)
		}
		waves[w] = append(waves[w], id)
	}
	return waves
}

// batchDependencies returns the in-batch items id depends on, looking through
// dependencies that are not part of the batch.
func (p *pass) batchDependencies(id string) []domain.NodeID {
	start := p.graph.Node(id)
	seen := roaring.New()
	seen.Add(uint32(start))
	queue := []domain.NodeID{start}
	var out []domain.NodeID

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, dep := range p.graph.Dependencies(n) {
			if !seen.CheckedAdd(uint32(dep)) {
				continue
			}
			if p.tracker.InBatch(p.graph.ID(dep)) {
				out = append(out, dep)
				continue
			}
			queue = append(queue, dep)
		}
	}
	return out
}

func (p *pass) cancel(cause error) error {
	p.report.Aborted = true
	return zerr.Wrap(cause, domain.ErrProcessCanceled.Error())
}

// plan settles id if it needs no compute step and returns a job otherwise.
func (p *pass) plan(id string) (*job, bool) {
	if dep, ok := p.failedDependency(id); ok {
		err := zerr.With(domain.ErrDependencyFailed, "dependency", dep)
		p.fail(id, domain.DependencyChanged(dep), 0, err)
		return nil, false
	}

	verdict := p.verdict(id)
	switch {
	case !verdict.Needed:
		p.hit(id)
		return nil, false
	case verdict.Reason.Kind == domain.ReasonDeleted:
		p.drop(id)
		return nil, false
	}

	p.updateStatus(id, StatusRunning)
	return &job{id: id, reason: verdict.Reason}, true
}

func (p *pass) verdict(id string) domain.Verdict {
	if !p.opts.NoCache {
		return p.tracker.NeedsProcessing(id)
	}
	if p.tracker.Fingerprint(id).Absent() {
		deleted := domain.Reason{Kind: domain.ReasonDeleted}
		p.tracker.MarkDirty(id, deleted)
		return domain.Verdict{Needed: true, Reason: deleted}
	}
	forced := domain.Reason{Kind: domain.ReasonForced}
	p.tracker.MarkDirty(id, forced)
	return domain.Verdict{Needed: true, Reason: forced}
}

func (p *pass) failedDependency(id string) (string, bool) {
	if p.failed.IsEmpty() {
		return "", false
	}
	for _, dep := range p.batchDependencies(id) {
		if p.failed.Contains(uint32(dep)) {
			return p.graph.ID(dep), true
		}
	}
	return "", false
}

func (p *pass) hit(id string) {
	entry, _ := p.store.Get(id)
	p.metrics.Hits++
	p.report.Results[id] = slices.Clone(entry.Result)
	p.settle(domain.Progress{ID: id, FromCache: true}, StatusCached)
}

func (p *pass) drop(id string) {
	if _, ok := p.store.Get(id); ok {
		p.store.Delete(id)
		p.metrics.Removed++
	}
	p.tracker.Cascade(id)
	p.tracker.Forget(id)
	p.graph.RemoveNode(id)
	p.logger.Debug(fmt.Sprintf("removed %s from cache", id))
	p.settle(domain.Progress{ID: id, Reason: domain.Reason{Kind: domain.ReasonDeleted}}, StatusRemoved)
}

// run invokes the compute step for j inside its own span.
func (p *pass) run(ctx context.Context, j *job) {
	ctx, span := p.tracer.Start(ctx, j.id, ports.WithAttribute("reason", j.reason.String()))
	defer span.End()

	start := time.Now()
	j.out, j.err = p.compute(ctx, j.id)
	j.dur = time.Since(start)
	if j.err != nil {
		span.RecordError(j.err)
	}
}

// commit writes the outcome of j back to the graph and store.
// It returns true if the pass must stop.
func (p *pass) commit(j *job) bool {
	p.metrics.Processed++
	p.metrics.Misses++
	p.metrics.ProcessingTime += j.dur

	if j.err != nil {
		p.fail(j.id, j.reason, j.dur, j.err)
		return !p.opts.ContinueOnError
	}

	fp := p.tracker.Refresh(j.id)
	if j.out.Dependencies != nil {
		p.graph.SetDependencies(j.id, j.out.Dependencies)
	}

	snapshot := make(map[string]string)
	for _, dep := range p.graph.DependenciesOf(j.id) {
		depEntry, _ := p.store.Get(dep)
		snapshot[dep] = depEntry.Digest
	}

	result := slices.Clone(j.out.Result)
	digest := domain.ResultDigest(fp.ContentHash, result)
	p.store.Put(j.id, domain.CacheEntry{
		Fingerprint:  fp,
		Result:       result,
		Dependencies: snapshot,
		Digest:       digest,
		ComputedAt:   p.now().UTC(),
	})
	p.refreshSnapshots(j.id, digest)
	p.tracker.Resolve(j.id)
	p.tracker.Cascade(j.id)

	p.report.Results[j.id] = result
	p.settle(domain.Progress{ID: j.id, Reason: j.reason, Duration: j.dur}, StatusComputed)
	p.flush()
	return false
}

// refreshSnapshots records digest for id in the entries of dependents that
// were computed earlier in this pass. A compute step can name a dependency that
// comes later in the order; the dependent already saw that dependency's current
// content, so only its snapshot is behind.
func (p *pass) refreshSnapshots(id, digest string) {
	for _, dependent := range p.graph.DependentsOf(id) {
		if p.status(dependent) != StatusComputed {
			continue
		}
		entry, ok := p.store.Get(dependent)
		if !ok || entry.Dependencies[id] == digest {
			continue
		}
		if entry.Dependencies == nil {
			entry.Dependencies = make(map[string]string, 1)
		}
		entry.Dependencies[id] = digest
		p.store.Put(dependent, entry)
	}
}

func (p *pass) fail(id string, reason domain.Reason, dur time.Duration, err error) {
	p.metrics.Errors++
	p.failed.Add(uint32(p.graph.Node(id)))
	p.report.Errors = append(p.report.Errors, domain.ItemError{ID: id, Err: err})
	p.logger.Debug(fmt.Sprintf("%s failed: %v", id, err))
	p.settle(domain.Progress{ID: id, Reason: reason, Duration: dur, Err: err}, StatusFailed)
}

func (p *pass) settle(progress domain.Progress, status ItemStatus) {
	p.updateStatus(progress.ID, status)
	p.report.Items = append(p.report.Items, progress)
	p.reporter.OnItem(progress)
}

// flush saves the store every FlushEvery computed items.
func (p *pass) flush() {
	p.sinceFlush++
	if p.sinceFlush < p.opts.FlushEvery {
		return
	}
	p.sinceFlush = 0
	if err := p.store.Save(); err != nil {
		p.logger.Warn(fmt.Sprintf("periodic cache flush failed: %v", err))
	}
}
