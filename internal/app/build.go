package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.trai.ch/incr/internal/adapters/extract"
	"go.trai.ch/incr/internal/adapters/fs"
	"go.trai.ch/incr/internal/adapters/layout"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// fileSummary is the cached result of a processed file.
type fileSummary struct {
	Bytes      int      `json:"bytes"`
	Lines      int      `json:"lines"`
	Kind       string   `json:"kind"`
	References []string `json:"references"`
}

// fileSession binds the file index to a scheduler. Watch mode reuses one
// session across passes so the graph and store stay in memory.
type fileSession struct {
	cfg   *domain.Config
	store ports.CacheStore
	fp    *fs.Fingerprinter
	sched *scheduler.Scheduler
}

func (a *App) openFileSession(opts BuildOptions) (*fileSession, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	fp, err := fs.NewFingerprinter(cfg.Root, cfg.TrustMetadata, cfg.MemoSize)
	if err != nil {
		return nil, err
	}

	store := a.openStore(cfg.Index, cfg.Compression)
	graph := scheduler.RestoreGraph(store)

	return &fileSession{
		cfg:   cfg,
		store: store,
		fp:    fp,
		sched: a.schedulers.New(graph, store, fp, a.reporter(opts)),
	}, nil
}

// Build runs one incremental pass over the files under the configured root.
func (a *App) Build(ctx context.Context, opts BuildOptions) (*domain.Report, error) {
	s, err := a.openFileSession(opts)
	if err != nil {
		return nil, err
	}
	return a.build(ctx, s, opts)
}

func (a *App) build(ctx context.Context, s *fileSession, opts BuildOptions) (*domain.Report, error) {
	ids := a.fileBatch(s)
	return a.runPass(ctx, s.sched, ids, a.summarize(s.fp), opts, s.cfg)
}

// fileBatch returns the walked files plus the stored ids, so deleted files are
// observed. Stored ids that no longer match the patterns are pruned.
func (a *App) fileBatch(s *fileSession) []string {
	cfg := s.cfg
	var walked []string
	for id := range a.walker.WalkFiles(cfg.Root, cfg.Include, cfg.Exclude) {
		walked = append(walked, id)
	}

	var stored []string
	for _, id := range s.store.IDs() {
		if !fs.Included(id, cfg.Include, cfg.Exclude) {
			s.store.Delete(id)
			s.sched.Graph().RemoveNode(id)
			a.logger.Debug(fmt.Sprintf("pruned %s: no longer matches include/exclude", id))
			continue
		}
		stored = append(stored, id)
	}

	return union(walked, stored)
}

// summarize returns the compute step of the file call site.
func (a *App) summarize(fp *fs.Fingerprinter) scheduler.ComputeFunc {
	return func(_ context.Context, id string) (domain.Output, error) {
		content, err := os.ReadFile(fp.Path(id))
		if err != nil {
			return domain.Output{}, zerr.With(zerr.Wrap(err, domain.ErrReadItemFailed.Error()), "id", id)
		}

		refs := []string{}
		if e, ok := a.extractors.For(id); ok {
			found, err := e.Extract(content, id)
			if err != nil {
				return domain.Output{}, zerr.With(err, "id", id)
			}
			refs = append(refs, found...)
		}

		result, err := json.Marshal(fileSummary{
			Bytes:      len(content),
			Lines:      countLines(content),
			Kind:       extract.Kind(id),
			References: refs,
		})
		if err != nil {
			return domain.Output{}, zerr.Wrap(err, domain.ErrComputeFailed.Error())
		}

		return domain.Output{Result: result, Dependencies: refs}, nil
	}
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte("\n"))
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// Layout runs one incremental pass over the nodes of the layout tree at treePath.
func (a *App) Layout(ctx context.Context, treePath string, opts BuildOptions) (*domain.Report, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	tree, err := layout.LoadTree(treePath)
	if err != nil {
		return nil, err
	}

	store := a.openStore(cfg.LayoutIndex, cfg.Compression)
	graph := scheduler.RestoreGraph(store)
	for parent, children := range tree.Edges() {
		graph.SetDependencies(parent, children)
	}

	sched := a.schedulers.New(graph, store, tree, a.reporter(opts))
	ids := union(tree.IDs(), store.IDs())

	return a.runPass(ctx, sched, ids, layout.NewMeasurer(tree, store).Measure, opts, cfg)
}
