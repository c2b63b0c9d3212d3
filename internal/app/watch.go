package app

import (
	"context"
	"errors"
	"fmt"

	"go.trai.ch/incr/internal/adapters/watcher"
	"go.trai.ch/incr/internal/core/domain"
)

// Watch builds once and then rebuilds whenever files under the root change,
// until ctx is canceled. Failed passes are logged and watching continues.
func (a *App) Watch(ctx context.Context, opts BuildOptions) error {
	s, err := a.openFileSession(opts)
	if err != nil {
		return err
	}

	a.rebuild(ctx, s, opts)

	w, err := a.watchers.New()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.Start(ctx, s.cfg.Root, []string{domain.IncrDirName}); err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("watching %s for changes", s.cfg.Root))

	trigger := make(chan int, 1)
	debouncer := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
		select {
		case trigger <- len(paths):
		default:
		}
	})
	defer debouncer.Stop()

	go func() {
		for event := range w.Events() {
			a.logger.Debug(fmt.Sprintf("%s %s", event.Operation, event.Path))
			debouncer.Add(event.Path)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-trigger:
			a.logger.Info(fmt.Sprintf("%d path(s) changed, rebuilding", n))
			a.rebuild(ctx, s, opts)
		}
	}
}

// rebuild runs one pass and reports its failure without stopping watch mode.
func (a *App) rebuild(ctx context.Context, s *fileSession, opts BuildOptions) {
	_, err := a.build(ctx, s, opts)
	switch {
	case err == nil, ctx.Err() != nil:
	case errors.Is(err, domain.ErrProcessFailed):
		a.logger.Warn("pass finished with errors")
	default:
		a.logger.Error(err)
	}
}
