package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/incr/internal/adapters/cas"     //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/config"  //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/extract" //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/fs"      //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/logger"  //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components is everything main needs from the dependency graph.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			cas.NodeID,
			fs.WalkerNodeID,
			extract.NodeID,
			scheduler.NodeID,
			watcher.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: a, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	opener, err := graft.Dep[ports.StoreOpener](ctx)
	if err != nil {
		return nil, err
	}

	walker, err := graft.Dep[*fs.Walker](ctx)
	if err != nil {
		return nil, err
	}

	extractors, err := graft.Dep[*extract.Registry](ctx)
	if err != nil {
		return nil, err
	}

	schedulers, err := graft.Dep[*scheduler.Factory](ctx)
	if err != nil {
		return nil, err
	}

	watchers, err := graft.Dep[ports.WatcherFactory](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, log, opener, walker, extractors, schedulers, watchers), nil
}
