package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/incr/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/incr/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
)

// NodeID is the unique identifier for the scheduler factory Graft node.
const NodeID graft.ID = "engine.scheduler"

// Factory builds schedulers that share the process-wide tracer and logger.
// Each call site owns its own graph and store, so schedulers are created per use.
type Factory struct {
	tracer ports.Tracer
	logger ports.Logger
}

// NewFactory creates a Factory.
func NewFactory(tracer ports.Tracer, logger ports.Logger) *Factory {
	return &Factory{tracer: tracer, logger: logger}
}

// New creates a Scheduler over graph and store.
func (f *Factory) New(
	graph *domain.DependencyGraph,
	store ports.CacheStore,
	fp ports.Fingerprinter,
	reporter ports.Reporter,
) *Scheduler {
	return NewScheduler(graph, store, fp, f.tracer, reporter, f.logger)
}

func init() {
	graft.Register(graft.Node[*Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Factory, error) {
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewFactory(tracer, log), nil
		},
	})
}
