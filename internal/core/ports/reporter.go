package ports

import "go.trai.ch/incr/internal/core/domain"

// Reporter receives per-item progress from the scheduler.
// It decouples the core from any presentation layer.
//
//go:generate mockgen -source=reporter.go -destination=mocks/mock_reporter.go -package=mocks
type Reporter interface {
	// OnPlan is called once with the ids of the pass in processing order.
	OnPlan(ids []string)
	// OnItem is called when an item is served from cache, computed, removed or failed.
	OnItem(p domain.Progress)
	// OnComplete is called with the final report of the pass.
	OnComplete(r *domain.Report)
}
