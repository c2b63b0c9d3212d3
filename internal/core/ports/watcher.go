package ports

import (
	"context"
	"iter"
)

// WatchOp represents the type of file system operation.
type WatchOp uint8

const (
	// OpCreate indicates a file or directory was created.
	OpCreate WatchOp = iota
	// OpWrite indicates a file was modified.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// String returns the lowercase operation name.
func (op WatchOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// WatchEvent is a change under the watched root.
type WatchEvent struct {
	// Path is the absolute path of the file or directory that changed.
	Path      string
	Operation WatchOp
}

// Watcher reports file system changes that should trigger an incremental pass.
//
//go:generate mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type Watcher interface {
	// Start begins watching root recursively, skipping the given directory names.
	Start(ctx context.Context, root string, skip []string) error
	// Stop releases all resources. Events stops yielding afterwards.
	Stop() error
	// Events returns an iterator of file system events.
	Events() iter.Seq[WatchEvent]
}

// WatcherFactory creates watchers on demand so that only watch mode holds
// file system notification handles.
type WatcherFactory interface {
	// New returns a watcher that has not been started.
	New() (Watcher, error)
}
