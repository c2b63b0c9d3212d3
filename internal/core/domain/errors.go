package domain

import "go.trai.ch/zerr"

var (
	// ErrDependencyFailed is recorded for an item whose in-batch dependency failed in the same pass.
	ErrDependencyFailed = zerr.New("dependency failed")

	// ErrComputeFailed is returned when a compute step fails.
	ErrComputeFailed = zerr.New("compute step failed")

	// ErrProcessFailed is returned when a pass finished with item errors.
	ErrProcessFailed = zerr.New("processing failed")

	// ErrProcessCanceled is returned when a pass stopped because its context was canceled.
	ErrProcessCanceled = zerr.New("processing canceled")

	// ErrItemNotFound is returned when a requested item has no cache entry.
	ErrItemNotFound = zerr.New("item not found in cache")

	// ErrResultPathNotFound is returned when a query path selects nothing in a cached result.
	ErrResultPathNotFound = zerr.New("path not found in cached result")

	// ErrIndexRemoveFailed is returned when an index file cannot be deleted.
	ErrIndexRemoveFailed = zerr.New("failed to remove cache index")

	// ErrStoreCreateFailed is returned when the index directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create cache directory")

	// ErrStoreReadFailed is returned when the index cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cache index")

	// ErrStoreUnmarshalFailed is returned when the index cannot be decoded.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal cache index")

	// ErrStoreMarshalFailed is returned when the index cannot be encoded.
	ErrStoreMarshalFailed = zerr.New("failed to marshal cache index")

	// ErrStoreWriteFailed is returned when the index cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write cache index")

	// ErrStoreVersionMismatch is returned when the index was written by an incompatible version.
	ErrStoreVersionMismatch = zerr.New("unsupported cache index version")

	// ErrStoreDecompressFailed is returned when a compressed index cannot be decoded.
	ErrStoreDecompressFailed = zerr.New("failed to decompress cache index")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidCompression is returned when the configured compression is unknown.
	ErrInvalidCompression = zerr.New("invalid compression, expected 'none', 'zstd' or 'lz4'")

	// ErrInvalidFlushEvery is returned when the flush threshold is not positive.
	ErrInvalidFlushEvery = zerr.New("flush_every must be positive")

	// ErrInvalidParallelism is returned when parallelism is not positive.
	ErrInvalidParallelism = zerr.New("parallelism must be positive")

	// ErrInvalidPattern is returned when an include, exclude or clean pattern is malformed.
	ErrInvalidPattern = zerr.New("invalid glob pattern")

	// ErrWalkFailed is returned when the source tree cannot be walked.
	ErrWalkFailed = zerr.New("failed to walk source tree")

	// ErrReadItemFailed is returned when an item's content cannot be read during compute.
	ErrReadItemFailed = zerr.New("failed to read item")

	// ErrExtractFailed is returned when dependency extraction fails.
	ErrExtractFailed = zerr.New("failed to extract dependencies")

	// ErrLayoutReadFailed is returned when a layout tree cannot be read.
	ErrLayoutReadFailed = zerr.New("failed to read layout tree")

	// ErrLayoutParseFailed is returned when a layout tree cannot be parsed.
	ErrLayoutParseFailed = zerr.New("failed to parse layout tree")

	// ErrLayoutDuplicateNode is returned when two layout nodes share an id.
	ErrLayoutDuplicateNode = zerr.New("duplicate layout node id")

	// ErrLayoutMissingID is returned when a layout node has no id.
	ErrLayoutMissingID = zerr.New("layout node is missing an id")

	// ErrLayoutInvalidDirection is returned when a layout node has an unknown direction.
	ErrLayoutInvalidDirection = zerr.New("invalid layout direction, expected 'row' or 'column'")

	// ErrLayoutNodeNotFound is returned when a measured node is not in the tree.
	ErrLayoutNodeNotFound = zerr.New("layout node not found")

	// ErrLayoutChildNotMeasured is returned when a child has no cached box.
	ErrLayoutChildNotMeasured = zerr.New("layout child has not been measured")

	// ErrWatcherFailed is returned when watch mode cannot start.
	ErrWatcherFailed = zerr.New("failed to start file watcher")
)
