package domain

import "path/filepath"

// Compression selects how the persisted index is encoded.
type Compression string

const (
	// CompressionNone stores plain indented JSON.
	CompressionNone Compression = "none"
	// CompressionZstd stores zstd-compressed JSON.
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 stores lz4 block-compressed JSON.
	CompressionLZ4 Compression = "lz4"
)

// Valid reports whether c is a known compression.
func (c Compression) Valid() bool {
	switch c {
	case CompressionNone, CompressionZstd, CompressionLZ4:
		return true
	default:
		return false
	}
}

const (
	// DefaultFlushEvery is the number of computed items between periodic saves.
	DefaultFlushEvery = 100
	// DefaultMemoSize is the capacity of the fingerprint memo in metadata-trust mode.
	DefaultMemoSize = 4096
)

// Config is the resolved project configuration.
type Config struct {
	// Root is the absolute source root.
	Root string
	// Index is the absolute path of the file-processing index.
	Index string
	// LayoutIndex is the absolute path of the layout-processing index.
	LayoutIndex string
	// Include and Exclude are slash-separated globs relative to Root; "**" matches any depth.
	Include []string
	Exclude []string

	FlushEvery      int
	ContinueOnError bool
	Parallelism     int
	Compression     Compression
	// TrustMetadata skips re-reading files whose size and mtime are unchanged.
	TrustMetadata bool
	MemoSize      int
	// LogFile is the absolute path of the rotating debug log, empty to disable.
	LogFile string
}

// DefaultConfig returns the configuration used when no incr.yaml exists.
func DefaultConfig(root string) *Config {
	return &Config{
		Root:            root,
		Index:           filepath.Join(root, DefaultIndexPath()),
		LayoutIndex:     filepath.Join(root, DefaultLayoutIndexPath()),
		Include:         []string{"**/*"},
		Exclude:         []string{".git/**", IncrDirName + "/**", ConfigFileName},
		FlushEvery:      DefaultFlushEvery,
		ContinueOnError: true,
		Parallelism:     1,
		Compression:     CompressionNone,
		MemoSize:        DefaultMemoSize,
		LogFile:         filepath.Join(root, DefaultDebugLogPath()),
	}
}
