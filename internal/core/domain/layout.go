package domain

import "path/filepath"

const (
	// IncrDirName is the name of the internal workspace directory.
	IncrDirName = ".incr"

	// IndexFileName is the name of the file-processing index.
	IndexFileName = "index.json"

	// LayoutIndexFileName is the name of the layout-processing index.
	LayoutIndexFileName = "layout.json"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "incr.yaml"

	// DebugLogFile is the name of the debug log file.
	DebugLogFile = "debug.log"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultIncrPath returns the default root directory for incr metadata.
func DefaultIncrPath() string {
	return IncrDirName
}

// DefaultIndexPath returns the default path of the file-processing index.
// It joins .incr and index.json.
func DefaultIndexPath() string {
	return filepath.Join(IncrDirName, IndexFileName)
}

// DefaultLayoutIndexPath returns the default path of the layout-processing index.
// It joins .incr and layout.json.
func DefaultLayoutIndexPath() string {
	return filepath.Join(IncrDirName, LayoutIndexFileName)
}

// DefaultDebugLogPath returns the default path for the debug log.
// It joins .incr and debug.log.
func DefaultDebugLogPath() string {
	return filepath.Join(IncrDirName, DebugLogFile)
}
