// Package fs provides file system adapters for walking and fingerprinting files.
package fs

import (
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields the ids of all regular files under root, as slash-separated
// paths relative to root. A file is yielded when it matches at least one
// include pattern and no exclude pattern. Patterns support "**".
func (w *Walker) WalkFiles(root string, include, exclude []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entries are skipped rather than aborting the walk.
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil || rel == "." {
				return nil //nolint:nilerr // The root itself has no id
			}
			id := filepath.ToSlash(rel)

			if d.IsDir() {
				if w.shouldSkipDir(d.Name(), id, exclude) {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() || !Included(id, include, exclude) {
				return nil
			}

			if !yield(id) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// shouldSkipDir reports whether a directory and everything below it is excluded.
func (w *Walker) shouldSkipDir(name, id string, exclude []string) bool {
	// Always skip VCS metadata.
	if name == ".git" || name == ".jj" {
		return true
	}

	for _, pattern := range exclude {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if dirPattern == pattern {
			continue
		}
		if ok, _ := doublestar.Match(dirPattern, id); ok {
			return true
		}
	}
	return false
}

// Included reports whether id matches include and does not match exclude.
// Malformed patterns never match.
func Included(id string, include, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, id); ok {
			return false
		}
	}
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, id); ok {
			return true
		}
	}
	return false
}

// ValidatePatterns returns the first malformed pattern, if any.
// Brace alternatives are accepted as literal text by the check.
func ValidatePatterns(patterns []string) (string, bool) {
	for _, pattern := range patterns {
		if _, err := path.Match(pattern, ""); err != nil {
			return pattern, false
		}
	}
	return "", true
}
