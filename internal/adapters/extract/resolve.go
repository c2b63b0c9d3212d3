// Package extract discovers the dependencies of source files by item type.
package extract

import (
	"path"
	"regexp"
	"slices"
	"strings"
)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// Resolve turns a reference found in the item basePath into an item id.
// References with a scheme, protocol-relative references, pure fragments and
// references escaping the root are not items and yield false.
func Resolve(ref, basePath string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") || schemePattern.MatchString(ref) {
		return "", false
	}

	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if ref == "" {
		return "", false
	}

	var id string
	if strings.HasPrefix(ref, "/") {
		id = path.Clean(strings.TrimLeft(ref, "/"))
	} else {
		id = path.Join(path.Dir(basePath), ref)
	}

	if id == "." || id == ".." || strings.HasPrefix(id, "../") {
		return "", false
	}
	return id, true
}

// resolveAll resolves refs and returns the unique ids in sorted order.
func resolveAll(refs []string, basePath string) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if id, ok := Resolve(ref, basePath); ok && id != basePath {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
