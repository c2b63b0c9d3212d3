package extract

import (
	"path"
	"strings"

	"go.trai.ch/incr/internal/core/ports"
)

// Registry selects a DependencyExtractor by item type.
type Registry struct {
	byKind map[string]ports.DependencyExtractor
}

// NewRegistry creates a Registry with the built-in extractors.
func NewRegistry() *Registry {
	r := &Registry{byKind: make(map[string]ports.DependencyExtractor)}
	r.Register("css", NewCSSExtractor())
	r.Register("md", NewMarkdownExtractor())
	htmlExtractor := NewHTMLExtractor()
	r.Register("html", htmlExtractor)
	r.Register("htm", htmlExtractor)
	return r
}

// Register binds kind to an extractor, replacing any previous binding.
func (r *Registry) Register(kind string, e ports.DependencyExtractor) {
	r.byKind[kind] = e
}

// For returns the extractor for id's kind.
func (r *Registry) For(id string) (ports.DependencyExtractor, bool) {
	e, ok := r.byKind[Kind(id)]
	return e, ok
}

// Kind returns the lowercase extension of id without the dot.
func Kind(id string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(id), "."))
}
