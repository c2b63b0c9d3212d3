package extract

import (
	"regexp"

	"go.trai.ch/incr/internal/core/ports"
)

var (
	_ ports.DependencyExtractor = (*PatternExtractor)(nil)

	cssImport = regexp.MustCompile(`@import\s+(?:url\(\s*)?["']?([^"'()\s;]+)["']?`)
	cssURL    = regexp.MustCompile(`url\(\s*["']?([^"'()\s]+)["']?\s*\)`)
	mdLink    = regexp.MustCompile(`!?\[[^\]]*\]\(\s*<?([^()\s<>]+)>?(?:\s+"[^"]*")?\s*\)`)
)

// PatternExtractor finds references with regular expressions whose first
// submatch is the reference.
type PatternExtractor struct {
	patterns []*regexp.Regexp
}

// NewPatternExtractor creates a PatternExtractor.
func NewPatternExtractor(patterns ...*regexp.Regexp) *PatternExtractor {
	return &PatternExtractor{patterns: patterns}
}

// NewCSSExtractor finds @import and url() references.
func NewCSSExtractor() *PatternExtractor {
	return NewPatternExtractor(cssImport, cssURL)
}

// NewMarkdownExtractor finds link and image targets.
func NewMarkdownExtractor() *PatternExtractor {
	return NewPatternExtractor(mdLink)
}

// Extract implements ports.DependencyExtractor.
func (e *PatternExtractor) Extract(content []byte, basePath string) ([]string, error) {
	var refs []string
	for _, re := range e.patterns {
		for _, m := range re.FindAllSubmatch(content, -1) {
			refs = append(refs, string(m[1]))
		}
	}
	return resolveAll(refs, basePath), nil
}
