package extract

import (
	"bytes"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/net/html"
)

var _ ports.DependencyExtractor = (*HTMLExtractor)(nil)

// HTMLExtractor finds src and href attribute references.
type HTMLExtractor struct{}

// NewHTMLExtractor creates an HTMLExtractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract implements ports.DependencyExtractor.
func (e *HTMLExtractor) Extract(content []byte, basePath string) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrExtractFailed.Error()), "path", basePath)
	}

	var refs []string
	collectRefs(doc, &refs)
	return resolveAll(refs, basePath), nil
}

func collectRefs(n *html.Node, refs *[]string) {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			switch attr.Key {
			case "src", "href":
				*refs = append(*refs, attr.Val)
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectRefs(child, refs)
	}
}
