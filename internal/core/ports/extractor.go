package ports

// DependencyExtractor discovers the items a piece of content references.
//
//go:generate mockgen -source=extractor.go -destination=mocks/mock_extractor.go -package=mocks
type DependencyExtractor interface {
	// Extract returns the ids referenced by content, resolved against basePath.
	Extract(content []byte, basePath string) ([]string, error)
}
