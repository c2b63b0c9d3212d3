package ports

import "go.trai.ch/incr/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds incr.yaml by walking up from cwd and returns the resolved configuration.
	// When no file exists, the defaults rooted at cwd are returned.
	Load(cwd string) (*domain.Config, error)

	// LoadFile reads the configuration from an explicit path.
	LoadFile(path string) (*domain.Config, error)
}
