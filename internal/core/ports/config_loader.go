package ports

import "go.trai.ch/depot/internal/core/domain"

// ConfigLoader loads the process-wide configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads and validates the configuration.
	Load() (domain.Config, error)
}

// ManifestLoader reads a manifest of concrete specs.
type ManifestLoader interface {
	// Load parses the manifest at path into a validated spec DAG.
	Load(path string) (*domain.Manifest, error)
}
