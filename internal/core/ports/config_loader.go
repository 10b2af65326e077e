package ports

import "go.trai.ch/kiln/internal/core/domain"

// ConfigLoader defines the interface for loading the project description.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load resolves the project for the given working directory.
	// An empty path searches cwd and its parents for kiln.yaml and falls back to the built-in layout.
	Load(cwd, path string) (*domain.Project, error)
}
