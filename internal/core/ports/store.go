package ports

import "go.trai.ch/kiln/internal/core/domain"

// StampStore persists the build stamp of a build directory.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type StampStore interface {
	// Get retrieves the stamp stored at path.
	// Returns nil, nil if not found.
	Get(path string) (*domain.BuildStamp, error)

	// Put stores the stamp at path.
	Put(path string, stamp domain.BuildStamp) error
}
