package ports

import "go.trai.ch/kiln/internal/core/domain"

// Probe answers filesystem questions for staleness detection and test discovery.
//
//go:generate mockgen -source=probe.go -destination=mocks/mock_probe.go -package=mocks
type Probe interface {
	// Exists reports whether anything exists at path.
	Exists(path string) bool

	// ListDir returns the entry names of dir, sorted, without descending into subdirectories.
	ListDir(dir string) ([]string, error)

	// NeedsRebuild compares the modification time of target against deps.
	NeedsRebuild(target string, deps []string) domain.Verdict
}
