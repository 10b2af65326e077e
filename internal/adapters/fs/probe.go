// Package fs answers filesystem questions for the build engine.
package fs

import (
	"errors"
	iofs "io/fs"
	"os"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Probe = (*Probe)(nil)

// Probe implements ports.Probe on the local filesystem using modification times.
type Probe struct{}

// NewProbe creates a new Probe.
func NewProbe() *Probe {
	return &Probe{}
}

// Exists reports whether anything exists at path.
func (p *Probe) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListDir returns the names of the entries of dir in lexical order.
// Subdirectories are listed but not descended into.
func (p *Probe) ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to list directory"), "dir", dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// NeedsRebuild returns VerdictStale when target is missing or a dependency was modified after it,
// VerdictUnknown when target or a dependency cannot be inspected, and VerdictFresh otherwise.
func (p *Probe) NeedsRebuild(target string, deps []string) domain.Verdict {
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return domain.VerdictStale
		}
		return domain.VerdictUnknown
	}

	built := info.ModTime()
	for _, dep := range deps {
		depInfo, err := os.Stat(dep)
		if err != nil {
			return domain.VerdictUnknown
		}
		if depInfo.ModTime().After(built) {
			return domain.VerdictStale
		}
	}

	return domain.VerdictFresh
}
