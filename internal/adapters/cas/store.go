// Package cas persists build stamps as JSON files.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.StampStore = (*Store)(nil)

// Store implements ports.StampStore with one JSON file per stamp.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Get reads the stamp at path. A missing file yields nil, nil.
func (s *Store) Get(path string) (*domain.BuildStamp, error) {
	//nolint:gosec // Path is derived from the project build directory
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStampReadFailed.Error()), "path", path)
	}

	var stamp domain.BuildStamp
	if err := json.Unmarshal(data, &stamp); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStampUnmarshalFailed.Error()), "path", path)
	}

	return &stamp, nil
}

// Put writes the stamp to path, replacing it atomically.
func (s *Store) Put(path string, stamp domain.BuildStamp) error {
	data, err := json.MarshalIndent(stamp, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStampMarshalFailed.Error())
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStampWriteFailed.Error()), "path", path)
	}

	tmp, err := os.CreateTemp(dir, ".stamp-*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStampWriteFailed.Error()), "path", path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStampWriteFailed.Error()), "path", path)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStampWriteFailed.Error()), "path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStampWriteFailed.Error()), "path", path)
	}

	return nil
}
