package app

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Watch builds the driver and rebuilds it whenever a source or header changes, until ctx is cancelled.
// Build failures are logged and watching continues.
func (a *App) Watch(ctx context.Context, opts Options) error {
	return a.run(ctx, opts, func(ctx context.Context, s *session) error {
		// building holds one token while a build runs; teardown takes it to
		// wait for an in-flight rebuild.
		building := make(chan struct{}, 1)
		stopped := false
		rebuild := func() {
			building <- struct{}{}
			defer func() { <-building }()
			if stopped {
				return
			}
			if err := s.pipeline.Driver(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error(err)
			}
		}

		rebuild()

		w, err := a.watcherFactory()
		if err != nil {
			return err
		}
		defer func() {
			_ = w.Stop()
		}()

		dirs := watchDirs(s.project)
		if err := w.Start(ctx, dirs); err != nil {
			return err
		}
		a.logger.Info(fmt.Sprintf("watching %d directories for changes", len(dirs)))

		debouncer := watcher.NewDebouncer(a.debounce, func(paths []string) {
			if ctx.Err() != nil {
				return
			}
			a.logger.Info(fmt.Sprintf("changed: %s", strings.Join(paths, ", ")))
			rebuild()
		})
		defer func() {
			debouncer.Stop()
			building <- struct{}{}
			stopped = true
			<-building
		}()

		for event := range w.Events() {
			if watcher.IsSourceChange(event.Path) {
				debouncer.Add(event.Path)
			}
		}

		if ctx.Err() != nil {
			return nil
		}
		return zerr.With(domain.ErrWatcherFailed, "reason", "event stream closed")
	})
}

// watchDirs returns every directory holding a source unit plus the headers directory, sorted.
func watchDirs(project *domain.Project) []string {
	dirs := make([]string, 0, len(project.Sources)+1)
	for _, unit := range project.Sources {
		dirs = append(dirs, filepath.Dir(unit.Path()))
	}
	if project.HeadersDir != "" {
		dirs = append(dirs, project.HeadersDir)
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}
