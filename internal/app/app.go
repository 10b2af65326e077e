// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/kiln/internal/adapters/detector"  //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/adapters/linear"    //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader   ports.ConfigLoader
	toolchain      ports.Toolchain
	probe          ports.Probe
	hasher         ports.Hasher
	store          ports.StampStore
	logger         ports.Logger
	watcherFactory ports.WatcherFactory
	stdout         io.Writer
	stderr         io.Writer
	debounce       time.Duration
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	toolchain ports.Toolchain,
	probe ports.Probe,
	hasher ports.Hasher,
	store ports.StampStore,
	log ports.Logger,
	watcherFactory ports.WatcherFactory,
) *App {
	return &App{
		configLoader:   loader,
		toolchain:      toolchain,
		probe:          probe,
		hasher:         hasher,
		store:          store,
		logger:         log,
		watcherFactory: watcherFactory,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		debounce:       watcher.DefaultDebounceWindow,
	}
}

// WithOutput redirects rendered task output and reports.
// This is primarily used for testing.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithDebounceWindow sets the quiet period watch mode waits for before rebuilding.
func (a *App) WithDebounceWindow(window time.Duration) *App {
	a.debounce = window
	return a
}

// Options holds the global command-line settings shared by every operation.
type Options struct {
	// ConfigPath is an explicit kiln.yaml. Empty searches upwards from the working directory.
	ConfigPath string
	// NoASan drops the address sanitizer flag from every compile and link.
	NoASan bool
	// LogJSON switches the logger to JSON records.
	LogJSON bool
	// OutputMode is one of auto, tty or plain.
	OutputMode string
}

// session holds the per-command collaborators built around one loaded project.
type session struct {
	project   *domain.Project
	tracer    ports.Tracer
	scheduler *scheduler.Scheduler
	pipeline  *pipeline.Pipeline
}

type jsonSwitch interface {
	SetJSON(enable bool)
}

// loadProject applies the logging options and resolves the project for the working directory.
func (a *App) loadProject(opts Options) (*domain.Project, error) {
	if sw, ok := a.logger.(jsonSwitch); ok {
		sw.SetJSON(opts.LogJSON)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to determine working directory")
	}

	project, err := a.configLoader.Load(cwd, opts.ConfigPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	if opts.NoASan {
		stripped := *project
		stripped.Toolchain.Sanitize = false
		project = &stripped
	}
	return project, nil
}

// run loads the project and executes work alongside the renderer.
// Errors returned by work are logged here and marked with domain.ErrBuildExecutionFailed.
func (a *App) run(ctx context.Context, opts Options, work func(context.Context, *session) error) error {
	project, err := a.loadProject(opts)
	if err != nil {
		return err
	}

	// Compile jobs keep their colours only when attached to a terminal.
	mode := detector.ResolveMode(detector.DetectEnvironment(), opts.OutputMode)

	renderer := linear.NewRenderer(a.stdout, a.stderr)

	tp := setupOTel(renderer)
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()

	tracer := telemetry.NewOTelTracer("kiln").WithProvider(tp).WithRenderer(renderer)

	sched := scheduler.NewScheduler(
		project,
		a.toolchain,
		a.probe,
		a.hasher,
		a.store,
		tracer,
		a.logger,
	).WithPTY(mode == detector.ModeTerminal)

	s := &session{
		project:   project,
		tracer:    tracer,
		scheduler: sched,
		pipeline:  pipeline.New(sched),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() error {
		defer func() {
			_ = renderer.Stop()
		}()

		if err := work(ctx, s); err != nil {
			a.logger.Error(err)
			return errors.Join(domain.ErrBuildExecutionFailed, err)
		}
		return nil
	})

	return g.Wait()
}

// Build builds the named target, or every target when name is empty.
func (a *App) Build(ctx context.Context, name string, opts Options) error {
	return a.run(ctx, opts, func(ctx context.Context, s *session) error {
		return s.pipeline.Target(ctx, name)
	})
}

// Clean removes the build directory and, with all set, the fchk output directory.
func (a *App) Clean(_ context.Context, all bool, opts Options) error {
	project, err := a.loadProject(opts)
	if err != nil {
		return err
	}

	var errs error

	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)), "path", path))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	remove(project.BuildDir, "build directory")
	if all {
		remove(project.Fchk.OutDir, "fchk output directory")
	}

	return errs
}

// setupOTel registers a tracer provider that forwards spans to renderer.
func setupOTel(renderer ports.Renderer) *sdktrace.TracerProvider {
	tp := telemetry.NewProvider(renderer)
	otel.SetTracerProvider(tp)
	return tp
}
