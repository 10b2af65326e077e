// Package fchk drives the cmake/ctest based file check suite.
package fchk

import (
	"context"
	"runtime"
	"strconv"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Driver configures, builds and runs the fchk suite.
type Driver struct {
	project   *domain.Project
	toolchain ports.Toolchain
	probe     ports.Probe
	tracer    ports.Tracer
	jobs      int
}

// New creates a Driver that runs the suite with one job per CPU.
func New(project *domain.Project, toolchain ports.Toolchain, probe ports.Probe, tracer ports.Tracer) *Driver {
	return &Driver{
		project:   project,
		toolchain: toolchain,
		probe:     probe,
		tracer:    tracer,
		jobs:      runtime.NumCPU(),
	}
}

// WithJobs overrides the suite parallelism.
func (d *Driver) WithJobs(jobs int) *Driver {
	d.jobs = jobs
	return d
}

// Run configures and builds the suite when its output directory is missing,
// rebuilds it when rebuild is set, and then runs it.
func (d *Driver) Run(ctx context.Context, rebuild bool) error {
	fchk := d.project.Fchk

	switch {
	case !d.probe.Exists(fchk.OutDir):
		if err := d.step(ctx, "configure", fchk.Configure); err != nil {
			return err
		}
		if err := d.step(ctx, "build", fchk.Build); err != nil {
			return err
		}
	case rebuild:
		if err := d.step(ctx, "build", fchk.Build); err != nil {
			return err
		}
	}

	return d.step(ctx, "run", fchk.Run, "-j"+strconv.Itoa(d.jobs))
}

func (d *Driver) step(ctx context.Context, name string, command []string, extra ...string) error {
	if len(command) == 0 {
		return zerr.With(zerr.With(domain.ErrExternalSuiteFailed, "step", name), "reason", "no command configured")
	}
	args := append(append([]string(nil), command...), extra...)

	ctx, span := d.tracer.Start(ctx, "fchk "+name)
	defer span.End()

	code, err := d.toolchain.Run(ctx, domain.Invocation{Args: args, Dir: d.project.Root})
	if err != nil {
		span.RecordError(err)
		return zerr.With(zerr.Wrap(err, domain.ErrLaunchFailed.Error()), "step", name)
	}
	if code != 0 {
		failure := zerr.With(zerr.With(domain.ErrExternalSuiteFailed, "step", name), "exit_code", code)
		span.RecordError(failure)
		return failure
	}
	return nil
}
