// Package scheduler compiles translation units in parallel and links them.
package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Scheduler decides which units are stale, compiles them and links the results.
// It is created per command for one immutable project.
type Scheduler struct {
	project   *domain.Project
	toolchain ports.Toolchain
	probe     ports.Probe
	hasher    ports.Hasher
	store     ports.StampStore
	tracer    ports.Tracer
	logger    ports.Logger
	pty       bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	project *domain.Project,
	toolchain ports.Toolchain,
	probe ports.Probe,
	hasher ports.Hasher,
	store ports.StampStore,
	tracer ports.Tracer,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		project:   project,
		toolchain: toolchain,
		probe:     probe,
		hasher:    hasher,
		store:     store,
		tracer:    tracer,
		logger:    logger,
	}
}

// WithPTY runs compile jobs on a pseudo-terminal so diagnostics keep their colours.
func (s *Scheduler) WithPTY(enabled bool) *Scheduler {
	s.pty = enabled
	return s
}

// Project returns the project the scheduler builds.
func (s *Scheduler) Project() *domain.Project {
	return s.project
}

// PassResult describes one compile pass.
type PassResult struct {
	Launched    []domain.SourceUnit
	Skipped     []domain.SourceUnit
	FullRebuild bool
	Reason      string
}

type slotState uint8

const (
	slotSkipped slotState = iota
	slotLaunched
)

// slot is the per-unit state of a pass. Skipped units never hold a job.
type slot struct {
	unit   domain.SourceUnit
	state  slotState
	job    ports.Job
	span   ports.Span
	object string
}

// CompileAll compiles every stale unit, or every unit when fullRebuild is set.
// Jobs are launched in list order and joined in launch order. The first failing
// job cancels the rest; every launched job is still waited for.
func (s *Scheduler) CompileAll(ctx context.Context, fullRebuild bool) (PassResult, error) {
	plan := s.Plan(fullRebuild)
	result := PassResult{FullRebuild: plan.FullRebuild, Reason: plan.Reason}

	if plan.FullRebuild {
		s.logger.Info("Rebuilding all objects: " + plan.Reason)
	}

	objectRoot := s.project.ObjectRoot()
	if err := os.MkdirAll(objectRoot, domain.DirPerm); err != nil {
		return result, zerr.With(zerr.Wrap(err, domain.ErrObjectDirCreateFailed.Error()), "dir", objectRoot)
	}

	var names []string
	for i, unit := range s.project.Sources {
		if plan.Stale[i] {
			names = append(names, unit.Base())
		}
	}
	if len(names) > 0 {
		s.tracer.EmitPlan(ctx, names)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]slot, len(s.project.Sources))
	for i, unit := range s.project.Sources {
		slots[i] = slot{unit: unit, object: s.project.ObjectPath(unit)}
		if !plan.Stale[i] {
			result.Skipped = append(result.Skipped, unit)
			continue
		}

		if err := s.launch(jobCtx, &slots[i]); err != nil {
			cancel()
			s.drain(slots[:i])
			return result, err
		}
		result.Launched = append(result.Launched, unit)
	}

	if len(result.Launched) > 0 {
		s.logger.Info(domain.WaitingForObjectsMessage)
	}

	if err := s.join(slots, cancel); err != nil {
		return result, err
	}

	s.writeStamp()
	return result, nil
}

func (s *Scheduler) launch(ctx context.Context, sl *slot) error {
	_, span := s.tracer.Start(ctx, sl.unit.Base())
	span.SetAttribute("source", sl.unit.Path())
	span.SetAttribute("object", sl.object)

	args := append(s.project.CommandTemplate(), "-c", "-o", sl.object, sl.unit.Path())
	job, err := s.toolchain.Start(ctx, s.invocation(args, span))
	if err != nil {
		span.RecordError(err)
		span.End()
		return zerr.With(zerr.Wrap(err, domain.ErrLaunchFailed.Error()), "unit", sl.unit.Path())
	}

	sl.state = slotLaunched
	sl.job = job
	sl.span = span
	return nil
}

// join waits for every launched slot in order. After the first failure the
// remaining jobs are cancelled and their results discarded.
func (s *Scheduler) join(slots []slot, cancel context.CancelFunc) error {
	var failure error
	for i := range slots {
		sl := &slots[i]
		if sl.state != slotLaunched {
			continue
		}

		code, err := sl.job.Wait()
		sl.span.SetAttribute("exit_code", code)

		switch {
		case failure != nil:
			if err != nil || code != 0 {
				sl.span.RecordError(errors.New("cancelled"))
			}
		case err != nil:
			failure = zerr.With(zerr.Wrap(err, domain.ErrCompilationFailed.Error()), "unit", sl.unit.Path())
			sl.span.RecordError(err)
			cancel()
		case code != 0:
			failure = zerr.With(zerr.With(domain.ErrCompilationFailed, "unit", sl.unit.Path()), "exit_code", code)
			sl.span.RecordError(errors.New("exit status " + strconv.Itoa(code)))
			cancel()
		}
		sl.span.End()
	}
	return failure
}

// drain waits for already launched jobs after a fatal launch error.
func (s *Scheduler) drain(slots []slot) {
	for i := range slots {
		if slots[i].state != slotLaunched {
			continue
		}
		_, _ = slots[i].job.Wait()
		slots[i].span.RecordError(errors.New("cancelled"))
		slots[i].span.End()
	}
}

func (s *Scheduler) writeStamp() {
	stamp := domain.BuildStamp{
		FlagsHash: s.hasher.HashArgs(s.project.CommandTemplate()),
		Timestamp: time.Now(),
	}
	if err := s.store.Put(s.project.StampPath(), stamp); err != nil {
		s.logger.Warn("could not record compile flags: " + err.Error())
	}
}

// Compile compiles a single source file to object synchronously.
func (s *Scheduler) Compile(ctx context.Context, source, object string) error {
	if err := os.MkdirAll(filepath.Dir(object), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrObjectDirCreateFailed.Error()), "dir", filepath.Dir(object))
	}

	args := append(s.project.CommandTemplate(), "-c", "-o", object, source)
	return s.runStep(ctx, filepath.Base(source), args, func(code int) error {
		return zerr.With(zerr.With(domain.ErrCompilationFailed, "unit", source), "exit_code", code)
	})
}

// Link produces output from objects in one synchronous invocation.
// extraFlags follow the compile flags, for example the fuzzer runtime flag.
func (s *Scheduler) Link(ctx context.Context, objects []string, output string, extraFlags ...string) error {
	args := s.project.CommandTemplate()
	args = append(args, extraFlags...)
	args = append(args, "-o", output)
	args = append(args, objects...)

	return s.runStep(ctx, filepath.Base(output), args, func(code int) error {
		return zerr.With(zerr.With(domain.ErrLinkFailed, "output", output), "exit_code", code)
	})
}

// BuildExecutable compiles and links sources into output in one invocation,
// bypassing the object cache.
func (s *Scheduler) BuildExecutable(ctx context.Context, output string, sources ...string) error {
	args := []string{s.project.Toolchain.Compiler, "-o", output}
	args = append(args, s.project.CompileFlags()...)
	args = append(args, sources...)

	return s.runStep(ctx, filepath.Base(output), args, func(code int) error {
		return zerr.With(zerr.With(domain.ErrLinkFailed, "output", output), "exit_code", code)
	})
}

func (s *Scheduler) runStep(ctx context.Context, name string, args []string, onExit func(code int) error) error {
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()

	code, err := s.toolchain.Run(ctx, s.invocation(args, span))
	if err != nil {
		span.RecordError(err)
		return zerr.With(zerr.Wrap(err, domain.ErrLaunchFailed.Error()), "command", args[0])
	}

	span.SetAttribute("exit_code", code)
	if code != 0 {
		failure := onExit(code)
		span.RecordError(failure)
		return failure
	}
	return nil
}

func (s *Scheduler) invocation(args []string, span ports.Span) domain.Invocation {
	return domain.Invocation{
		Args:   args,
		Dir:    s.project.Root,
		Stdout: span,
		Stderr: span,
		PTY:    s.pty,
	}
}
