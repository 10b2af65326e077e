package app

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/fchk"
	"go.trai.ch/kiln/internal/engine/harness"
	"go.trai.ch/zerr"
)

// TestExec builds the driver and runs the execution tests. With external set,
// the compiled test runner executes the suite instead of the in-process harness.
func (a *App) TestExec(ctx context.Context, external bool, opts Options) error {
	return a.run(ctx, opts, func(ctx context.Context, s *session) error {
		return a.testExec(ctx, s, external)
	})
}

// TestFchk builds the driver and runs the fchk suite, rebuilding it first when rebuild is set.
func (a *App) TestFchk(ctx context.Context, rebuild bool, opts Options) error {
	return a.run(ctx, opts, func(ctx context.Context, s *session) error {
		return a.testFchk(ctx, s, rebuild)
	})
}

// Test builds the driver once and runs the execution tests and then the fchk suite.
// A failed driver build stops both; otherwise both suites run and the first error is returned.
func (a *App) Test(ctx context.Context, opts Options) error {
	return a.run(ctx, opts, func(ctx context.Context, s *session) error {
		if err := s.pipeline.Driver(ctx); err != nil {
			return err
		}

		execErr := a.execSuite(ctx, s, false)
		fchkErr := a.fchkSuite(ctx, s, false)
		if execErr != nil {
			if fchkErr != nil {
				a.logger.Error(fchkErr)
			}
			return execErr
		}
		return fchkErr
	})
}

func (a *App) testExec(ctx context.Context, s *session, external bool) error {
	if err := s.pipeline.Driver(ctx); err != nil {
		return err
	}
	return a.execSuite(ctx, s, external)
}

func (a *App) execSuite(ctx context.Context, s *session, external bool) error {
	if external {
		return a.runExternalTests(ctx, s)
	}

	h := harness.New(s.project, a.toolchain, a.probe, s.tracer, a.logger)
	report, err := h.Run(ctx)
	if err != nil {
		return err
	}
	if err := harness.WriteReport(a.stderr, report); err != nil {
		return err
	}
	if !report.OK() {
		return zerr.With(domain.ErrTestsFailed, "failed", len(report.Failed()))
	}
	return nil
}

func (a *App) runExternalTests(ctx context.Context, s *session) error {
	if err := s.pipeline.TestRunner(ctx); err != nil {
		return err
	}

	inv := domain.Invocation{Args: []string{s.project.TestRunnerPath()}, Dir: s.project.Root}
	code, err := a.toolchain.Run(ctx, inv)
	if err != nil {
		return zerr.Wrap(err, domain.ErrLaunchFailed.Error())
	}
	if code != 0 {
		return zerr.With(domain.ErrTestRunnerFailed, "exit_code", code)
	}
	return nil
}

func (a *App) testFchk(ctx context.Context, s *session, rebuild bool) error {
	if err := s.pipeline.Driver(ctx); err != nil {
		return err
	}
	return a.fchkSuite(ctx, s, rebuild)
}

func (a *App) fchkSuite(ctx context.Context, s *session, rebuild bool) error {
	return fchk.New(s.project, a.toolchain, a.probe, s.tracer).Run(ctx, rebuild)
}
