package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// RunDriver builds the driver and runs it with args on the controlling terminal.
func (a *App) RunDriver(ctx context.Context, args []string, opts Options) error {
	return a.run(ctx, opts, func(ctx context.Context, s *session) error {
		if err := s.pipeline.Driver(ctx); err != nil {
			return err
		}

		inv := domain.Invocation{Args: append([]string{s.project.DriverPath()}, args...)}
		code, err := a.toolchain.Run(ctx, inv)
		if err != nil {
			return zerr.Wrap(err, domain.ErrLaunchFailed.Error())
		}
		if code != 0 {
			return zerr.With(domain.ErrDriverFailed, "exit_code", code)
		}
		return nil
	})
}

// Fuzz builds the fuzzer and runs it on the corpus directory.
func (a *App) Fuzz(ctx context.Context, opts Options) error {
	return a.run(ctx, opts, func(ctx context.Context, s *session) error {
		if err := s.pipeline.Fuzzer(ctx); err != nil {
			return err
		}

		a.logger.Info(fmt.Sprintf("fuzzing with corpus %s", s.project.Fuzzer.Corpus))
		inv := domain.Invocation{
			Args: []string{s.project.FuzzerPath(), s.project.Fuzzer.Corpus},
			Dir:  s.project.Root,
		}
		code, err := a.toolchain.Run(ctx, inv)
		if err != nil {
			return zerr.Wrap(err, domain.ErrLaunchFailed.Error())
		}
		if code != 0 {
			return zerr.With(domain.ErrFuzzerFailed, "exit_code", code)
		}
		return nil
	})
}

// Install builds the driver and copies it into dir/bin. dir/lib is created for the runtime library.
func (a *App) Install(ctx context.Context, dir string, opts Options) error {
	return a.run(ctx, opts, func(ctx context.Context, s *session) error {
		for _, sub := range []string{dir, filepath.Join(dir, "bin"), filepath.Join(dir, "lib")} {
			if err := os.MkdirAll(sub, domain.DirPerm); err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrInstallFailed.Error()), "path", sub)
			}
		}

		if err := s.pipeline.Driver(ctx); err != nil {
			return err
		}

		dest := filepath.Join(dir, "bin", s.project.Driver.Name)
		if err := copyExecutable(s.project.DriverPath(), dest); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrInstallFailed.Error()), "path", dest)
		}
		a.logger.Info(fmt.Sprintf("installed %s to %s", s.project.Driver.Name, dest))
		return nil
	})
}

func copyExecutable(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, domain.ExecPerm)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	// OpenFile does not change the mode of an existing file.
	return out.Chmod(domain.ExecPerm)
}
