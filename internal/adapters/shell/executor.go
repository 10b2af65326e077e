// Package shell runs toolchain processes with os/exec, optionally on a pseudo-terminal.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creack/pty"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Toolchain = (*Executor)(nil)

// Executor implements ports.Toolchain.
type Executor struct{}

// NewExecutor creates a new Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Run launches the invocation and waits for it to exit.
func (e *Executor) Run(ctx context.Context, inv domain.Invocation) (int, error) {
	job, err := e.Start(ctx, inv)
	if err != nil {
		return -1, err
	}
	return job.Wait()
}

// Start launches the invocation and returns without waiting.
// With inv.PTY set, output is read from a pseudo-terminal and copied to inv.Stdout;
// platforms without pty support fall back to pipes.
func (e *Executor) Start(ctx context.Context, inv domain.Invocation) (ports.Job, error) {
	if len(inv.Args) == 0 {
		return nil, zerr.Wrap(errors.New("empty command"), domain.ErrLaunchFailed.Error())
	}

	name := inv.Name()
	executable, err := resolveExecutable(name, inv.Dir)
	if err != nil {
		return nil, launchError(err, name)
	}

	if inv.PTY {
		proc, err := startPTY(ctx, executable, inv)
		if err == nil {
			return proc, nil
		}
		if !errors.Is(err, pty.ErrUnsupported) {
			return nil, launchError(err, name)
		}
	}

	cmd := newCommand(ctx, executable, inv)
	cmd.Stdout = writerOr(inv.Stdout, os.Stdout)
	cmd.Stderr = writerOr(inv.Stderr, os.Stderr)

	if err := cmd.Start(); err != nil {
		return nil, launchError(err, name)
	}

	return &process{cmd: cmd}, nil
}

func startPTY(ctx context.Context, executable string, inv domain.Invocation) (*process, error) {
	cmd := newCommand(ctx, executable, inv)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	stdout := writerOr(inv.Stdout, os.Stdout)
	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		// The pty merges stdout and stderr. The copy ends with EIO once the child exits.
		_, _ = io.Copy(stdout, ptmx)
	}()

	return &process{cmd: cmd, ioDone: ioDone}, nil
}

func newCommand(ctx context.Context, executable string, inv domain.Invocation) *exec.Cmd {
	cmd := exec.CommandContext(ctx, executable, inv.Args[1:]...) //nolint:gosec // toolchain command from project config
	cmd.Args[0] = inv.Name()
	cmd.Dir = inv.Dir
	return cmd
}

type process struct {
	cmd    *exec.Cmd
	ioDone <-chan struct{}
}

// Wait waits for the process and, in pty mode, for its output to be drained.
func (p *process) Wait() (int, error) {
	err := p.cmd.Wait()
	if p.ioDone != nil {
		<-p.ioDone
	}
	return exitStatus(err)
}

func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, zerr.Wrap(err, "failed to wait for process")
}

func launchError(err error, name string) error {
	return zerr.With(zerr.Wrap(err, domain.ErrLaunchFailed.Error()), "command", name)
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}

// resolveExecutable returns the path to run for name. Names containing a path separator are
// resolved against dir; bare names are searched in PATH.
func resolveExecutable(name, dir string) (string, error) {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		path := name
		if !filepath.IsAbs(path) && dir != "" {
			path = filepath.Join(dir, path)
		}
		if err := findExecutable(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return lookPath(name, os.Getenv("PATH"))
}

// lookPath searches for an executable in the directories of a PATH list.
func lookPath(file, path string) (string, error) {
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", zerr.With(exec.ErrNotFound, "file", file)
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
