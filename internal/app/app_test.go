package app_test

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/cas"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// fakeToolchain records invocations and creates the file named after -o.
type fakeToolchain struct {
	mu    sync.Mutex
	calls [][]string
	exit  func(args []string) int
}

func (f *fakeToolchain) Run(_ context.Context, inv domain.Invocation) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, slices.Clone(inv.Args))
	f.mu.Unlock()

	if i := slices.Index(inv.Args, "-o"); i >= 0 && i+1 < len(inv.Args) {
		out := inv.Args[i+1]
		if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
			return -1, err
		}
		if err := os.WriteFile(out, []byte("#!/bin/true\n"), 0o600); err != nil {
			return -1, err
		}
	}

	if f.exit != nil {
		return f.exit(inv.Args), nil
	}
	return 0, nil
}

func (f *fakeToolchain) Start(ctx context.Context, inv domain.Invocation) (ports.Job, error) {
	code, err := f.Run(ctx, inv)
	if err != nil {
		return nil, err
	}
	return fakeJob(code), nil
}

func (f *fakeToolchain) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsWith returns the invocations that mention arg.
func (f *fakeToolchain) CallsWith(arg string) [][]string {
	var out [][]string
	for _, call := range f.Calls() {
		if slices.Contains(call, arg) {
			out = append(out, call)
		}
	}
	return out
}

type fakeJob int

func (j fakeJob) Wait() (int, error) {
	return int(j), nil
}

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []error
}

func (l *recordingLogger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Warn(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, err)
}

func (l *recordingLogger) Errors() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.errors)
}

type fixture struct {
	project   *domain.Project
	toolchain *fakeToolchain
	logger    *recordingLogger
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	app       *app.App
}

func newProject(t *testing.T) *domain.Project {
	t.Helper()
	root := t.TempDir()

	for _, rel := range []string{"lib/a.c", "src/main.c", "include/a.h"} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte("int x;\n"), 0o600))
	}

	project := domain.DefaultProject(root)
	project.Toolchain.Compiler = "cc"
	project.Sources = []domain.SourceUnit{
		domain.SourceUnit(filepath.Join(root, "lib", "a.c")),
		domain.SourceUnit(filepath.Join(root, "src", "main.c")),
	}
	return project
}

func newFixture(t *testing.T, project *domain.Project, factory ports.WatcherFactory) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(gomock.Any(), "").Return(project, nil).AnyTimes()

	f := &fixture{
		project:   project,
		toolchain: &fakeToolchain{},
		logger:    &recordingLogger{},
		stdout:    new(bytes.Buffer),
		stderr:    new(bytes.Buffer),
	}
	f.app = app.New(loader, f.toolchain, fs.NewProbe(), fs.NewHasher(), cas.NewStore(), f.logger, factory).
		WithOutput(f.stdout, f.stderr)
	return f
}

func plain() app.Options {
	return app.Options{OutputMode: "plain"}
}

func TestApp_Build(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, newProject(t), nil)

		require.NoError(t, f.app.Build(context.Background(), "", plain()))

		assert.FileExists(t, f.project.DriverPath())
		assert.FileExists(t, f.project.TestRunnerPath())
		assert.FileExists(t, f.project.FuzzerPath())
		assert.FileExists(t, f.project.StampPath())
		assert.Empty(t, f.logger.Errors())
	})
}

func TestApp_Build_DriverOnly(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, newProject(t), nil)

		require.NoError(t, f.app.Build(context.Background(), "layec", plain()))

		assert.FileExists(t, f.project.DriverPath())
		assert.NoFileExists(t, f.project.TestRunnerPath())
		assert.NoFileExists(t, f.project.FuzzerPath())
	})
}

func TestApp_Build_InvalidTarget(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, newProject(t), nil)

		err := f.app.Build(context.Background(), "unknown", plain())

		require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
		require.ErrorContains(t, err, domain.ErrInvalidTarget.Error())
		assert.Empty(t, f.toolchain.Calls())
		require.Len(t, f.logger.Errors(), 1)
	})
}

func TestApp_Build_CompileFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, newProject(t), nil)
		f.toolchain.exit = func(args []string) int {
			if slices.Contains(args, "-c") {
				return 1
			}
			return 0
		}

		err := f.app.Build(context.Background(), "layec", plain())

		require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
		require.ErrorContains(t, err, domain.ErrCompilationFailed.Error())
		assert.Empty(t, f.toolchain.CallsWith(f.project.DriverPath()), "link must not run")
	})
}

func TestApp_Build_NoASan(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		project := newProject(t)
		f := newFixture(t, project, nil)

		opts := plain()
		opts.NoASan = true
		require.NoError(t, f.app.Build(context.Background(), "layec", opts))

		assert.Empty(t, f.toolchain.CallsWith("-fsanitize=address"))
		assert.True(t, project.Toolchain.Sanitize, "loaded project must not be mutated")
	})
}

func TestApp_Build_ConfigError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(gomock.Any(), "missing.yaml").Return(nil, domain.ErrConfigNotFound)

	a := app.New(loader, &fakeToolchain{}, fs.NewProbe(), fs.NewHasher(), cas.NewStore(), &recordingLogger{}, nil)

	err := a.Build(context.Background(), "", app.Options{ConfigPath: "missing.yaml"})
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
	assert.NotErrorIs(t, err, domain.ErrBuildExecutionFailed)
}

func TestApp_RunDriver(t *testing.T) {
	t.Run("passes arguments", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			f := newFixture(t, newProject(t), nil)

			require.NoError(t, f.app.RunDriver(context.Background(), []string{"--help"}, plain()))

			calls := f.toolchain.Calls()
			assert.Equal(t, []string{f.project.DriverPath(), "--help"}, calls[len(calls)-1])
		})
	})

	t.Run("non-zero exit", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			f := newFixture(t, newProject(t), nil)
			f.toolchain.exit = func(args []string) int {
				if args[0] == f.project.DriverPath() {
					return 3
				}
				return 0
			}

			err := f.app.RunDriver(context.Background(), nil, plain())
			require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
			require.ErrorContains(t, err, domain.ErrDriverFailed.Error())
		})
	})
}

func TestApp_Fuzz(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, newProject(t), nil)
		f.toolchain.exit = func(args []string) int {
			if args[0] == f.project.FuzzerPath() {
				return 77
			}
			return 0
		}

		err := f.app.Fuzz(context.Background(), plain())
		require.ErrorContains(t, err, domain.ErrFuzzerFailed.Error())

		runs := f.toolchain.CallsWith(f.project.Fuzzer.Corpus)
		require.Len(t, runs, 1)
		assert.Equal(t, []string{f.project.FuzzerPath(), f.project.Fuzzer.Corpus}, runs[0])
		assert.Len(t, f.toolchain.CallsWith("-fsanitize=fuzzer"), 1)
	})
}

func TestApp_Install(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, newProject(t), nil)
		prefix := filepath.Join(t.TempDir(), "prefix")

		require.NoError(t, f.app.Install(context.Background(), prefix, plain()))

		info, err := os.Stat(filepath.Join(prefix, "bin", "layec"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
		assert.DirExists(t, filepath.Join(prefix, "lib"))
	})
}

func writeTest(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestApp_TestExec(t *testing.T) {
	t.Run("all passed", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			project := newProject(t)
			writeTest(t, project.Tests.Dir, "ok.laye", "// 0\n")
			writeTest(t, project.Tests.Dir, "skip.noexec.laye", "garbage\n")
			f := newFixture(t, project, nil)

			require.NoError(t, f.app.TestExec(context.Background(), false, plain()))
			assert.Contains(t, f.stderr.String(), "100% of tests passed out of 1.")
			assert.NotContains(t, f.stdout.String(), "tests passed")
		})
	})

	t.Run("failures are reported", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			project := newProject(t)
			writeTest(t, project.Tests.Dir, "ok.laye", "// 0\n")
			writeTest(t, project.Tests.Dir, "wrong.laye", "// 4\n")
			f := newFixture(t, project, nil)

			err := f.app.TestExec(context.Background(), false, plain())

			require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
			require.ErrorContains(t, err, domain.ErrTestsFailed.Error())
			out := f.stderr.String()
			assert.Contains(t, out, "50% of tests passed, 1 tests failed out of 2.")
			assert.Contains(t, out, "The following tests FAILED:")
			assert.Contains(t, out, "wrong.laye")
		})
	})

	t.Run("external runner", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			f := newFixture(t, newProject(t), nil)
			f.toolchain.exit = func(args []string) int {
				if args[0] == f.project.TestRunnerPath() {
					return 1
				}
				return 0
			}

			err := f.app.TestExec(context.Background(), true, plain())
			require.ErrorContains(t, err, domain.ErrTestRunnerFailed.Error())
			assert.FileExists(t, f.project.TestRunnerPath())
		})
	})
}

func TestApp_TestFchk(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, newProject(t), nil)

		require.NoError(t, f.app.TestFchk(context.Background(), false, plain()))

		assert.Len(t, f.toolchain.CallsWith("-DBUILD_TESTING=ON"), 1)
		assert.Len(t, f.toolchain.CallsWith("--progress"), 1)
	})
}

func TestApp_Test_RunsBothSuites(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		project := newProject(t)
		writeTest(t, project.Tests.Dir, "wrong.laye", "// 9\n")
		f := newFixture(t, project, nil)

		err := f.app.Test(context.Background(), plain())

		require.ErrorContains(t, err, domain.ErrTestsFailed.Error())
		assert.Len(t, f.toolchain.CallsWith("--progress"), 1, "fchk suite must still run")
	})
}

func TestApp_Test_DriverFailureStopsBothSuites(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		project := newProject(t)
		writeTest(t, project.Tests.Dir, "ok.laye", "// 0\n")
		f := newFixture(t, project, nil)
		f.toolchain.exit = func(args []string) int {
			if slices.Contains(args, "-c") {
				return 1
			}
			return 0
		}

		err := f.app.Test(context.Background(), plain())

		require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
		require.ErrorContains(t, err, domain.ErrCompilationFailed.Error())
		assert.Len(t, f.toolchain.CallsWith("-c"), len(project.Sources), "units compile once")
		assert.Empty(t, f.toolchain.CallsWith("--progress"), "fchk suite must not run")
		assert.Len(t, f.logger.Errors(), 1)
	})
}

func TestApp_Clean(t *testing.T) {
	tests := []struct {
		name        string
		all         bool
		keepsOutDir bool
	}{
		{name: "build directory only", all: false, keepsOutDir: true},
		{name: "everything", all: true, keepsOutDir: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := newProject(t)
			require.NoError(t, os.MkdirAll(project.ObjectRoot(), 0o750))
			require.NoError(t, os.MkdirAll(project.Fchk.OutDir, 0o750))
			f := newFixture(t, project, nil)

			require.NoError(t, f.app.Clean(context.Background(), tt.all, app.Options{}))

			assert.NoDirExists(t, project.BuildDir)
			if tt.keepsOutDir {
				assert.DirExists(t, project.Fchk.OutDir)
			} else {
				assert.NoDirExists(t, project.Fchk.OutDir)
			}
		})
	}
}

// fakeWatcher delivers events pushed by the test until its context ends.
type fakeWatcher struct {
	dirs   []string
	events chan ports.WatchEvent
	done   chan struct{}
	once   sync.Once
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan ports.WatchEvent), done: make(chan struct{})}
}

func (w *fakeWatcher) Start(ctx context.Context, dirs []string) error {
	w.dirs = dirs
	go func() {
		<-ctx.Done()
		w.finish()
	}()
	return nil
}

// finish ends the event stream.
func (w *fakeWatcher) finish() {
	w.once.Do(func() { close(w.done) })
}

func (w *fakeWatcher) Stop() error {
	return nil
}

func (w *fakeWatcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for {
			select {
			case <-w.done:
				return
			case event := <-w.events:
				if !yield(event) {
					return
				}
			}
		}
	}
}

func TestApp_Watch(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		project := newProject(t)
		w := newFakeWatcher()
		f := newFixture(t, project, func() (ports.Watcher, error) { return w, nil })
		f.app.WithDebounceWindow(50 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- f.app.Watch(ctx, plain())
		}()

		synctest.Wait()
		require.Len(t, f.toolchain.CallsWith(project.DriverPath()), 1, "initial build")
		assert.Equal(t, []string{
			filepath.Join(project.Root, "include"),
			filepath.Join(project.Root, "lib"),
			filepath.Join(project.Root, "src"),
		}, w.dirs)

		w.events <- ports.WatchEvent{Path: filepath.Join(project.Root, "lib", "a.c"), Operation: ports.OpWrite}
		w.events <- ports.WatchEvent{Path: filepath.Join(project.Root, "lib", "notes.txt"), Operation: ports.OpWrite}
		w.events <- ports.WatchEvent{Path: filepath.Join(project.Root, "include", "a.h"), Operation: ports.OpWrite}

		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		assert.Len(t, f.toolchain.CallsWith(project.DriverPath()), 2, "one rebuild per burst")

		var changed string
		for _, msg := range f.logger.infos {
			if strings.HasPrefix(msg, "changed: ") {
				changed = msg
			}
		}
		assert.NotContains(t, changed, "notes.txt")

		cancel()
		require.NoError(t, <-errCh)
	})
}

func TestApp_Watch_StreamEndWaitsForRebuild(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		project := newProject(t)
		w := newFakeWatcher()
		f := newFixture(t, project, func() (ports.Watcher, error) { return w, nil })
		f.app.WithDebounceWindow(50 * time.Millisecond)

		release := make(chan struct{})
		var links atomic.Int32
		f.toolchain.exit = func(args []string) int {
			if slices.Contains(args, project.DriverPath()) && links.Add(1) == 2 {
				w.finish()
				<-release
			}
			return 0
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- f.app.Watch(context.Background(), plain())
		}()

		synctest.Wait()
		w.events <- ports.WatchEvent{Path: filepath.Join(project.Root, "lib", "a.c"), Operation: ports.OpWrite}

		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		select {
		case err := <-errCh:
			t.Fatalf("watch returned during a rebuild: %v", err)
		default:
		}

		close(release)
		err := <-errCh
		require.ErrorContains(t, err, domain.ErrWatcherFailed.Error())
		assert.Len(t, f.toolchain.CallsWith(project.DriverPath()), 2)
	})
}

func TestApp_Watch_FactoryError(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, newProject(t), func() (ports.Watcher, error) {
			return nil, errors.New("too many open files")
		})

		err := f.app.Watch(context.Background(), plain())
		require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
		require.ErrorContains(t, err, "too many open files")
	})
}

func TestApp_Watch_StartError(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		w := mocks.NewMockWatcher(ctrl)
		w.EXPECT().Start(gomock.Any(), gomock.Any()).Return(domain.ErrWatcherFailed)
		w.EXPECT().Stop().Return(nil)

		f := newFixture(t, newProject(t), func() (ports.Watcher, error) { return w, nil })

		err := f.app.Watch(context.Background(), plain())
		require.ErrorIs(t, err, domain.ErrWatcherFailed)
		assert.Len(t, f.toolchain.CallsWith(f.project.DriverPath()), 1, "driver is built before watching")
	})
}
