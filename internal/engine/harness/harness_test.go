package harness_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/harness"
	"go.uber.org/mock/gomock"
)

type env struct {
	project   *domain.Project
	toolchain *mocks.MockToolchain
	logger    *mocks.MockLogger
	harness   *harness.Harness
}

func newEnv(t *testing.T, files map[string]string) *env {
	t.Helper()
	ctrl := gomock.NewController(t)

	project := domain.DefaultProject(t.TempDir())
	require.NoError(t, os.MkdirAll(project.Tests.Dir, 0o750))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(project.Tests.Dir, name), []byte(content), 0o600))
	}

	e := &env{
		project:   project,
		toolchain: mocks.NewMockToolchain(ctrl),
		logger:    mocks.NewMockLogger(ctrl),
	}
	e.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	e.logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	e.harness = harness.New(project, e.toolchain, fs.NewProbe(), telemetry.NewNoOpTracer(), e.logger)
	return e
}

// expectCase sets up the compile and run of one test file. A negative compile
// code means the driver could not be launched.
func (e *env) expectCase(t *testing.T, name string, compileCode, exitCode int) {
	t.Helper()
	path := filepath.Join(e.project.Tests.Dir, name)
	artifact := domain.ArtifactPath(path)

	compile := e.toolchain.EXPECT().Run(gomock.Any(), domain.Invocation{
		Args: []string{e.project.DriverPath(), "-o", artifact, path},
		Dir:  e.project.Root,
	}).DoAndReturn(func(context.Context, domain.Invocation) (int, error) {
		if compileCode < 0 {
			return -1, errors.New("driver missing")
		}
		if compileCode == 0 {
			require.NoError(t, os.WriteFile(artifact, []byte("#!"), 0o600))
		}
		return compileCode, nil
	})

	if compileCode != 0 {
		return
	}
	e.toolchain.EXPECT().Run(gomock.Any(), domain.Invocation{
		Args: []string{artifact},
		Dir:  e.project.Root,
	}).Return(exitCode, nil).After(compile)
}

func TestDiscover(t *testing.T) {
	e := newEnv(t, map[string]string{
		"b_return.laye":     "// 0\n",
		"a_arith.laye":      "// 3\n",
		"parse.noexec.laye": "// 0\n",
		"README.md":         "",
		"old.laye.out":      "",
	})

	cases, err := e.harness.Discover()
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "a_arith.laye", cases[0].Name)
	assert.Equal(t, "b_return.laye", cases[1].Name)
	assert.Equal(t, domain.ArtifactPath(cases[0].Path), cases[0].ArtifactPath)
}

func TestDiscover_UnreadableDirectory(t *testing.T) {
	e := newEnv(t, nil)
	require.NoError(t, os.RemoveAll(e.project.Tests.Dir))

	_, err := e.harness.Discover()
	require.ErrorContains(t, err, domain.ErrTestDirUnreadable.Error())
}

func TestRunCase_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		compileCode int
		exitCode    int
		want        domain.Outcome
	}{
		{name: "zero passes", content: "// 0\nfn main() {}\n", exitCode: 0, want: domain.OutcomePassed},
		{name: "nonzero passes", content: "// 42\n", exitCode: 42, want: domain.OutcomePassed},
		{name: "mismatch", content: "// 1\n", exitCode: 0, want: domain.OutcomeMismatch},
		{name: "missing expectation", content: "fn main() {}\n", exitCode: 0, want: domain.OutcomeInvalidExpectation},
		{name: "compile error", content: "// 0\n", compileCode: 1, want: domain.OutcomeCompileFailed},
		{name: "driver missing", content: "// 0\n", compileCode: -1, want: domain.OutcomeCompileFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, map[string]string{"case.laye": tt.content})
			e.expectCase(t, "case.laye", tt.compileCode, tt.exitCode)

			tc := domain.NewTestCase(filepath.Join(e.project.Tests.Dir, "case.laye"))
			record := e.harness.RunCase(context.Background(), tc)

			assert.Equal(t, tt.want, record.Outcome)
			assert.NoFileExists(t, tc.ArtifactPath)
		})
	}
}

func TestRunCase_RunFailure(t *testing.T) {
	e := newEnv(t, map[string]string{"case.laye": "// 0\n"})
	path := filepath.Join(e.project.Tests.Dir, "case.laye")
	artifact := domain.ArtifactPath(path)

	gomock.InOrder(
		e.toolchain.EXPECT().Run(gomock.Any(), gomock.Any()).Return(0, nil),
		e.toolchain.EXPECT().Run(gomock.Any(), domain.Invocation{Args: []string{artifact}, Dir: e.project.Root}).
			Return(-1, errors.New("exec format error")),
	)

	record := e.harness.RunCase(context.Background(), domain.NewTestCase(path))
	assert.Equal(t, domain.OutcomeRunFailed, record.Outcome)
}

func TestRun_AggregatesInDiscoveryOrder(t *testing.T) {
	e := newEnv(t, map[string]string{
		"a.laye":        "// 0\n",
		"b.laye":        "// 7\n",
		"c.laye":        "no comment\n",
		"d.noexec.laye": "// 0\n",
	})
	e.expectCase(t, "a.laye", 0, 0)
	e.expectCase(t, "b.laye", 0, 6)
	e.expectCase(t, "c.laye", 0, 0)

	report, err := e.harness.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 1, report.Passed())
	assert.Equal(t, 33, report.Percent())
	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "b.laye", failed[0].Case.Name)
	assert.Equal(t, "c.laye", failed[1].Case.Name)
}

func TestRun_EmptySuite(t *testing.T) {
	e := newEnv(t, map[string]string{"only.noexec.laye": "// 0\n"})

	report, err := e.harness.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Total())
	assert.Zero(t, report.Percent())
	assert.True(t, report.OK())
}

func TestRun_StopsWhenCancelled(t *testing.T) {
	e := newEnv(t, map[string]string{"a.laye": "// 0\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.harness.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
