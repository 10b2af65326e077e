package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.trai.ch/kiln/internal/engine/scheduler"
)

// fakeBuilder records every step as a short string and fails the step named in failOn.
type fakeBuilder struct {
	project *domain.Project
	steps   []string
	failOn  string
}

func (f *fakeBuilder) Project() *domain.Project { return f.project }

func (f *fakeBuilder) step(s string) error {
	f.steps = append(f.steps, s)
	if f.failOn != "" && strings.HasPrefix(s, f.failOn) {
		return errors.New(s + " failed")
	}
	return nil
}

func (f *fakeBuilder) CompileAll(_ context.Context, full bool) (scheduler.PassResult, error) {
	return scheduler.PassResult{}, f.step(fmt.Sprintf("compile-all full=%t", full))
}

func (f *fakeBuilder) Compile(_ context.Context, source, object string) error {
	return f.step("compile " + source + " " + object)
}

func (f *fakeBuilder) Link(_ context.Context, objects []string, output string, extra ...string) error {
	return f.step(fmt.Sprintf("link %s %v %v", output, objects, extra))
}

func (f *fakeBuilder) BuildExecutable(_ context.Context, output string, sources ...string) error {
	return f.step(fmt.Sprintf("exe %s %v", output, sources))
}

func testProject() *domain.Project {
	p := domain.DefaultProject("/w")
	p.Sources = []domain.SourceUnit{"/w/lib/a.c", "/w/lib/b.c", "/w/src/layec.c"}
	p.Fuzzer.Source = "/w/fuzz/parse_fuzzer.c"
	p.TestRunner.Source = "/w/src/exec_test_runner.c"
	return p
}

func TestPipeline_Driver(t *testing.T) {
	b := &fakeBuilder{project: testProject()}

	require.NoError(t, pipeline.New(b).Driver(context.Background()))
	assert.Equal(t, []string{
		"compile-all full=false",
		"link /w/out/layec [/w/out/o/a.c.o /w/out/o/b.c.o /w/out/o/layec.c.o] []",
	}, b.steps)
}

func TestPipeline_DriverStopsBeforeLinkOnCompileFailure(t *testing.T) {
	b := &fakeBuilder{project: testProject(), failOn: "compile-all"}

	require.Error(t, pipeline.New(b).Driver(context.Background()))
	assert.Equal(t, []string{"compile-all full=false"}, b.steps)
}

func TestPipeline_TestRunner(t *testing.T) {
	b := &fakeBuilder{project: testProject()}

	require.NoError(t, pipeline.New(b).TestRunner(context.Background()))
	assert.Equal(t, []string{"exe /w/out/exec_test_runner [/w/src/exec_test_runner.c]"}, b.steps)
}

func TestPipeline_Fuzzer(t *testing.T) {
	b := &fakeBuilder{project: testProject()}

	require.NoError(t, pipeline.New(b).Fuzzer(context.Background()))
	assert.Equal(t, []string{
		"compile-all full=false",
		"compile /w/fuzz/parse_fuzzer.c /w/out/o/parse_fuzzer.c.o",
		"link /w/out/parse_fuzzer [/w/out/o/a.c.o /w/out/o/b.c.o /w/out/o/parse_fuzzer.c.o] [-fsanitize=fuzzer]",
	}, b.steps)
}

func TestPipeline_All(t *testing.T) {
	t.Run("builds every target in order", func(t *testing.T) {
		b := &fakeBuilder{project: testProject()}

		require.NoError(t, pipeline.New(b).All(context.Background()))
		require.Len(t, b.steps, 6)
		assert.True(t, strings.HasPrefix(b.steps[1], "link /w/out/layec"))
		assert.True(t, strings.HasPrefix(b.steps[2], "exe /w/out/exec_test_runner"))
		assert.True(t, strings.HasPrefix(b.steps[5], "link /w/out/parse_fuzzer"))
	})

	t.Run("stops at the first failing target", func(t *testing.T) {
		b := &fakeBuilder{project: testProject(), failOn: "exe"}

		require.Error(t, pipeline.New(b).All(context.Background()))
		assert.Len(t, b.steps, 3)
	})
}

func TestPipeline_Target(t *testing.T) {
	t.Run("driver by name", func(t *testing.T) {
		b := &fakeBuilder{project: testProject()}
		require.NoError(t, pipeline.New(b).Target(context.Background(), "layec"))
		assert.Len(t, b.steps, 2)
	})

	t.Run("empty name builds everything", func(t *testing.T) {
		b := &fakeBuilder{project: testProject()}
		require.NoError(t, pipeline.New(b).Target(context.Background(), ""))
		assert.Len(t, b.steps, 6)
	})

	t.Run("unknown name", func(t *testing.T) {
		b := &fakeBuilder{project: testProject()}
		err := pipeline.New(b).Target(context.Background(), "layec2")
		require.ErrorContains(t, err, "invalid project specified to build")
		assert.Empty(t, b.steps)
	})
}
