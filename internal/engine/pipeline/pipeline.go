// Package pipeline builds the kiln targets from compiled objects.
package pipeline

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// Builder is the part of the scheduler the pipeline needs.
type Builder interface {
	Project() *domain.Project
	CompileAll(ctx context.Context, fullRebuild bool) (scheduler.PassResult, error)
	Compile(ctx context.Context, source, object string) error
	Link(ctx context.Context, objects []string, output string, extraFlags ...string) error
	BuildExecutable(ctx context.Context, output string, sources ...string) error
}

var _ Builder = (*scheduler.Scheduler)(nil)

// Pipeline builds the driver, the test runner and the fuzzer.
// Every target is idempotent and can be built on its own.
type Pipeline struct {
	builder Builder
}

// New creates a Pipeline on top of builder.
func New(builder Builder) *Pipeline {
	return &Pipeline{builder: builder}
}

// Driver compiles stale units and links every object into the driver executable.
func (p *Pipeline) Driver(ctx context.Context) error {
	project := p.builder.Project()

	if _, err := p.builder.CompileAll(ctx, false); err != nil {
		return err
	}
	return p.builder.Link(ctx, project.Objects(), project.DriverPath())
}

// TestRunner builds the standalone execution test runner. It does not use the object cache.
func (p *Pipeline) TestRunner(ctx context.Context) error {
	project := p.builder.Project()
	return p.builder.BuildExecutable(ctx, project.TestRunnerPath(), project.TestRunner.Source)
}

// Fuzzer links the library objects with the fuzzing entry point and the fuzzer runtime.
func (p *Pipeline) Fuzzer(ctx context.Context) error {
	project := p.builder.Project()

	if _, err := p.builder.CompileAll(ctx, false); err != nil {
		return err
	}

	fuzzObject := project.FuzzerObjectPath()
	if err := p.builder.Compile(ctx, project.Fuzzer.Source, fuzzObject); err != nil {
		return err
	}

	objects := append(project.LibraryObjects(), fuzzObject)
	var extra []string
	if project.Fuzzer.Flag != "" {
		extra = append(extra, project.Fuzzer.Flag)
	}
	return p.builder.Link(ctx, objects, project.FuzzerPath(), extra...)
}

// All builds the driver, the test runner and the fuzzer in that order and stops at the first failure.
func (p *Pipeline) All(ctx context.Context) error {
	steps := []struct {
		name  string
		build func(context.Context) error
	}{
		{name: "driver", build: p.Driver},
		{name: "test runner", build: p.TestRunner},
		{name: "fuzzer", build: p.Fuzzer},
	}

	for _, step := range steps {
		if err := step.build(ctx); err != nil {
			return zerr.With(err, "target", step.name)
		}
	}
	return nil
}

// Target builds the named target. The empty name builds everything.
func (p *Pipeline) Target(ctx context.Context, name string) error {
	switch name {
	case "":
		return p.All(ctx)
	case p.builder.Project().Driver.Name:
		return p.Driver(ctx)
	default:
		return zerr.With(domain.ErrInvalidTarget, "target", name)
	}
}
