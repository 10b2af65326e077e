// Package harness runs the execution tests: every test file is compiled with the
// driver, executed, and its exit status compared with the expectation on its first line.
package harness

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Harness discovers and runs execution tests sequentially.
type Harness struct {
	project   *domain.Project
	toolchain ports.Toolchain
	probe     ports.Probe
	tracer    ports.Tracer
	logger    ports.Logger
}

// New creates a Harness for project.
func New(
	project *domain.Project,
	toolchain ports.Toolchain,
	probe ports.Probe,
	tracer ports.Tracer,
	logger ports.Logger,
) *Harness {
	return &Harness{
		project:   project,
		toolchain: toolchain,
		probe:     probe,
		tracer:    tracer,
		logger:    logger,
	}
}

// Discover lists the execution tests in the test directory in name order.
// Files carrying the no-exec marker are not test cases.
func (h *Harness) Discover() ([]domain.TestCase, error) {
	dir := h.project.Tests.Dir
	names, err := h.probe.ListDir(dir)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrTestDirUnreadable.Error()), "dir", dir)
	}

	var cases []domain.TestCase
	for _, name := range names {
		if !h.project.IsExecTest(name) {
			continue
		}
		cases = append(cases, domain.NewTestCase(filepath.Join(dir, name)))
	}
	return cases, nil
}

// Run executes every discovered case and aggregates the outcomes.
// A failing case never stops the suite.
func (h *Harness) Run(ctx context.Context) (*domain.SuiteReport, error) {
	cases, err := h.Discover()
	if err != nil {
		return nil, err
	}

	report := &domain.SuiteReport{}
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Add(h.RunCase(ctx, tc))
	}
	return report, nil
}

// RunCase compiles, runs and checks one test case. The compiled program is removed afterwards.
func (h *Harness) RunCase(ctx context.Context, tc domain.TestCase) domain.TestRunRecord {
	h.logger.Info(`-- Running execution test for "` + tc.Path + `"`)

	ctx, span := h.tracer.Start(ctx, tc.Name)
	defer span.End()

	record := h.runCase(ctx, tc)
	span.SetAttribute("outcome", string(record.Outcome))
	if !record.Passed() {
		span.RecordError(zerr.New(string(record.Outcome)))
	}
	return record
}

func (h *Harness) runCase(ctx context.Context, tc domain.TestCase) domain.TestRunRecord {
	record := domain.TestRunRecord{Case: tc}

	defer func() {
		_ = os.Remove(tc.ArtifactPath)
	}()

	code, err := h.toolchain.Run(ctx, domain.Invocation{
		Args: []string{h.project.DriverPath(), "-o", tc.ArtifactPath, tc.Path},
		Dir:  h.project.Root,
	})
	if err != nil || code != 0 {
		record.Outcome = domain.OutcomeCompileFailed
		return record
	}

	actual, err := h.toolchain.Run(ctx, domain.Invocation{
		Args: []string{tc.ArtifactPath},
		Dir:  h.project.Root,
	})
	if err != nil {
		h.logger.Warn("could not run " + tc.ArtifactPath + ": " + err.Error())
		record.Outcome = domain.OutcomeRunFailed
		return record
	}
	record.Actual = actual

	expected, err := h.readExpectation(tc.Path)
	if err != nil {
		record.Outcome = domain.OutcomeInvalidExpectation
		return record
	}
	record.Expected = expected

	if expected != actual {
		h.logger.Warn(tc.Name + ": expected exit code " + strconv.Itoa(expected) + ", got " + strconv.Itoa(actual))
		record.Outcome = domain.OutcomeMismatch
		return record
	}

	record.Outcome = domain.OutcomePassed
	return record
}

func (h *Harness) readExpectation(path string) (int, error) {
	//nolint:gosec // Path comes from the test directory listing
	f, err := os.Open(path)
	if err != nil {
		return 0, zerr.Wrap(err, domain.ErrInvalidExpectation.Error())
	}
	defer func() {
		_ = f.Close()
	}()

	return domain.ParseExpectation(f)
}
