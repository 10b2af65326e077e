package domain

import (
	"bufio"
	"io"
	"path/filepath"
	"regexp"
	"strconv"

	"go.trai.ch/zerr"
)

// TestCase is one execution test discovered in the test directory.
type TestCase struct {
	Name         string
	Path         string
	ArtifactPath string
}

// NewTestCase builds a test case for the file at path.
func NewTestCase(path string) TestCase {
	return TestCase{
		Name:         filepath.Base(path),
		Path:         path,
		ArtifactPath: ArtifactPath(path),
	}
}

// Outcome classifies how a test case ended.
type Outcome string

const (
	// OutcomePassed means the program exited with the expected status.
	OutcomePassed Outcome = "passed"
	// OutcomeCompileFailed means the driver could not compile the test file.
	OutcomeCompileFailed Outcome = "compile-failed"
	// OutcomeRunFailed means the compiled program could not be started.
	OutcomeRunFailed Outcome = "run-failed"
	// OutcomeInvalidExpectation means the test file has no usable expectation comment.
	OutcomeInvalidExpectation Outcome = "invalid-expectation"
	// OutcomeMismatch means the exit status differed from the expectation.
	OutcomeMismatch Outcome = "mismatch"
)

// TestRunRecord is the result of running one test case.
type TestRunRecord struct {
	Case     TestCase
	Outcome  Outcome
	Expected int
	Actual   int
}

// Passed reports whether the case passed.
func (r TestRunRecord) Passed() bool {
	return r.Outcome == OutcomePassed
}

var expectationPattern = regexp.MustCompile(`^//\s*([+-]?\d+)`)

// ParseExpectation reads the expected exit status from the first line of a test file.
// The line must start with "//", optional whitespace and a signed decimal integer.
func ParseExpectation(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, zerr.Wrap(err, ErrInvalidExpectation.Error())
		}
		return 0, ErrInvalidExpectation
	}

	match := expectationPattern.FindStringSubmatch(scanner.Text())
	if match == nil {
		return 0, zerr.With(ErrInvalidExpectation, "line", scanner.Text())
	}

	expected, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, ErrInvalidExpectation.Error()), "line", scanner.Text())
	}
	return expected, nil
}
