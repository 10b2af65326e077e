package domain

import (
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// SourceUnit is one translation unit in the build. Its position in Project.Sources is significant.
type SourceUnit string

// Path returns the source file path.
func (u SourceUnit) Path() string {
	return string(u)
}

// Base returns the file name of the unit without its directory.
func (u SourceUnit) Base() string {
	return filepath.Base(string(u))
}

// Toolchain describes how translation units are compiled.
type Toolchain struct {
	Compiler string
	Flags    []string
	Sanitize bool
}

// Executable names a linked program produced under the build directory.
type Executable struct {
	Name string
}

// TestRunner is the standalone execution test runner program.
type TestRunner struct {
	Name   string
	Source string
}

// Fuzzer is the fuzzing harness linked from the library units and its own entry point.
type Fuzzer struct {
	Name   string
	Source string
	Corpus string
	Flag   string
}

// TestSuite locates the execution tests.
type TestSuite struct {
	Dir          string
	Extension    string
	NoExecMarker string
}

// Fchk drives the cmake/ctest based file comparison suite.
type Fchk struct {
	OutDir    string
	Configure []string
	Build     []string
	Run       []string
}

// Project is the immutable description of one kiln project.
// It is built once per command and shared by pointer; nothing mutates it afterwards.
type Project struct {
	Root       string
	Toolchain  Toolchain
	HeadersDir string
	Sources    []SourceUnit
	BuildDir   string
	ObjectDir  string

	Driver     Executable
	TestRunner TestRunner
	Fuzzer     Fuzzer
	Tests      TestSuite
	Fchk       Fchk
}

// Validate reports configuration errors that would make every build fail.
func (p *Project) Validate() error {
	switch {
	case len(p.Sources) == 0:
		return ErrNoSources
	case p.Toolchain.Compiler == "":
		return ErrMissingCompiler
	case p.Tests.Extension == "":
		return ErrMissingTestExtension
	}
	return nil
}

// CompileFlags returns the flags shared by every compile and link invocation.
func (p *Project) CompileFlags() []string {
	flags := slices.Clone(p.Toolchain.Flags)
	if p.Toolchain.Sanitize {
		flags = append(flags, "-fsanitize=address")
	}
	return flags
}

// CommandTemplate returns the compiler followed by the compile flags.
// Two builds with the same template produce interchangeable objects.
func (p *Project) CommandTemplate() []string {
	return append([]string{p.Toolchain.Compiler}, p.CompileFlags()...)
}

// ObjectRoot returns the directory that holds object artifacts.
func (p *Project) ObjectRoot() string {
	return filepath.Join(p.BuildDir, p.ObjectDir)
}

// ObjectPath maps a source unit to its object artifact.
// The mapping only depends on the basename, so two units sharing a basename collide.
func (p *Project) ObjectPath(unit SourceUnit) string {
	return filepath.Join(p.ObjectRoot(), unit.Base()+ObjectSuffix)
}

// Objects returns the object paths of every unit, in list order.
func (p *Project) Objects() []string {
	objects := make([]string, 0, len(p.Sources))
	for _, unit := range p.Sources {
		objects = append(objects, p.ObjectPath(unit))
	}
	return objects
}

// EntryUnit returns the unit that defines the program entry point.
func (p *Project) EntryUnit() SourceUnit {
	return p.Sources[len(p.Sources)-1]
}

// LibraryObjects returns the objects of every unit except the entry unit.
func (p *Project) LibraryObjects() []string {
	objects := p.Objects()
	return objects[:len(objects)-1]
}

// DriverPath returns the path of the linked driver executable.
func (p *Project) DriverPath() string {
	return filepath.Join(p.BuildDir, p.Driver.Name)
}

// TestRunnerPath returns the path of the linked test runner.
func (p *Project) TestRunnerPath() string {
	return filepath.Join(p.BuildDir, p.TestRunner.Name)
}

// FuzzerPath returns the path of the linked fuzzing harness.
func (p *Project) FuzzerPath() string {
	return filepath.Join(p.BuildDir, p.Fuzzer.Name)
}

// FuzzerObjectPath returns the object path for the fuzzing entry point.
func (p *Project) FuzzerObjectPath() string {
	return p.ObjectPath(SourceUnit(p.Fuzzer.Source))
}

// StampPath returns the location of the compile flags stamp.
func (p *Project) StampPath() string {
	return filepath.Join(p.BuildDir, StampFileName)
}

// NoExecExtension returns the suffix of test files that are excluded from execution,
// for example ".noexec.laye".
func (p *Project) NoExecExtension() string {
	return p.Tests.NoExecMarker + p.Tests.Extension
}

// IsExecTest reports whether a file name in the test directory is an execution test.
func (p *Project) IsExecTest(name string) bool {
	if !strings.HasSuffix(name, p.Tests.Extension) {
		return false
	}
	if p.Tests.NoExecMarker != "" && strings.HasSuffix(name, p.NoExecExtension()) {
		return false
	}
	return true
}

// ArtifactPath returns the compiled program path for a test file.
func ArtifactPath(testPath string) string {
	if runtime.GOOS == "windows" {
		return testPath + ArtifactSuffix + WindowsExecutableSuffix
	}
	return testPath + ArtifactSuffix
}
