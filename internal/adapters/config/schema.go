package config

// Kilnfile represents the structure of the kiln.yaml configuration file.
// Every section is optional; omitted values keep the built-in layout.
type Kilnfile struct {
	Version   string        `yaml:"version"`
	Toolchain *ToolchainDTO `yaml:"toolchain"`
	Build     *BuildDTO     `yaml:"build"`
	Targets   *TargetsDTO   `yaml:"targets"`
	Tests     *TestsDTO     `yaml:"tests"`
	Fchk      *FchkDTO      `yaml:"fchk"`
}

// ToolchainDTO configures the compiler invocation.
type ToolchainDTO struct {
	Compiler string   `yaml:"compiler"`
	Flags    []string `yaml:"flags"`
	Sanitize *bool    `yaml:"sanitize"`
}

// BuildDTO configures the translation units and output locations.
type BuildDTO struct {
	Dir       string   `yaml:"dir"`
	ObjectDir string   `yaml:"objectDir"`
	Headers   string   `yaml:"headers"`
	Sources   []string `yaml:"sources"`
}

// TargetsDTO configures the linked executables.
type TargetsDTO struct {
	Driver     *DriverDTO     `yaml:"driver"`
	TestRunner *TestRunnerDTO `yaml:"testRunner"`
	Fuzzer     *FuzzerDTO     `yaml:"fuzzer"`
}

// DriverDTO configures the main executable.
type DriverDTO struct {
	Name string `yaml:"name"`
}

// TestRunnerDTO configures the standalone test runner.
type TestRunnerDTO struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

// FuzzerDTO configures the fuzzing harness.
type FuzzerDTO struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Corpus string `yaml:"corpus"`
	Flag   string `yaml:"flag"`
}

// TestsDTO configures execution test discovery.
type TestsDTO struct {
	Dir          string  `yaml:"dir"`
	Extension    string  `yaml:"extension"`
	NoExecMarker *string `yaml:"noExecMarker"`
}

// FchkDTO configures the cmake/ctest suite.
type FchkDTO struct {
	OutDir    string   `yaml:"outDir"`
	Configure []string `yaml:"configure"`
	Build     []string `yaml:"build"`
	Run       []string `yaml:"run"`
}
