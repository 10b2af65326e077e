package domain

import "go.trai.ch/zerr"

var (
	// ErrConfigNotFound is returned when an explicitly requested configuration file does not exist.
	ErrConfigNotFound = zerr.New("configuration file not found")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrUnsupportedConfigVersion is returned when the config file declares a version kiln does not understand.
	ErrUnsupportedConfigVersion = zerr.New("unsupported config version")

	// ErrNoSources is returned when the project declares no translation units.
	ErrNoSources = zerr.New("project declares no source units")

	// ErrMissingCompiler is returned when no compiler executable is configured.
	ErrMissingCompiler = zerr.New("no compiler configured")

	// ErrMissingTestExtension is returned when the test file extension is empty.
	ErrMissingTestExtension = zerr.New("test file extension must not be empty")

	// ErrInvalidTarget is returned when a build is requested for a target that does not exist.
	ErrInvalidTarget = zerr.New("invalid project specified to build")

	// ErrLaunchFailed is returned when a toolchain process could not be started.
	ErrLaunchFailed = zerr.New("failed to launch process")

	// ErrCompilationFailed is returned when a translation unit fails to compile.
	ErrCompilationFailed = zerr.New("compilation failed")

	// ErrLinkFailed is returned when the link step exits non-zero.
	ErrLinkFailed = zerr.New("link failed")

	// ErrObjectDirCreateFailed is returned when the object directory cannot be created.
	ErrObjectDirCreateFailed = zerr.New("failed to create object directory")

	// ErrDriverFailed is returned when the built driver exits non-zero under `kiln run`.
	ErrDriverFailed = zerr.New("driver exited with non-zero status")

	// ErrFuzzerFailed is returned when the fuzzing harness exits non-zero.
	ErrFuzzerFailed = zerr.New("fuzzer exited with non-zero status")

	// ErrTestRunnerFailed is returned when the external test runner exits non-zero.
	ErrTestRunnerFailed = zerr.New("test runner exited with non-zero status")

	// ErrTestDirUnreadable is returned when the test directory cannot be listed.
	ErrTestDirUnreadable = zerr.New("cannot read test directory")

	// ErrInvalidExpectation is returned when a test file does not start with an expected exit code comment.
	ErrInvalidExpectation = zerr.New("test file does not begin with an expected exit code comment")

	// ErrTestsFailed is returned when at least one execution test failed.
	ErrTestsFailed = zerr.New("execution tests failed")

	// ErrExternalSuiteFailed is returned when a step of the fchk suite exits non-zero.
	ErrExternalSuiteFailed = zerr.New("fchk test suite failed")

	// ErrInstallFailed is returned when the driver cannot be installed into the destination prefix.
	ErrInstallFailed = zerr.New("failed to install driver")

	// ErrStampReadFailed is returned when the build stamp cannot be read.
	ErrStampReadFailed = zerr.New("failed to read build stamp")

	// ErrStampUnmarshalFailed is returned when the build stamp cannot be decoded.
	ErrStampUnmarshalFailed = zerr.New("failed to unmarshal build stamp")

	// ErrStampMarshalFailed is returned when the build stamp cannot be encoded.
	ErrStampMarshalFailed = zerr.New("failed to marshal build stamp")

	// ErrStampWriteFailed is returned when the build stamp cannot be written.
	ErrStampWriteFailed = zerr.New("failed to write build stamp")

	// ErrWatcherFailed is returned when the file watcher cannot be started.
	ErrWatcherFailed = zerr.New("failed to start file watcher")

	// ErrInvalidOutputMode is returned when --output-mode names an unknown mode.
	ErrInvalidOutputMode = zerr.New("invalid output mode")

	// ErrBuildExecutionFailed is returned when a build command fails after reporting its own diagnostics.
	ErrBuildExecutionFailed = zerr.New("build execution failed")
)
