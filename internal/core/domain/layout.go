package domain

const (
	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "kiln.yaml"

	// ConfigVersion is the configuration schema version understood by this build of kiln.
	ConfigVersion = "1"

	// StampFileName is the name of the compile flags stamp inside the build directory.
	StampFileName = ".kiln-stamp.json"

	// ObjectSuffix is appended to the basename of a source unit to name its object file.
	ObjectSuffix = ".o"

	// ArtifactSuffix is appended to a test file path to name its compiled program.
	ArtifactSuffix = ".out"

	// WindowsExecutableSuffix is appended to executables produced on Windows hosts.
	WindowsExecutableSuffix = ".exe"

	// WaitingForObjectsMessage is logged before the compile pass joins its jobs.
	WaitingForObjectsMessage = "Waiting for object files to finish compiling..."

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// ExecPerm is the permission for installed executables (rwxr-xr-x).
	ExecPerm = 0o755
)
