package domain

import "io"

// Invocation describes one toolchain subprocess.
type Invocation struct {
	// Args holds the executable followed by its arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Stdout and Stderr receive the process output. Nil inherits the controller's streams.
	Stdout io.Writer
	Stderr io.Writer
	// PTY runs the process on a pseudo-terminal and copies its output to Stdout.
	PTY bool
}

// Name returns the executable of the invocation.
func (i Invocation) Name() string {
	if len(i.Args) == 0 {
		return ""
	}
	return i.Args[0]
}
