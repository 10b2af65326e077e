// Package detector decides how toolchain output is attached to the controlling terminal.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode represents how compiler output is captured.
type OutputMode int

const (
	// ModeAuto lets DetectEnvironment decide.
	ModeAuto OutputMode = iota
	// ModeTerminal runs compile jobs on a pseudo-terminal so diagnostics keep their colours.
	ModeTerminal
	// ModePlain captures compile jobs through pipes.
	ModePlain
)

// DetectEnvironment returns ModePlain when stdout is not a terminal or CI is set,
// and ModeAuto otherwise.
func DetectEnvironment() OutputMode {
	if !term.IsTerminal(int(os.Stdout.Fd())) || isCI() {
		return ModePlain
	}
	return ModeAuto
}

// ResolveMode applies the --output-mode flag to the detected mode.
// userFlag is one of "auto", "tty", "plain", "ci" or empty.
func ResolveMode(detected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case "tty":
		return ModeTerminal
	case "plain", "ci":
		return ModePlain
	}
	if detected == ModeAuto {
		return ModeTerminal
	}
	return detected
}

func isCI() bool {
	ci := os.Getenv("CI")
	return ci == "true" || ci == "1"
}
