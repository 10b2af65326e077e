// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// Toolchain runs compiler, linker and test program subprocesses.
//
// A returned error always means the process could not be launched.
// A process that ran reports its exit status through the int result, even when it is non-zero.
//
//go:generate mockgen -source=toolchain.go -destination=mocks/mock_toolchain.go -package=mocks
type Toolchain interface {
	// Run launches the invocation and blocks until it exits.
	Run(ctx context.Context, inv domain.Invocation) (int, error)

	// Start launches the invocation and returns a handle to wait on.
	// Cancelling ctx kills the process.
	Start(ctx context.Context, inv domain.Invocation) (Job, error)
}

// Job is the handle of one in-flight subprocess. Wait must be called exactly once.
type Job interface {
	// Wait blocks until the process exits and returns its exit status.
	// A process terminated by a signal reports -1.
	Wait() (int, error)
}
