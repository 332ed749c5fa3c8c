// Package execution runs commands for the harness, either on the local
// machine (where the juju client lives) or on a remote host over SSH
// (direct benchmark mode).
package execution

import (
	"context"
	"io"
)

// Request describes a single command invocation.
type Request struct {
	// Command is the shell command line to run.
	Command string
	// Stdout, when set, receives live output while the command runs.
	// Benchmark runs can take many minutes, so callers usually want this.
	Stdout io.Writer
	// UsePTY requests a pseudo-terminal for tools that change their output
	// when not attached to one.
	UsePTY bool
}

// Result is the outcome of a command invocation. Output holds combined
// stdout and stderr.
type Result struct {
	Output   string
	ExitCode int
}

// Client executes commands on one host.
type Client interface {
	Run(ctx context.Context, req Request) (Result, error)
	// Fetch copies a remote file to the local machine.
	Fetch(ctx context.Context, remotePath, localPath string) error
	// Upload copies a local file to the remote host.
	Upload(ctx context.Context, localPath, remotePath string) error
	Close() error
}
