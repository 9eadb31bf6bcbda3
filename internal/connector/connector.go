// Package connector defines the interface for running commands on and
// retrieving files from target hosts.
package connector

import (
	"context"
	"io"
)

// Result holds the output from command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Connector is the interface for connecting to and operating on targets.
// A connector owns exactly one session and is never shared between
// concurrent workers.
type Connector interface {
	// Connect establishes a connection to the target.
	Connect(ctx context.Context) error

	// Execute runs a command on the target and returns the result.
	// Both output streams are fully consumed before the exit status is
	// read, so the Result is complete when Execute returns.
	Execute(ctx context.Context, cmd string) (*Result, error)

	// Download copies a file from remote source to the given writer.
	Download(ctx context.Context, src string, dst io.Writer) error

	// Close terminates the connection. Close must be idempotent and must
	// never fail: a close error after the work is done must not turn a
	// successful run into a failure.
	Close() error

	// String returns a human-readable description of the connection.
	String() string
}
