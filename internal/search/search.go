// Package search runs the remote search command on one host and classifies
// the result.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/eugenetaranov/fleetgrep/internal/command"
	"github.com/eugenetaranov/fleetgrep/internal/config"
	"github.com/eugenetaranov/fleetgrep/internal/connector"
)

// Status classifies the outcome of running the search on one host.
type Status int

const (
	// StatusMatched means the search exited 0; Paths is
	// authoritative (and preserved as Matched even when empty, matching
	// the upstream tool's exit-code contract).
	StatusMatched Status = iota

	// StatusNoMatch means the search ran and found nothing. This is a
	// normal outcome, not a failure.
	StatusNoMatch

	// StatusRemoteError means the session was established and the command
	// ran, but the search tool reported an error or an unrecognized code.
	StatusRemoteError

	// StatusConnectionFailure means the session could not be established
	// at all; the search never ran on this host.
	StatusConnectionFailure
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusNoMatch:
		return "no match"
	case StatusRemoteError:
		return "remote error"
	case StatusConnectionFailure:
		return "connection failure"
	default:
		return "unknown"
	}
}

// grep exit codes, reproduced exactly:
//
//	0 -> matches found
//	1 -> no matches
//	2 -> error
//
// connectExitCode is the sentinel for hosts that could not be reached at
// all, distinct from anything the remote tool can report, so aggregation
// can separate "unreachable" from "reachable but search failed".
const (
	exitMatched     = 0
	exitNoMatch     = 1
	exitRemoteError = 2

	connectExitCode = 255
)

// Request describes one search, shared read-only across all hosts. Term is
// always matched literally; PathGlob is expanded by the remote shell.
type Request struct {
	Term     string
	PathGlob string
}

// Command returns the remote command line for the request. Same request,
// same command, always.
func (r Request) Command() string {
	return command.BuildListCommand(r.Term, r.PathGlob)
}

// Outcome is the classified result of running the search on one host. It is
// created once per host per run and never mutated; transfer results live in
// a separate structure keyed by host label.
type Outcome struct {
	Host       config.Host
	Status     Status
	ExitCode   int
	Paths      []string
	Diagnostic string
}

// Run executes the search command over an established connection and
// classifies the exit status. Failures never escape as errors: every call
// produces exactly one Outcome.
func Run(ctx context.Context, conn connector.Connector, host config.Host, req Request) Outcome {
	res, err := conn.Execute(ctx, req.Command())
	if err != nil {
		return Outcome{
			Host:       host,
			Status:     StatusRemoteError,
			ExitCode:   -1,
			Diagnostic: fmt.Sprintf("command execution failed: %v", err),
		}
	}

	switch res.ExitCode {
	case exitMatched:
		return Outcome{
			Host:       host,
			Status:     StatusMatched,
			ExitCode:   res.ExitCode,
			Paths:      parsePaths(res.Stdout),
			Diagnostic: strings.TrimSpace(res.Stderr),
		}
	case exitNoMatch:
		// Stray output on this path is ignored; no match means no paths.
		return Outcome{
			Host:       host,
			Status:     StatusNoMatch,
			ExitCode:   res.ExitCode,
			Diagnostic: strings.TrimSpace(res.Stderr),
		}
	case exitRemoteError:
		return Outcome{
			Host:       host,
			Status:     StatusRemoteError,
			ExitCode:   res.ExitCode,
			Diagnostic: strings.TrimSpace(res.Stderr),
		}
	default:
		return Outcome{
			Host:       host,
			Status:     StatusRemoteError,
			ExitCode:   res.ExitCode,
			Diagnostic: fmt.Sprintf("unrecognized exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)),
		}
	}
}

// ConnectionFailure builds the outcome for a host whose session could not
// be established. The runner is never invoked for such hosts.
func ConnectionFailure(host config.Host, err error) Outcome {
	return Outcome{
		Host:       host,
		Status:     StatusConnectionFailure,
		ExitCode:   connectExitCode,
		Diagnostic: fmt.Sprintf("SSH/network error: %v", err),
	}
}

// parsePaths extracts matched file paths, one per line, trimming
// whitespace and discarding blanks.
func parsePaths(stdout string) []string {
	var paths []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths
}
