// Package fetch retrieves matched files from a host, one file at a time.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eugenetaranov/fleetgrep/internal/connector"
)

// Result records one attempted file transfer. Results are independent of
// each other: there are no all-or-nothing semantics for a host's batch.
type Result struct {
	Label      string
	RemotePath string
	LocalPath  string
	OK         bool
	Diagnostic string
}

// LocalPath returns the deterministic local target for a remote path:
// destRoot/label/<remote path with the leading separator stripped>. The
// per-host namespace keeps identical remote paths on different hosts from
// colliding.
func LocalPath(destRoot, label, remotePath string) string {
	return filepath.Join(destRoot, label, strings.TrimLeft(remotePath, "/"))
}

// Fetch copies each remote path to its local target over an established
// connection, each copy bounded by timeout (0 means unbounded). Every
// failure - vanished file, permission denied, transport fault, local
// directory trouble - is recorded in that file's Result and never aborts
// the rest of the batch or escapes this boundary.
func Fetch(ctx context.Context, conn connector.Connector, label string, paths []string, destRoot string, timeout time.Duration) []Result {
	results := make([]Result, 0, len(paths))

	for _, rpath := range paths {
		lpath := LocalPath(destRoot, label, rpath)

		fileCtx := ctx
		cancel := func() {}
		if timeout > 0 {
			fileCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		results = append(results, fetchOne(fileCtx, conn, label, rpath, lpath))
		cancel()
	}

	return results
}

// fetchOne transfers a single file, converting any failure into a non-ok
// Result.
func fetchOne(ctx context.Context, conn connector.Connector, label, rpath, lpath string) Result {
	r := Result{
		Label:      label,
		RemotePath: rpath,
		LocalPath:  lpath,
	}

	if err := os.MkdirAll(filepath.Dir(lpath), 0o755); err != nil {
		r.Diagnostic = fmt.Sprintf("failed to create local directory: %v", err)
		return r
	}

	f, err := os.Create(lpath)
	if err != nil {
		r.Diagnostic = fmt.Sprintf("failed to create local file: %v", err)
		return r
	}
	defer f.Close()

	if err := conn.Download(ctx, rpath, f); err != nil {
		r.Diagnostic = fmt.Sprintf("download failed: %v", err)
		return r
	}

	r.OK = true
	return r
}
