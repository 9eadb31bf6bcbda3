package search

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/eugenetaranov/fleetgrep/internal/config"
	"github.com/eugenetaranov/fleetgrep/internal/connector"
	"github.com/eugenetaranov/fleetgrep/internal/connector/local"
)

// fakeConnector returns a canned result from Execute.
type fakeConnector struct {
	result *connector.Result
	err    error
	calls  int
}

func (f *fakeConnector) Connect(ctx context.Context) error { return nil }

func (f *fakeConnector) Execute(ctx context.Context, cmd string) (*connector.Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeConnector) Download(ctx context.Context, src string, dst io.Writer) error {
	return nil
}

func (f *fakeConnector) Close() error   { return nil }
func (f *fakeConnector) String() string { return "fake" }

var testHost = config.Host{Label: "h1", Address: "10.0.0.1", User: "u", Password: "p", Port: 22, Transport: config.TransportSSH}

func TestRunClassification(t *testing.T) {
	req := Request{Term: "needle", PathGlob: "/tmp/*"}

	tests := []struct {
		name       string
		result     *connector.Result
		err        error
		wantStatus Status
		wantPaths  []string
	}{
		{
			name:       "exit 0 with matches",
			result:     &connector.Result{Stdout: "/a/b\n/a/c\n", ExitCode: 0},
			wantStatus: StatusMatched,
			wantPaths:  []string{"/a/b", "/a/c"},
		},
		{
			name:       "exit 0 with messy output",
			result:     &connector.Result{Stdout: "  /a/b  \n\n\n /a/c\n", ExitCode: 0},
			wantStatus: StatusMatched,
			wantPaths:  []string{"/a/b", "/a/c"},
		},
		{
			name:       "exit 0 with no output stays matched",
			result:     &connector.Result{Stdout: "", ExitCode: 0},
			wantStatus: StatusMatched,
			wantPaths:  nil,
		},
		{
			name:       "exit 1 ignores stray output",
			result:     &connector.Result{Stdout: "noise\n", ExitCode: 1},
			wantStatus: StatusNoMatch,
			wantPaths:  nil,
		},
		{
			name:       "exit 2 is a remote error regardless of output",
			result:     &connector.Result{Stdout: "/a/b\n", Stderr: "grep: bad pattern", ExitCode: 2},
			wantStatus: StatusRemoteError,
			wantPaths:  nil,
		},
		{
			name:       "unrecognized exit code",
			result:     &connector.Result{ExitCode: 7},
			wantStatus: StatusRemoteError,
			wantPaths:  nil,
		},
		{
			name:       "execution failure",
			err:        errors.New("session torn down"),
			wantStatus: StatusRemoteError,
			wantPaths:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConnector{result: tt.result, err: tt.err}
			out := Run(context.Background(), conn, testHost, req)

			if out.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v", out.Status, tt.wantStatus)
			}
			if !reflect.DeepEqual(out.Paths, tt.wantPaths) {
				t.Errorf("paths = %v, want %v", out.Paths, tt.wantPaths)
			}
			if out.Host.Label != "h1" {
				t.Errorf("host label = %q, want h1", out.Host.Label)
			}
		})
	}
}

func TestRunSurfacesRawExitCode(t *testing.T) {
	conn := &fakeConnector{result: &connector.Result{ExitCode: 7}}
	out := Run(context.Background(), conn, testHost, Request{Term: "x", PathGlob: "/y"})

	if out.ExitCode != 7 {
		t.Errorf("exit code = %d, want 7", out.ExitCode)
	}
	if out.Diagnostic == "" {
		t.Error("expected a diagnostic for an unrecognized exit code")
	}
}

func TestConnectionFailure(t *testing.T) {
	out := ConnectionFailure(testHost, errors.New("dial tcp: connection refused"))

	if out.Status != StatusConnectionFailure {
		t.Errorf("status = %v, want connection failure", out.Status)
	}
	// The sentinel must be distinct from every real grep exit code.
	if out.ExitCode == 0 || out.ExitCode == 1 || out.ExitCode == 2 {
		t.Errorf("sentinel exit code %d collides with the grep taxonomy", out.ExitCode)
	}
	if len(out.Paths) != 0 {
		t.Errorf("paths = %v, want none", out.Paths)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusMatched, "matched"},
		{StatusNoMatch, "no match"},
		{StatusRemoteError, "remote error"},
		{StatusConnectionFailure, "connection failure"},
		{Status(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

// TestRunAgainstLocalGrep exercises the runner end to end against the real
// grep on this machine through the local connector.
func TestRunAgainstLocalGrep(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hit1.log"), "all good\nRetorno:99 seen here\n")
	writeFile(t, filepath.Join(dir, "hit2.log"), "retorno:99 lowercase\n")
	writeFile(t, filepath.Join(dir, "miss.log"), "nothing relevant\n")

	conn := local.New()
	host := config.Host{Label: "local", Transport: config.TransportLocal}

	t.Run("matches", func(t *testing.T) {
		out := Run(context.Background(), conn, host, Request{Term: "Retorno:99", PathGlob: filepath.Join(dir, "*.log")})
		if out.Status != StatusMatched {
			t.Fatalf("status = %v (%s), want matched", out.Status, out.Diagnostic)
		}
		if len(out.Paths) != 2 {
			t.Errorf("paths = %v, want the two hit files", out.Paths)
		}
	})

	t.Run("no match", func(t *testing.T) {
		out := Run(context.Background(), conn, host, Request{Term: "absent-term", PathGlob: filepath.Join(dir, "*.log")})
		if out.Status != StatusNoMatch {
			t.Fatalf("status = %v (%s), want no match", out.Status, out.Diagnostic)
		}
	})

	t.Run("bad path is a remote error", func(t *testing.T) {
		out := Run(context.Background(), conn, host, Request{Term: "x", PathGlob: filepath.Join(dir, "does-not-exist", "*")})
		if out.Status != StatusRemoteError {
			t.Fatalf("status = %v, want remote error", out.Status)
		}
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
