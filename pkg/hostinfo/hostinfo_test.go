package hostinfo

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/eugenetaranov/fleetgrep/internal/connector/local"
)

func TestGatherLocal(t *testing.T) {
	info, err := Gather(context.Background(), local.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	switch runtime.GOOS {
	case "linux":
		if info.OS != "Linux" {
			t.Errorf("OS = %q, want Linux", info.OS)
		}
	case "darwin":
		if info.OS != "Darwin" {
			t.Errorf("OS = %q, want Darwin", info.OS)
		}
	}

	if strings.TrimSpace(info.Hostname) == "" {
		t.Error("expected a hostname")
	}
	if strings.TrimSpace(info.Arch) == "" {
		t.Error("expected a machine architecture")
	}
}
