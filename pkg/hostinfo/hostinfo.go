// Package hostinfo gathers basic system information from target hosts.
package hostinfo

import (
	"context"
	"strings"

	"github.com/eugenetaranov/fleetgrep/internal/connector"
)

// Info holds what could be learned about one host. Fields are empty when
// the corresponding probe failed; a reachable host with a minimal shell
// still yields a useful Info.
type Info struct {
	Hostname string
	OS       string
	Arch     string
}

// Gather probes the target over an open connection. Individual probe
// failures are tolerated; Gather only fails when the connection itself is
// unusable.
func Gather(ctx context.Context, conn connector.Connector) (Info, error) {
	var info Info

	res, err := conn.Execute(ctx, "uname -s")
	if err != nil {
		return info, err
	}
	if res.ExitCode == 0 {
		info.OS = strings.TrimSpace(res.Stdout)
	}

	if res, err := conn.Execute(ctx, "uname -m"); err == nil && res.ExitCode == 0 {
		info.Arch = strings.TrimSpace(res.Stdout)
	}

	if res, err := conn.Execute(ctx, "hostname"); err == nil && res.ExitCode == 0 {
		info.Hostname = strings.TrimSpace(res.Stdout)
	}

	return info, nil
}
