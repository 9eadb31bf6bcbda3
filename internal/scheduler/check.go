package scheduler

import (
	"context"
	"sync"

	"github.com/eugenetaranov/fleetgrep/internal/config"
	"github.com/eugenetaranov/fleetgrep/pkg/hostinfo"
)

// CheckResult reports whether one host is reachable and what it looks like.
type CheckResult struct {
	Host config.Host
	Info hostinfo.Info
	Err  error
}

// Check dials every host under the same bounded pool as Run and probes
// basic system information. Like Run, it never drops a host: each one
// yields exactly one CheckResult, reachable or not.
func (s *Scheduler) Check(ctx context.Context, hosts []config.Host) []CheckResult {
	workers := s.Parallel
	if workers < 1 {
		workers = 1
	}
	if workers > len(hosts) {
		workers = len(hosts)
	}

	jobs := make(chan config.Host)
	results := make(chan CheckResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range jobs {
				results <- s.checkHost(ctx, host)
			}
		}()
	}

	go func() {
		for _, host := range hosts {
			jobs <- host
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	collected := make([]CheckResult, 0, len(hosts))
	for r := range results {
		if r.Err != nil {
			s.Output.Error("%s: unreachable: %v", r.Host.Label, r.Err)
		} else {
			s.Output.Info("%s: %s %s (%s) via %s", r.Host.Label, r.Info.OS, r.Info.Arch, r.Info.Hostname, r.Host.Transport)
		}
		collected = append(collected, r)
	}

	return collected
}

func (s *Scheduler) checkHost(ctx context.Context, host config.Host) CheckResult {
	r := CheckResult{Host: host}

	conn, err := s.dial(ctx, host)
	if err != nil {
		r.Err = err
		return r
	}
	defer conn.Close()

	probeCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	r.Info, r.Err = hostinfo.Gather(probeCtx, conn)
	return r
}
