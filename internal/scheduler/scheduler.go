// Package scheduler fans the search out across all hosts under a bounded
// concurrency limit and aggregates per-host outcomes.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/eugenetaranov/fleetgrep/internal/config"
	"github.com/eugenetaranov/fleetgrep/internal/connector"
	"github.com/eugenetaranov/fleetgrep/internal/connector/docker"
	"github.com/eugenetaranov/fleetgrep/internal/connector/local"
	"github.com/eugenetaranov/fleetgrep/internal/connector/sshconn"
	"github.com/eugenetaranov/fleetgrep/internal/fetch"
	"github.com/eugenetaranov/fleetgrep/internal/output"
	"github.com/eugenetaranov/fleetgrep/internal/search"
)

// DialFunc opens an authenticated, connected session to one host.
type DialFunc func(ctx context.Context, host config.Host) (connector.Connector, error)

// Scheduler runs the search across all hosts on a fixed-size worker pool.
// Each worker owns exactly one session at a time; the only shared resource
// is the pool's slot count.
type Scheduler struct {
	// Output handles streaming display of results as they complete.
	Output *output.Output

	// Parallel is the worker pool size (at most Parallel sessions open
	// concurrently).
	Parallel int

	// Timeout bounds each blocking phase for a host: session
	// establishment, remote command execution, and each file copy.
	Timeout time.Duration

	// Download enables retrieval of matched files.
	Download bool

	// DestRoot is the local destination root for downloads.
	DestRoot string

	// HostKey is the host identity verification policy for SSH hosts.
	// It must be set explicitly; there is no implicit trust default.
	HostKey ssh.HostKeyCallback

	// Dial overrides session establishment (used by tests). When nil,
	// hosts are dialed according to their transport.
	Dial DialFunc
}

// New creates a scheduler with the default output writer.
func New() *Scheduler {
	return &Scheduler{
		Output:   output.New(os.Stdout),
		Parallel: 4,
		Timeout:  sshconn.DefaultTimeout,
	}
}

// Report holds everything a run produced. Outcomes and Transfers are in
// completion order, which carries no meaning.
type Report struct {
	Outcomes  []search.Outcome
	Transfers []fetch.Result
	Summary   Summary
}

// Failed reports whether the run should signal process-level failure: true
// iff at least one host ended in a remote error or a connection failure.
// Zero matches everywhere is a success.
func (r *Report) Failed() bool {
	return r.Summary.Errored > 0
}

// Summary holds aggregate counts derived from the full result set. It is
// computed by a commutative fold, so it never depends on completion order.
type Summary struct {
	Hosts      int
	Matched    int
	NoMatch    int
	Errored    int
	Downloaded int
}

// GetHosts implements output.Summary.
func (s Summary) GetHosts() int { return s.Hosts }

// GetMatched implements output.Summary.
func (s Summary) GetMatched() int { return s.Matched }

// GetNoMatch implements output.Summary.
func (s Summary) GetNoMatch() int { return s.NoMatch }

// GetErrored implements output.Summary.
func (s Summary) GetErrored() int { return s.Errored }

// GetDownloaded implements output.Summary.
func (s Summary) GetDownloaded() int { return s.Downloaded }

// Summarize derives aggregate counts from outcomes and transfers. A host
// counts as matched only when it has matched paths; a clean exit with zero
// paths counts with the no-match hosts, mirroring the original tool's
// accounting.
func Summarize(outcomes []search.Outcome, transfers []fetch.Result) Summary {
	var s Summary
	s.Hosts = len(outcomes)

	for _, o := range outcomes {
		switch o.Status {
		case search.StatusMatched:
			if len(o.Paths) > 0 {
				s.Matched++
			} else {
				s.NoMatch++
			}
		case search.StatusNoMatch:
			s.NoMatch++
		case search.StatusRemoteError, search.StatusConnectionFailure:
			s.Errored++
		}
	}

	for _, t := range transfers {
		if t.OK {
			s.Downloaded++
		}
	}

	return s
}

// event is one unit of completed work handed from a worker to the
// collector. Exactly one field is set.
type event struct {
	outcome   *search.Outcome
	transfers []fetch.Result
	warning   string
}

// Run dispatches the search across hosts and collects results. Every host
// submitted produces exactly one outcome, even when its session cannot be
// established. Run returns an error only for invalid arguments; per-host
// failures are data, never errors.
func (s *Scheduler) Run(ctx context.Context, hosts []config.Host, req search.Request) (*Report, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no hosts to search")
	}
	if s.Parallel < 1 {
		return nil, fmt.Errorf("parallelism must be >= 1, got %d", s.Parallel)
	}
	if s.Download && s.DestRoot == "" {
		return nil, fmt.Errorf("download enabled but no destination root set")
	}

	s.Output.RunStart(len(hosts), req)

	workers := s.Parallel
	if workers > len(hosts) {
		workers = len(hosts)
	}

	jobs := make(chan config.Host)
	events := make(chan event)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range jobs {
				s.runHost(ctx, host, req, events)
			}
		}()
	}

	go func() {
		for _, host := range hosts {
			jobs <- host
		}
		close(jobs)
		wg.Wait()
		close(events)
	}()

	// The collector is the single owner of the result slices and of the
	// output writer; workers hold no shared mutable state.
	report := &Report{}
	for ev := range events {
		switch {
		case ev.outcome != nil:
			report.Outcomes = append(report.Outcomes, *ev.outcome)
			s.Output.HostResult(*ev.outcome)
		case ev.transfers != nil:
			report.Transfers = append(report.Transfers, ev.transfers...)
			s.Output.Transfers(ev.transfers)
		case ev.warning != "":
			s.Output.Warn("%s", ev.warning)
		}
	}

	report.Summary = Summarize(report.Outcomes, report.Transfers)
	s.Output.Recap(report.Summary, s.Download)

	return report, nil
}

// runHost runs the full per-host state machine on one worker: dial, search,
// finalize the outcome, and only then attempt retrieval when it qualifies.
// A timeout on this host never cancels work on any other host.
func (s *Scheduler) runHost(ctx context.Context, host config.Host, req search.Request, events chan<- event) {
	conn, err := s.dial(ctx, host)
	if err != nil {
		out := search.ConnectionFailure(host, err)
		events <- event{outcome: &out}
		return
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	out := search.Run(searchCtx, conn, host, req)
	cancel()
	conn.Close()

	events <- event{outcome: &out}

	if !s.Download || out.Status != search.StatusMatched || len(out.Paths) == 0 {
		return
	}

	// Retrieval gets its own fresh session. If it cannot be established
	// the host simply produces zero transfer results; nothing propagates.
	conn, err = s.dial(ctx, host)
	if err != nil {
		events <- event{warning: fmt.Sprintf("%s: retrieval connect failed: %v", host.Label, err)}
		return
	}
	defer conn.Close()

	results := fetch.Fetch(ctx, conn, host.Label, out.Paths, s.DestRoot, s.Timeout)
	events <- event{transfers: results}
}

// dial opens and connects a connector for the host according to its
// transport, applying the per-host timeout to session establishment.
func (s *Scheduler) dial(ctx context.Context, host config.Host) (connector.Connector, error) {
	if s.Dial != nil {
		return s.Dial(ctx, host)
	}

	var conn connector.Connector
	switch host.Transport {
	case config.TransportSSH:
		conn = sshconn.New(host.Addr(), host.User, host.Password,
			sshconn.WithTimeout(s.Timeout),
			sshconn.WithHostKeyCallback(s.HostKey))
	case config.TransportLocal:
		conn = local.New()
	case config.TransportDocker:
		var opts []docker.Option
		if host.User != "" {
			opts = append(opts, docker.WithUser(host.User))
		}
		conn = docker.New(host.Address, opts...)
	default:
		return nil, fmt.Errorf("unknown transport: %s", host.Transport)
	}

	connectCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	if err := conn.Connect(connectCtx); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}
