// Package main is the entrypoint for the fleetgrep CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/eugenetaranov/fleetgrep/internal/config"
	"github.com/eugenetaranov/fleetgrep/internal/connector/sshconn"
	"github.com/eugenetaranov/fleetgrep/internal/output"
	"github.com/eugenetaranov/fleetgrep/internal/scheduler"
	"github.com/eugenetaranov/fleetgrep/internal/search"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	debug   bool
	noColor bool
)

// Flags shared by run and check
var (
	configPath    string
	parallel      int
	timeoutSec    int
	strictHostKey bool
	knownHosts    string
)

// Run-specific flags
var (
	searchTerm string
	pathGlob   string
	download   bool
	destRoot   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fleetgrep",
	Short: "Fleetgrep - search files across many hosts over SSH",
	Long: `Fleetgrep runs a literal, case-insensitive filename search across a
fleet of hosts in parallel and can download the matching files, mirroring
each host's remote paths under a local per-host directory.

Hosts are described in a JSON or YAML inventory (label, address, username,
password[, port, transport]). Password auth only; host key verification is
an explicit choice (--strict-host-key) rather than a hidden default.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output (remote stderr, diagnostics)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(checkCmd)
}

// runCmd executes the fan-out search
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the search across all hosts",
	Long: `Run the search on every host in the inventory, in parallel, and
optionally download the matching files.

Examples:
  fleetgrep run -c hosts.json -s 'Retorno:99' -p '/var/opt/aat/trazas/ma/*'
  fleetgrep run -c hosts.yaml -s error -p '/var/log/app/*' --download --dest downloads`,
	RunE: runSearch,
}

func init() {
	addConnectionFlags(runCmd)
	runCmd.Flags().StringVarP(&searchTerm, "search", "s", "", "Literal search string (required)")
	runCmd.Flags().StringVarP(&pathGlob, "path", "p", "", "Remote path or glob pattern, expanded on the remote shell (required)")
	runCmd.Flags().BoolVar(&download, "download", false, "Download matching files")
	runCmd.Flags().StringVar(&destRoot, "dest", "downloads", "Local destination root for downloads")
	_ = runCmd.MarkFlagRequired("config")
	_ = runCmd.MarkFlagRequired("search")
	_ = runCmd.MarkFlagRequired("path")
}

// checkCmd probes connectivity to all hosts
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity to all hosts",
	Long:  `Connect to every host in the inventory and report reachability and basic system information.`,
	RunE:  runCheck,
}

func init() {
	addConnectionFlags(checkCmd)
	_ = checkCmd.MarkFlagRequired("config")
}

// addConnectionFlags registers the flags shared by run and check.
func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to host inventory (JSON or YAML)")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "Number of parallel sessions")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 120, "Per-host timeout in seconds (connect, command, each file copy)")
	cmd.Flags().BoolVar(&strictHostKey, "strict-host-key", false, "Verify host keys against the known_hosts file (default: accept any host key)")
	cmd.Flags().StringVar(&knownHosts, "known-hosts", defaultKnownHosts(), "Path to known_hosts file for --strict-host-key")
}

func defaultKnownHosts() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "known_hosts")
}

// hostKeyPolicy resolves the host key verification strategy from flags. The
// accept-all relaxation is deliberate and visible here, not buried in the
// SSH layer.
func hostKeyPolicy() (ssh.HostKeyCallback, error) {
	if strictHostKey {
		return sshconn.KnownHosts(knownHosts)
	}
	return sshconn.AcceptAllHostKeys(), nil
}

// newScheduler builds a scheduler from the shared flags.
func newScheduler() (*scheduler.Scheduler, error) {
	hostKey, err := hostKeyPolicy()
	if err != nil {
		return nil, err
	}

	s := scheduler.New()
	s.Parallel = parallel
	s.Timeout = time.Duration(timeoutSec) * time.Second
	s.HostKey = hostKey
	s.Output.SetColor(!noColor)
	s.Output.SetDebug(debug)
	return s, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

func runSearch(cmd *cobra.Command, args []string) error {
	hosts, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	if parallel < 1 {
		return fmt.Errorf("--parallel must be >= 1")
	}

	sched, err := newScheduler()
	if err != nil {
		return err
	}
	sched.Download = download
	sched.DestRoot = destRoot

	ctx, cancel := signalContext()
	defer cancel()

	report, err := sched.Run(ctx, hosts, search.Request{Term: searchTerm, PathGlob: pathGlob})
	if err != nil {
		return err
	}

	// Connection failures and remote errors flip the exit code; hosts
	// with zero matches do not.
	if report.Failed() {
		os.Exit(1)
	}

	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	hosts, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	sched, err := newScheduler()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results := sched.Check(ctx, hosts)

	var unreachable int
	for _, r := range results {
		if r.Err != nil {
			unreachable++
		}
	}
	if unreachable > 0 {
		return fmt.Errorf("%d of %d host(s) unreachable", unreachable, len(results))
	}

	return nil
}

// validateCmd validates inventory files without connecting anywhere
var validateCmd = &cobra.Command{
	Use:   "validate <hosts.json> [hosts2.yaml ...]",
	Short: "Validate one or more inventory files",
	Long: `Parse and validate host inventories without executing anything.

This checks for:
  - Valid JSON/YAML syntax
  - Required fields per transport (address, username, password for ssh)
  - Valid transport and port values`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateConfigs,
}

func validateConfigs(cmd *cobra.Command, args []string) error {
	out := output.New(os.Stdout)
	out.SetColor(!noColor)
	out.SetDebug(debug)

	var hasErrors bool
	for _, path := range args {
		hosts, err := config.LoadFile(path)
		if err != nil {
			fmt.Printf("FAIL: %s - %v\n", path, err)
			hasErrors = true
			continue
		}
		fmt.Printf("OK: %s (%d host(s))\n", path, len(hosts))
		for _, h := range hosts {
			out.Debug("%s -> %s@%s (%s)", h.Label, h.User, h.Addr(), h.Transport)
		}
	}

	if hasErrors {
		return fmt.Errorf("one or more inventory files failed validation")
	}

	return nil
}
