// Package output provides formatted output for fan-out runs.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/eugenetaranov/fleetgrep/internal/fetch"
	"github.com/eugenetaranov/fleetgrep/internal/search"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Summary holds aggregate run counts for the recap.
type Summary interface {
	GetHosts() int
	GetMatched() int
	GetNoMatch() int
	GetErrored() int
	GetDownloaded() int
}

// Output handles formatted output. Callers must serialize access; the
// scheduler's collector goroutine is the single writer during a run.
type Output struct {
	w        io.Writer
	useColor bool
	debug    bool
}

// New creates a new output handler.
func New(w io.Writer) *Output {
	return &Output{
		w:        w,
		useColor: true,
	}
}

// SetColor enables or disables color output.
func (o *Output) SetColor(enabled bool) {
	o.useColor = enabled
}

// SetDebug enables or disables debug output.
func (o *Output) SetDebug(enabled bool) {
	o.debug = enabled
}

// color returns the string wrapped in color codes if enabled.
func (o *Output) color(c, s string) string {
	if !o.useColor {
		return s
	}
	return c + s + colorReset
}

// RunStart prints the run banner.
func (o *Output) RunStart(hosts int, req search.Request) {
	o.printf("\n%s %q in %s across %d host(s)\n",
		o.color(colorBold, "SEARCH"), req.Term, req.PathGlob, hosts)
}

// HostResult prints one host's classified outcome. Hosts are printed in
// completion order, which is unspecified.
func (o *Output) HostResult(out search.Outcome) {
	var indicator, statusColor string

	switch out.Status {
	case search.StatusMatched:
		indicator = "✓"
		statusColor = colorGreen
	case search.StatusNoMatch:
		indicator = "○"
		statusColor = colorCyan
	case search.StatusRemoteError:
		indicator = "✗"
		statusColor = colorYellow
	case search.StatusConnectionFailure:
		indicator = "✗"
		statusColor = colorRed
	default:
		indicator = "?"
		statusColor = colorGray
	}

	o.printf("  %s %s %s\n",
		o.color(statusColor, indicator),
		out.Host.Label,
		o.color(statusColor, out.Status.String()))

	for _, p := range out.Paths {
		o.printf("      %s\n", p)
	}

	if out.Status == search.StatusRemoteError || out.Status == search.StatusConnectionFailure {
		if out.Diagnostic != "" {
			o.printf("      %s %s\n", o.color(colorGray, "→"), out.Diagnostic)
		}
	} else if o.debug && out.Diagnostic != "" {
		for _, line := range strings.Split(out.Diagnostic, "\n") {
			o.printf("      %s %s\n", o.color(colorGray, "stderr:"), line)
		}
	}
}

// Transfers prints the per-file retrieval results for one host.
func (o *Output) Transfers(results []fetch.Result) {
	for _, r := range results {
		if r.OK {
			o.printf("      %s %s -> %s\n", o.color(colorGreen, "↓"), r.RemotePath, r.LocalPath)
		} else {
			o.printf("      %s %s: %s\n", o.color(colorRed, "↓"), r.RemotePath, r.Diagnostic)
		}
	}
}

// Recap prints the final aggregate summary.
func (o *Output) Recap(s Summary, download bool) {
	o.printf("\n%s ", o.color(colorBold, "RECAP"))

	hosts := fmt.Sprintf("hosts=%d", s.GetHosts())
	matched := o.color(colorGreen, fmt.Sprintf("matched=%d", s.GetMatched()))
	noMatch := o.color(colorCyan, fmt.Sprintf("nomatch=%d", s.GetNoMatch()))
	errored := o.color(colorRed, fmt.Sprintf("errors=%d", s.GetErrored()))

	o.printf("%s %s %s %s", hosts, matched, noMatch, errored)
	if download {
		o.printf(" %s", o.color(colorGreen, fmt.Sprintf("downloaded=%d", s.GetDownloaded())))
	}
	o.printf("\n")
}

// Info prints an informational message.
func (o *Output) Info(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorBlue, "INFO"), fmt.Sprintf(format, args...))
}

// Warn prints a warning message.
func (o *Output) Warn(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorYellow, "WARN"), fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (o *Output) Error(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorRed, "ERROR"), fmt.Sprintf(format, args...))
}

// Debug prints a debug message (only in debug mode).
func (o *Output) Debug(format string, args ...any) {
	if o.debug {
		o.printf("%s %s\n", o.color(colorGray, "DEBUG"), fmt.Sprintf(format, args...))
	}
}

func (o *Output) printf(format string, args ...any) {
	fmt.Fprintf(o.w, format, args...)
}
