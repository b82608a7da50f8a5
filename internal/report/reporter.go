package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"xray-ip-diag/internal/domain"
)

const (
	ruleWidth = 50
	title     = "XRAY IP DIAGNOSTIC TOOL"
)

// LikelyCauses are listed in the summary of a failed run.
var LikelyCauses = []string{
	"Invalid VLESS link",
	"Server is unreachable or overloaded",
	"VLESS configuration is not compatible with xray",
	"The IP lookup service is not reachable through the proxy",
}

type Type uint8

const (
	Success Type = iota
	Failure
	Warning
	Info
	Detail
	Heading
	Rule
)

type style struct {
	symbol string
	color  *color.Color
}

func newStyles(noColor bool) map[Type]style {
	styles := map[Type]style{
		Success: {symbol: "[+]", color: color.New(color.Bold, color.FgGreen)},
		Failure: {symbol: "[-]", color: color.New(color.Bold, color.FgRed)},
		Warning: {symbol: "[!]", color: color.New(color.Bold, color.FgYellow)},
		Info:    {symbol: "[*]", color: color.New(color.FgCyan)},
		Detail:  {symbol: "   ", color: color.New(color.Faint)},
		Heading: {symbol: "", color: color.New(color.Bold, color.FgYellow)},
		Rule:    {symbol: "", color: color.New(color.FgBlue)},
	}
	if noColor {
		for _, s := range styles {
			s.color.DisableColor()
		}
	}
	return styles
}

type Options struct {
	Writer  io.Writer
	NoColor bool
}

// Reporter renders diagnostic progress as colored, line-oriented text.
// It holds no run state.
type Reporter struct {
	mu     sync.Mutex
	out    io.Writer
	styles map[Type]style
}

func NewReporter(opts Options) *Reporter {
	out := opts.Writer
	if out == nil {
		out = color.Output
	}
	return &Reporter{
		out:    out,
		styles: newStyles(opts.NoColor),
	}
}

// Printf writes one line of the given type.
func (r *Reporter) Printf(t Type, format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.styles[t]
	line := fmt.Sprintf(format, args...)
	if s.symbol != "" {
		line = s.symbol + " " + line
	}
	s.color.Fprintln(r.out, line)
}

func (r *Reporter) Blank() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out)
}

func (r *Reporter) Rule() {
	r.Printf(Rule, "%s", strings.Repeat("━", ruleWidth))
}

func (r *Reporter) Banner(version string) {
	r.Blank()
	r.Rule()
	r.Printf(Info, "%s %s", title, version)
	r.Rule()
	r.Blank()
}

// Step prints a numbered step header.
func (r *Reporter) Step(n int, format string, args ...interface{}) {
	r.Blank()
	r.Printf(Heading, "%d. %s", n, fmt.Sprintf(format, args...))
}

func (r *Reporter) Success(format string, args ...interface{}) {
	r.Printf(Success, format, args...)
}

func (r *Reporter) Failure(format string, args ...interface{}) {
	r.Printf(Failure, format, args...)
}

func (r *Reporter) Warning(format string, args ...interface{}) {
	r.Printf(Warning, format, args...)
}

func (r *Reporter) Info(format string, args ...interface{}) {
	r.Printf(Info, format, args...)
}

func (r *Reporter) Detail(format string, args ...interface{}) {
	r.Printf(Detail, format, args...)
}

// Geo prints the location block of a successful probe.
func (r *Reporter) Geo(result *domain.ProbeResult) {
	r.Blank()
	r.Success("SUCCESS via %s", result.Endpoint.Name)
	r.Detail("IP:       %s", result.Geo.IP)
	r.Detail("Location: %s, %s", result.Geo.City, result.Geo.Country)
	r.Detail("ISP:      %s", result.Geo.ISP)
	r.Detail("Timezone: %s", result.Geo.Timezone)

	if !result.Proxied {
		r.Blank()
		r.Warning("This was a direct request, not routed through the proxy")
		r.Detail("The IP above is your own address, not the server's")
	}
}

// ProbeStats prints how many requests each endpoint received and how long
// they took in total.
func (r *Reporter) ProbeStats(stats []domain.EndpointStats) {
	if len(stats) == 0 {
		return
	}
	r.Blank()
	r.Info("Probe attempts:")
	for _, s := range stats {
		noun := "attempts"
		if s.Attempts == 1 {
			noun = "attempt"
		}
		r.Detail("%s: %d %s, %d succeeded, %s", s.Endpoint, s.Attempts, noun, s.Succeeded,
			s.Duration.Round(time.Millisecond))
	}
}

// Summary closes the report with the verdict and, on failure, the likely causes.
func (r *Reporter) Summary(success bool) {
	r.Blank()
	r.Rule()
	if success {
		r.Success("DIAGNOSTIC PASSED")
	} else {
		r.Failure("DIAGNOSTIC FOUND PROBLEMS")
		r.Blank()
		r.Warning("Likely causes:")
		for i, cause := range LikelyCauses {
			r.Detail("%d. %s", i+1, cause)
		}
	}
	r.Rule()
	r.Blank()
}

// Aborted closes the report of a run that stopped before probing.
func (r *Reporter) Aborted(step string) {
	r.Blank()
	r.Rule()
	r.Failure("DIAGNOSTIC ABORTED at step: %s", step)
	r.Rule()
	r.Blank()
}

// Interrupted is printed when the user cancels the run.
func (r *Reporter) Interrupted() {
	r.Blank()
	r.Success("Cancelled by user")
}
