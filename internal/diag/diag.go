// Package diag is the diagnostic sink described in spec.md §6/§7: the
// generator, semantic analysis, and driver all report through it rather
// than printing directly, so the CLI can decide how (and whether) to
// surface a message.
package diag

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/sindarin-lang/snc/internal/token"
)

// Severity classifies a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "error"
	}
}

// Diagnostic is one reported message, located at a token.
type Diagnostic struct {
	Severity Severity
	Token    token.Token
	Message  string
}

// Sink collects diagnostics and prints them, plus phase timing and the
// final colored success/failure summary (spec.md §6, §7).
type Sink struct {
	out, errOut io.Writer
	log         *zap.SugaredLogger
	diags       []Diagnostic
	errorCount  int
	warnCount   int

	phaseName  string
	phaseStart time.Time

	noColor bool
}

// New creates a sink writing diagnostics and the failure summary to
// stderr, the success summary to stdout, and a structured internal
// trace log via log (nil uses a no-op logger).
func New(log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{out: os.Stdout, errOut: os.Stderr, log: log.Sugar()}
}

// SetOutputs overrides where user-facing text goes (tests use this to
// capture output instead of writing to the real stderr/stdout).
func (s *Sink) SetOutputs(out, errOut io.Writer) {
	s.out, s.errOut = out, errOut
}

// SetNoColor disables ANSI coloring, e.g. for non-tty output or tests
// asserting on exact message text.
func (s *Sink) SetNoColor(v bool) { s.noColor = v }

func (s *Sink) report(sev Severity, t token.Token, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.diags = append(s.diags, Diagnostic{Severity: sev, Token: t, Message: msg})
	switch sev {
	case Error:
		s.errorCount++
	case Warning:
		s.warnCount++
	}
	loc := fmt.Sprintf("%s:%d:%d", t.File, t.Line, t.Column())
	label := sev.String()
	var colored string
	if s.noColor {
		colored = label
	} else {
		switch sev {
		case Error:
			colored = color.New(color.FgRed, color.Bold).Sprint(label)
		case Warning:
			colored = color.New(color.FgYellow, color.Bold).Sprint(label)
		default:
			colored = color.New(color.FgCyan).Sprint(label)
		}
	}
	fmt.Fprintf(s.errOut, "%s: %s: %s\n", loc, colored, msg)
}

// Errorf / Warnf / Notef attach a message to a token (spec.md §6
// "diagnostic_{error,warning,note}_at").
func (s *Sink) Errorf(t token.Token, format string, args ...interface{}) {
	s.report(Error, t, format, args...)
}
func (s *Sink) Warnf(t token.Token, format string, args ...interface{}) {
	s.report(Warning, t, format, args...)
}
func (s *Sink) Notef(t token.Token, format string, args ...interface{}) {
	s.report(Note, t, format, args...)
}

// ErrorCount / WarningCount / HadError / Reset implement the remaining
// diagnostic sink surface from spec.md §6.
func (s *Sink) ErrorCount() int   { return s.errorCount }
func (s *Sink) WarningCount() int { return s.warnCount }
func (s *Sink) HadError() bool    { return s.errorCount > 0 }
func (s *Sink) Reset() {
	s.diags = nil
	s.errorCount = 0
	s.warnCount = 0
}

// Diagnostics returns every message reported so far, in report order.
func (s *Sink) Diagnostics() []Diagnostic { return append([]Diagnostic(nil), s.diags...) }

// PhaseStart / PhaseDone / PhaseFailed bracket a compile phase (lexing,
// parsing, semantic analysis, codegen, backend) with internal trace
// timing — this is compiler-developer-facing, not the colored
// compile_success/compile_failed summary below.
func (s *Sink) PhaseStart(name string) {
	s.phaseName = name
	s.phaseStart = time.Now()
	s.log.Debugw("phase start", "phase", name)
}

func (s *Sink) PhaseDone() {
	s.log.Debugw("phase done", "phase", s.phaseName, "elapsed", time.Since(s.phaseStart))
}

func (s *Sink) PhaseFailed(err error) {
	s.log.Debugw("phase failed", "phase", s.phaseName, "elapsed", time.Since(s.phaseStart), "error", err)
}

// CompileSuccess prints a green summary: output path, size, elapsed time.
func (s *Sink) CompileSuccess(path string, size int64, elapsed time.Duration) {
	msg := fmt.Sprintf("compiled %s (%d bytes) in %s", path, size, elapsed.Round(time.Millisecond))
	if s.noColor {
		fmt.Fprintln(s.out, msg)
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintln(s.out, msg)
}

// CompileFailed prints a red summary with the error count.
func (s *Sink) CompileFailed() {
	msg := fmt.Sprintf("compilation failed: %d error(s), %d warning(s)", s.errorCount, s.warnCount)
	if s.noColor {
		fmt.Fprintln(s.errOut, msg)
		return
	}
	color.New(color.FgRed, color.Bold).Fprintln(s.errOut, msg)
}
