// Package cilog writes collapsible log groups and error annotations.
//
// When running under GitHub Actions (CI=true in the environment) the
// package emits the workflow commands ::group::, ::endgroup:: and
// ::error:: so each pipeline step collapses in the web log viewer. On a
// developer machine the same calls fall back to plain section headers,
// keeping local output readable without any special casing in callers.
package cilog

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Logger writes step output to a single destination, CI-aware.
type Logger struct {
	out io.Writer
	ci  bool
}

// New creates a Logger writing to stdout. CI mode is taken from the
// CI environment variable, which GitHub Actions sets to "true".
func New() *Logger {
	return NewWithWriter(os.Stdout, os.Getenv("CI") == "true")
}

// NewWithWriter creates a Logger with an explicit destination and CI
// flag. Used by tests.
func NewWithWriter(out io.Writer, ci bool) *Logger {
	return &Logger{out: out, ci: ci}
}

// Group opens a collapsible log group with the given title. Every Group
// must be paired with EndGroup; nesting is not supported by GitHub
// Actions and is not supported here.
func (l *Logger) Group(title string) {
	if l.ci {
		fmt.Fprintf(l.out, "::group::%s\n", sanitize(title))
		return
	}
	fmt.Fprintf(l.out, "=== %s ===\n", title)
}

// EndGroup closes the current log group.
func (l *Logger) EndGroup() {
	if l.ci {
		fmt.Fprintln(l.out, "::endgroup::")
		return
	}
	fmt.Fprintln(l.out)
}

// Error emits an error annotation. Under GitHub Actions this surfaces
// the message in the run summary and annotates the workflow file.
func (l *Logger) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if l.ci {
		fmt.Fprintf(l.out, "::error::%s\n", sanitize(msg))
		return
	}
	fmt.Fprintf(l.out, "ERROR: %s\n", msg)
}

// Notice emits an informational annotation, used for skip decisions so
// they remain visible in the run summary.
func (l *Logger) Notice(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if l.ci {
		fmt.Fprintf(l.out, "::notice::%s\n", sanitize(msg))
		return
	}
	fmt.Fprintf(l.out, "NOTICE: %s\n", msg)
}

// Printf writes plain output inside the current group.
func (l *Logger) Printf(format string, args ...any) {
	fmt.Fprintf(l.out, format, args...)
}

// sanitize keeps workflow command parameters on one line. Newlines in a
// ::group:: or ::error:: payload would terminate the command early and
// leak the rest as literal log text.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
