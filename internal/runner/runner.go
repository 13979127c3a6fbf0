// Package runner executes a frozen application and judges the result.
//
// The run step is the whole point of the harness: a build that produced
// an executable proves nothing until the executable actually starts,
// finds its bundled libraries, and exits zero. The runner launches the
// artifact from its own output directory, bounds it with a timeout,
// captures everything it prints, and collects the side-channel log
// files GUI samples write when they have no console to print to.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mmr-tortoise/freezeci/internal/freezer"
	"github.com/mmr-tortoise/freezeci/internal/model"
)

// Options configures a single run of a frozen executable.
type Options struct {
	// Timeout bounds the run. Zero means no timeout, which is only
	// sensible for interactive debugging.
	Timeout time.Duration

	// Display, when non-empty, is exported as DISPLAY so GUI samples
	// find the virtual X server.
	Display string

	// Args are extra arguments passed to the executable. Most samples
	// take none.
	Args []string
}

// Result is the outcome of running a frozen executable.
type Result struct {
	// Command is the invocation, for log output.
	Command string

	// Output is the combined stdout and stderr.
	Output string

	// ExitCode is the executable's exit code. Zero on success.
	ExitCode int

	// Duration is how long the run took.
	Duration time.Duration

	// LogFiles maps collected log file names to their contents. GUI
	// samples write <app>.log and <app>.err next to the executable
	// because a windowed process has nowhere else to report.
	LogFiles map[string]string
}

// Run executes the frozen application from its own directory.
//
// The working directory is the executable's directory so relative
// resource lookups inside the frozen app resolve the same way they
// would for an end user double-clicking the artifact.
//
// A non-zero exit or a timeout returns a model.CLIError with
// ExitRunFailed. The Result is returned alongside the error so callers
// can log the output of failed runs.
func Run(ctx context.Context, exe *freezer.Executable, appName string, opts Options) (*Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// #nosec G204 — the path was located by the build step, not user input
	cmd := exec.CommandContext(ctx, exe.Path, opts.Args...)
	cmd.Dir = exe.Dir

	cmd.Env = os.Environ()
	if opts.Display != "" {
		cmd.Env = append(cmd.Env, "DISPLAY="+opts.Display)
	}

	start := time.Now()
	output, err := cmd.CombinedOutput()

	result := &Result{
		Command:  exe.Path + argSuffix(opts.Args),
		Output:   string(output),
		Duration: time.Since(start),
		LogFiles: CollectLogs(exe.Dir, appName),
	}

	if err == nil {
		return result, nil
	}

	// The deadline firing kills the child, which then reports as a
	// generic exit error; check the context first so timeouts are
	// named as timeouts.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, model.WrapCLIError(
			model.ExitRunFailed,
			fmt.Sprintf("frozen executable %q timed out after %s", appName, opts.Timeout),
			err,
		)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, model.WrapCLIError(
			model.ExitRunFailed,
			fmt.Sprintf("frozen executable %q exited with code %d", appName, result.ExitCode),
			err,
		)
	}

	result.ExitCode = -1
	return result, model.WrapCLIError(
		model.ExitRunFailed,
		fmt.Sprintf("failed to start frozen executable %q", appName),
		err,
	)
}

// CollectLogs gathers the side-channel log files a sample may have
// written next to its executable: <app>.log, <app>.err, and any
// <app>*.log variants. Returns an empty map when there are none.
//
// Unreadable files are skipped silently. The logs are diagnostic
// garnish for the CI output; their absence never fails a run.
func CollectLogs(dir, appName string) map[string]string {
	logs := make(map[string]string)

	candidates := []string{filepath.Join(dir, appName+".err")}
	matches, _ := filepath.Glob(filepath.Join(dir, appName+"*.log"))
	candidates = append(candidates, matches...)
	sort.Strings(candidates)

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		logs[filepath.Base(path)] = string(data)
	}

	return logs
}

func argSuffix(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return " " + strings.Join(args, " ")
}
