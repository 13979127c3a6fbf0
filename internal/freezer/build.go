package freezer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/freezeci/internal/model"
	"github.com/mmr-tortoise/freezeci/internal/pyenv"
)

// BuildOptions tunes the packaging command invocation.
type BuildOptions struct {
	// Quiet passes --quiet to the setup script. The harness enables this
	// unless --verbose was given, because freeze output is long and CI log
	// groups collapse better without it.
	Quiet bool

	// Debug keeps the packaging tool's debug output and drops the -O
	// interpreter flag, for diagnosing broken freezes.
	Debug bool
}

// Result describes a completed (successful or not) build invocation.
type Result struct {
	// Command is the rendered command line, for log output.
	Command string

	// Output is the combined stdout/stderr of the build.
	Output string

	// ExitCode is the packaging command's exit code.
	ExitCode int
}

// Build runs the packaging action against the sample's setup script.
//
// The command is `<python> -O setup.py <action> [--quiet]`, executed in
// the sample directory — the layout every sample follows (setup.py next
// to the application script). A missing setup.py is reported as a build
// failure before anything is executed.
//
// On a non-zero exit the returned error is a model.CLIError with
// ExitBuildFailed; the Result is still populated so callers can log the
// captured output.
func Build(ctx context.Context, env *pyenv.Env, sampleDir string, action model.FreezeAction, opts BuildOptions) (*Result, error) {
	setupPy := filepath.Join(sampleDir, "setup.py")
	if _, err := os.Stat(setupPy); err != nil {
		return nil, model.WrapCLIError(
			model.ExitBuildFailed,
			fmt.Sprintf("sample has no setup.py in %s", sampleDir),
			err,
		)
	}

	args := buildArgs(action, opts)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, env.Python, args...)
	cmd.Dir = sampleDir
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	result := &Result{
		Command:  env.Python + " " + strings.Join(args, " "),
		Output:   string(output),
		ExitCode: exitCodeOf(err),
	}

	if err != nil {
		return result, model.WrapCLIError(
			model.ExitBuildFailed,
			fmt.Sprintf("build of action %q failed: %s", action, strings.TrimSpace(result.Output)),
			err,
		)
	}
	return result, nil
}

// buildArgs renders the interpreter argument vector for one action. The
// -O flag makes the interpreter freeze optimized bytecode; Debug drops
// it along with --quiet so the tool's full output survives.
func buildArgs(action model.FreezeAction, opts BuildOptions) []string {
	args := make([]string, 0, 4)
	if !opts.Debug {
		args = append(args, "-O")
	}
	args = append(args, "setup.py", string(action))
	if opts.Quiet && !opts.Debug {
		args = append(args, "--quiet")
	}
	return args
}

// exitCodeOf extracts the child exit code from an exec error. A nil error
// is exit 0; an error that is not an ExitError (e.g. the binary was never
// started) maps to -1.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
