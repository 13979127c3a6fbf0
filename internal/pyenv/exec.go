package pyenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

// runTool executes an external tool with the given arguments in the
// specified directory. It captures stdout and stderr separately so error
// messages can include the tool's diagnostics while successful output is
// returned to the caller.
//
// On failure, the error is wrapped in a model.CLIError with
// ExitEnvSetupFailed — every tool this package runs belongs to the
// environment-preparation stage.
func runTool(ctx context.Context, dir string, name string, args ...string) (string, error) {
	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("%s %s failed", name, strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.ExitEnvSetupFailed, message, err)
	}

	return stdout.String(), nil
}
