package pyenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

// EnsureVenv makes sure an isolated environment exists for the harness and
// returns an Env rebased onto it.
//
// Behavior by detected manager:
//   - venv / conda / mingw: the active environment is already isolated, so
//     it is used as-is.
//   - system: a virtual environment is created (or reused) at dir, unless
//     allowSystem permits installing straight into the system interpreter.
//
// The venv is created with `python -m venv`, the only mechanism that is
// guaranteed to exist wherever a CPython interpreter does.
func EnsureVenv(ctx context.Context, base *Env, dir string, allowSystem bool) (*Env, error) {
	if base.Manager != model.ManagerSystem {
		return base, nil
	}
	if allowSystem {
		return base, nil
	}

	// Reuse an existing venv if the interpreter inside it still exists.
	// A half-created venv (directory present, interpreter missing) is
	// rebuilt from scratch.
	python := venvPython(dir, base.Platform)
	if _, err := os.Stat(python); err == nil {
		return base.InterpreterFor(ctx, dir)
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, model.WrapCLIError(
			model.ExitEnvSetupFailed,
			fmt.Sprintf("cannot create parent directory for venv %s", dir),
			err,
		)
	}

	if _, err := runTool(ctx, "", base.Python, "-m", "venv", dir); err != nil {
		return nil, err
	}

	return base.InterpreterFor(ctx, dir)
}
