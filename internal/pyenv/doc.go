// Package pyenv provides Python environment detection and preparation for
// the freezeci harness.
//
// All operations shell out to the relevant tools (python, pip, conda,
// pacman) via os/exec, rather than linking any Python machinery. This
// mirrors how the harness is used in CI: the interpreter that will run the
// packaging tool is exactly the one resolved here, with no emulation layer
// in between.
//
// The package answers three questions:
//   - What environment are we in? (Detect: manager, prefix, interpreter,
//     version, container/CI flags)
//   - How do we get an isolated environment? (EnsureVenv)
//   - How do we install a set of manifest requirements into it? (Installer)
//
// Failures are wrapped in model.CLIError with ExitEnvSetupFailed so the CLI
// layer reports environment problems with a distinct exit code.
package pyenv
