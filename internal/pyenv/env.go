package pyenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

// Env describes the Python environment the harness will build and run in.
// It is detected once per invocation and threaded through the pipeline.
type Env struct {
	// Manager is the environment manager that owns the interpreter.
	Manager model.EnvManager

	// Prefix is the environment root (VIRTUAL_ENV, CONDA_PREFIX, or the
	// MSYS2 prefix). Empty for a bare system interpreter.
	Prefix string

	// Python is the absolute path to the interpreter executable.
	Python string

	// Version is the interpreter version, or nil when the probe failed.
	Version *semver.Version

	// Platform is the detected platform family.
	Platform model.Platform

	// PipenvActive mirrors the PIPENV_ACTIVE environment variable; some
	// install modes are rejected under pipenv.
	PipenvActive bool

	// InContainer is true when the harness itself runs inside a container
	// (/.dockerenv exists or the CONTAINER variable is set). The container
	// re-run step is disabled in that case — no nesting.
	InContainer bool

	// CI is true when CI=true, which switches log output to grouped
	// workflow commands.
	CI bool
}

// Detect inspects the process environment and locates a usable Python
// interpreter.
//
// Manager detection order matches the precedence the activation scripts
// establish: an active venv wins over a conda prefix, which wins over the
// MSYS2 system environment; anything else is a bare system interpreter.
func Detect(ctx context.Context) (*Env, error) {
	env := &Env{
		Platform:     model.DetectPlatform(),
		PipenvActive: os.Getenv("PIPENV_ACTIVE") != "",
		InContainer:  detectContainer(),
		CI:           os.Getenv("CI") == "true",
	}

	switch {
	case os.Getenv("VIRTUAL_ENV") != "":
		env.Manager = model.ManagerVenv
		env.Prefix = os.Getenv("VIRTUAL_ENV")
	case os.Getenv("CONDA_PREFIX") != "":
		env.Manager = model.ManagerConda
		env.Prefix = os.Getenv("CONDA_PREFIX")
	case env.Platform == model.PlatformMinGW:
		env.Manager = model.ManagerMinGW
		env.Prefix = os.Getenv("MSYSTEM_PREFIX")
	default:
		env.Manager = model.ManagerSystem
	}

	python, err := findInterpreter(env)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitEnvSetupFailed, "no usable Python interpreter found", err)
	}
	env.Python = python

	// The version probe is best-effort: a broken interpreter will fail
	// loudly at the first real step anyway, and version-gated manifest
	// entries fail closed on a nil version.
	env.Version = probeVersion(ctx, python)

	return env, nil
}

// InterpreterFor returns an Env rebased onto a specific environment prefix,
// as created by EnsureVenv. The manager becomes venv and the interpreter
// path points inside the prefix.
func (e *Env) InterpreterFor(ctx context.Context, prefix string) (*Env, error) {
	rebased := *e
	rebased.Manager = model.ManagerVenv
	rebased.Prefix = prefix
	rebased.Python = venvPython(prefix, e.Platform)

	if _, err := os.Stat(rebased.Python); err != nil {
		return nil, model.WrapCLIError(
			model.ExitEnvSetupFailed,
			fmt.Sprintf("virtual environment at %s has no interpreter", prefix),
			err,
		)
	}
	rebased.Version = probeVersion(ctx, rebased.Python)
	return &rebased, nil
}

// findInterpreter resolves the interpreter path for the detected manager.
// Inside a managed prefix, the interpreter is taken from the prefix rather
// than PATH, so the harness can never accidentally mix environments.
func findInterpreter(env *Env) (string, error) {
	if env.Prefix != "" {
		candidate := venvPython(env.Prefix, env.Platform)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		// Conda on Windows puts python.exe at the prefix root.
		if env.Platform.IsWindowsLike() {
			candidate = filepath.Join(env.Prefix, "python.exe")
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	// PATH lookup, preferring the unambiguous python3 name. On Windows the
	// launcher installs plain "python" only.
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("neither python3 nor python found on PATH")
}

// venvPython returns the interpreter path inside an environment prefix
// (bin/python on POSIX, Scripts\python.exe on Windows).
func venvPython(prefix string, p model.Platform) string {
	if p == model.PlatformWindows {
		return filepath.Join(prefix, "Scripts", "python.exe")
	}
	return filepath.Join(prefix, "bin", "python")
}

// pythonVersionRe extracts the numeric core of a Python version string,
// tolerating pre-release suffixes like "3.14.0rc2".
var pythonVersionRe = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?`)

// probeVersion asks the interpreter for its version and parses it.
// Returns nil when the interpreter cannot be executed or prints something
// unparseable.
func probeVersion(ctx context.Context, python string) *semver.Version {
	cmd := exec.CommandContext(ctx, python, "-c", "import platform; print(platform.python_version())")
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	return ParsePythonVersion(strings.TrimSpace(string(out)))
}

// ParsePythonVersion converts a Python version string into a semver
// version, dropping pre-release suffixes ("3.14.0rc2" → 3.14.0). Returns
// nil for unparseable input.
func ParsePythonVersion(s string) *semver.Version {
	m := pythonVersionRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	v, err := semver.NewVersion(fmt.Sprintf("%s.%s.%s", m[1], m[2], patch))
	if err != nil {
		return nil
	}
	return v
}

// detectContainer reports whether the current process already runs inside
// a container. Docker creates /.dockerenv; podman and several CI runners
// set the CONTAINER variable.
func detectContainer() bool {
	if os.Getenv("CONTAINER") != "" {
		return true
	}
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// ShortVersion returns "major.minor" for the interpreter, or "" when the
// version is unknown. Used for build output directory names.
func (e *Env) ShortVersion() string {
	if e.Version == nil {
		return ""
	}
	return fmt.Sprintf("%d.%d", e.Version.Major(), e.Version.Minor())
}
