package model

import (
	"fmt"
	"strings"
)

// EnvManager identifies which tool owns the Python environment the harness
// installs packages into. The manager decides both how the interpreter is
// located and which install command is used (pip, conda, or pacman).
type EnvManager string

const (
	// ManagerVenv is a standard-library virtual environment (python -m venv).
	// Packages are installed with pip.
	ManagerVenv EnvManager = "venv"

	// ManagerConda is a conda/mamba prefix environment. Packages are
	// installed with `conda install` where possible, falling back to pip.
	ManagerConda EnvManager = "conda"

	// ManagerMinGW is an MSYS2/MinGW system environment. Packages are
	// installed with pacman using mingw-w64 package names.
	ManagerMinGW EnvManager = "mingw"

	// ManagerSystem is a bare system interpreter with no environment
	// manager. Installing into it requires an explicit opt-in because it
	// mutates the machine's global site-packages.
	ManagerSystem EnvManager = "system"
)

// String returns the string representation of the EnvManager.
func (m EnvManager) String() string {
	return string(m)
}

// IsValid checks whether the EnvManager value is one of the known managers.
func (m EnvManager) IsValid() bool {
	switch m {
	case ManagerVenv, ManagerConda, ManagerMinGW, ManagerSystem:
		return true
	default:
		return false
	}
}

// ParseEnvManager converts a string to an EnvManager.
// Returns an error if the string does not match any known manager.
func ParseEnvManager(s string) (EnvManager, error) {
	m := EnvManager(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("invalid environment manager: %q (valid: venv, conda, mingw, system)", s)
	}
	return m, nil
}

// FreezeAction selects which packaging command is invoked against a
// sample's setup script. The action is normally build_exe; the bdist
// variants produce installable artifacts and are only meaningful on one
// platform each.
type FreezeAction string

const (
	// ActionBuildExe runs "setup.py build_exe", producing the directory
	// layout under build/exe.<platform>-<pyver>. Valid everywhere.
	ActionBuildExe FreezeAction = "build_exe"

	// ActionBdistAppImage runs "setup.py bdist_appimage" (Linux only),
	// producing an AppImage under dist/.
	ActionBdistAppImage FreezeAction = "bdist_appimage"

	// ActionBdistMac runs "setup.py bdist_mac" (macOS only), producing an
	// .app bundle under build/.
	ActionBdistMac FreezeAction = "bdist_mac"

	// ActionBdistMSI runs "setup.py bdist_msi" (Windows only), producing an
	// MSI installer under dist/.
	ActionBdistMSI FreezeAction = "bdist_msi"
)

// String returns the string representation of the FreezeAction.
func (a FreezeAction) String() string {
	return string(a)
}

// IsValid checks whether the FreezeAction is one of the known actions.
func (a FreezeAction) IsValid() bool {
	switch a {
	case ActionBuildExe, ActionBdistAppImage, ActionBdistMac, ActionBdistMSI:
		return true
	default:
		return false
	}
}

// SupportedOn reports whether the action can run on the given platform.
// build_exe works everywhere; each bdist variant is tied to one family.
func (a FreezeAction) SupportedOn(p Platform) bool {
	switch a {
	case ActionBuildExe:
		return true
	case ActionBdistAppImage:
		return p == PlatformLinux
	case ActionBdistMac:
		return p == PlatformMacOS
	case ActionBdistMSI:
		return p == PlatformWindows || p == PlatformMinGW
	default:
		return false
	}
}

// ParseFreezeAction converts a string to a FreezeAction.
// Returns an error if the string does not match any known action.
func ParseFreezeAction(s string) (FreezeAction, error) {
	a := FreezeAction(strings.ToLower(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("invalid freeze action: %q (valid: build_exe, bdist_appimage, bdist_mac, bdist_msi)", s)
	}
	return a, nil
}

// ExitCode defines the process exit codes of the freezeci binary. These
// codes let CI workflows distinguish which stage of the pipeline failed
// without parsing log output.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitSampleNotFound indicates the named sample does not exist in the
	// samples directory. Returned before any build is attempted.
	ExitSampleNotFound ExitCode = 2

	// ExitEnvSetupFailed indicates environment preparation failed: no usable
	// interpreter, venv creation failure, or a dependency install failure.
	ExitEnvSetupFailed ExitCode = 3

	// ExitBuildFailed indicates the packaging command exited non-zero or
	// produced no executable in any candidate output directory.
	ExitBuildFailed ExitCode = 4

	// ExitRunFailed indicates the frozen executable exited non-zero
	// (on the host or during the container re-run).
	ExitRunFailed ExitCode = 5

	// ExitDockerNotRunning indicates the Docker daemon is not reachable
	// when a container step was requested.
	ExitDockerNotRunning ExitCode = 6

	// ExitDisplayFailed indicates the virtual display server could not be
	// started for a GUI sample.
	ExitDisplayFailed ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate pipeline errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
