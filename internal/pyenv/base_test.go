package pyenv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

const basePyproject = `[build-system]
requires = ["setuptools>=65.6.3", "wheel"]

[project]
name = "freezer"
dependencies = [
    "lief>=0.12 ;sys_platform == 'linux'",
    "cx-logging >= 3.0 ;sys_platform == 'win32'",
    "packaging",
    "setuptools>=65.6.3",
]
`

func writePyproject(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pyproject.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBaseRequirements(t *testing.T) {
	specs, err := BaseRequirements(writePyproject(t, basePyproject))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"setuptools>=65.6.3",
		"wheel",
		"lief>=0.12 --platform=linux",
		"cx-logging>=3.0 --platform=windows,mingw",
		"packaging",
	}, specs, "markers become platform gates, duplicates collapse")
}

func TestBaseRequirements_MissingFile(t *testing.T) {
	specs, err := BaseRequirements(filepath.Join(t.TempDir(), "pyproject.toml"))
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestBaseRequirements_Malformed(t *testing.T) {
	_, err := BaseRequirements(writePyproject(t, "[build-system\nrequires = ?"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitEnvSetupFailed, cliErr.Code)
}

func TestInstallBase(t *testing.T) {
	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(projectDir, "pyproject.toml"),
		[]byte(basePyproject), 0o644))

	// A fake interpreter that records every argument vector it receives.
	toolDir := t.TempDir()
	logFile := filepath.Join(toolDir, "calls.log")
	python := filepath.Join(toolDir, "python")
	script := "#!/bin/sh\necho \"$@\" >> " + logFile + "\nexit 0\n"
	require.NoError(t, os.WriteFile(python, []byte(script), 0o755))

	env := &Env{
		Manager:  model.ManagerVenv,
		Python:   python,
		Platform: model.PlatformLinux,
		Version:  ParsePythonVersion("3.12.1"),
	}

	installed, err := NewInstaller(env, false).InstallBase(context.Background(), projectDir)
	require.NoError(t, err)
	assert.Contains(t, installed, "pip")
	assert.Contains(t, installed, "setuptools")
	assert.Contains(t, installed, "packaging")
	assert.NotContains(t, installed, "cx-logging>=3.0", "win32-gated requirement skipped on linux")

	calls, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(calls), "-m pip install --upgrade pip setuptools")
	assert.Contains(t, string(calls), "lief>=0.12")
}

func TestInstallBase_PipenvLeavesPipAlone(t *testing.T) {
	toolDir := t.TempDir()
	logFile := filepath.Join(toolDir, "calls.log")
	python := filepath.Join(toolDir, "python")
	script := "#!/bin/sh\necho \"$@\" >> " + logFile + "\nexit 0\n"
	require.NoError(t, os.WriteFile(python, []byte(script), 0o755))

	env := &Env{
		Manager:      model.ManagerVenv,
		Python:       python,
		Platform:     model.PlatformLinux,
		Version:      ParsePythonVersion("3.12.1"),
		PipenvActive: true,
	}

	// No pyproject.toml: only the bootstrap runs.
	installed, err := NewInstaller(env, false).InstallBase(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"setuptools"}, installed)

	calls, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(calls), " pip setuptools")
}
