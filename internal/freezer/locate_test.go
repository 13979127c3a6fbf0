package freezer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/freezeci/internal/model"
	"github.com/mmr-tortoise/freezeci/internal/pyenv"
)

// writeExe creates a fake executable at dir/name, creating dir as needed.
func writeExe(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

func linuxEnv(version string) *pyenv.Env {
	return &pyenv.Env{
		Platform: model.PlatformLinux,
		Version:  pyenv.ParsePythonVersion(version),
	}
}

func TestLocateExecutable_BuildExeLayout(t *testing.T) {
	sample := t.TempDir()
	want := writeExe(t, filepath.Join(sample, "build", "exe.linux-x86_64-3.12"), "test_simple")

	exe, err := LocateExecutable(sample, "test_simple", model.ActionBuildExe, linuxEnv("3.12.1"))
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
	assert.Equal(t, filepath.Dir(want), exe.Dir)
}

func TestLocateExecutable_PrefersMatchingInterpreterVersion(t *testing.T) {
	sample := t.TempDir()
	writeExe(t, filepath.Join(sample, "build", "exe.linux-x86_64-3.11"), "test_simple")
	want := writeExe(t, filepath.Join(sample, "build", "exe.linux-x86_64-3.12"), "test_simple")

	exe, err := LocateExecutable(sample, "test_simple", model.ActionBuildExe, linuxEnv("3.12.0"))
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
}

func TestLocateExecutable_DistFallback(t *testing.T) {
	sample := t.TempDir()
	want := writeExe(t, filepath.Join(sample, "dist"), "test_appimage")

	exe, err := LocateExecutable(sample, "test_appimage", model.ActionBuildExe, linuxEnv("3.12.1"))
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
}

func TestLocateExecutable_LegacyBuildFallback(t *testing.T) {
	sample := t.TempDir()
	want := writeExe(t, filepath.Join(sample, "build"), "test_legacy")

	exe, err := LocateExecutable(sample, "test_legacy", model.ActionBuildExe, linuxEnv("3.12.1"))
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
}

func TestLocateExecutable_WindowsSuffix(t *testing.T) {
	sample := t.TempDir()
	writeExe(t, filepath.Join(sample, "dist"), "test_app.exe")

	env := &pyenv.Env{Platform: model.PlatformWindows, Version: pyenv.ParsePythonVersion("3.12.1")}
	exe, err := LocateExecutable(sample, "test_app", model.ActionBuildExe, env)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sample, "dist", "test_app.exe"), exe.Path)
}

func TestLocateExecutable_NotFound(t *testing.T) {
	sample := t.TempDir()
	// An empty dist directory must not satisfy the search.
	require.NoError(t, os.MkdirAll(filepath.Join(sample, "dist"), 0o755))

	_, err := LocateExecutable(sample, "test_missing", model.ActionBuildExe, linuxEnv("3.12.1"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitBuildFailed, cliErr.Code)
}

func TestLocateExecutable_DirectoryWithAppNameIsSkipped(t *testing.T) {
	sample := t.TempDir()
	// A directory named like the app (bdist_mac .app bundles come close)
	// must not be mistaken for the executable.
	require.NoError(t, os.MkdirAll(filepath.Join(sample, "dist", "test_app"), 0o755))
	want := writeExe(t, filepath.Join(sample, "build"), "test_app")

	exe, err := LocateExecutable(sample, "test_app", model.ActionBuildExe, linuxEnv("3.12.1"))
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
}

func TestLocateExecutable_AppImageDecoratedName(t *testing.T) {
	sample := t.TempDir()
	// bdist_appimage decorates the file with version and architecture.
	want := writeExe(t, filepath.Join(sample, "dist"), "hello-0.1.2.3-x86_64.AppImage")

	exe, err := LocateExecutable(sample, "hello", model.ActionBdistAppImage, linuxEnv("3.12.1"))
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
	assert.Equal(t, filepath.Join(sample, "dist"), exe.Dir)
}

func TestLocateExecutable_AppImagePrefersNewestVersion(t *testing.T) {
	sample := t.TempDir()
	writeExe(t, filepath.Join(sample, "dist"), "hello-0.1.0-x86_64.AppImage")
	want := writeExe(t, filepath.Join(sample, "dist"), "hello-0.2.0-x86_64.AppImage")

	exe, err := LocateExecutable(sample, "hello", model.ActionBdistAppImage, linuxEnv("3.12.1"))
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
}

func TestLocateExecutable_AppImageRenamedArtifact(t *testing.T) {
	sample := t.TempDir()
	// A --target-name that differs from the app name still matches via
	// the any-AppImage fallback.
	want := writeExe(t, filepath.Join(sample, "dist"), "Greeter-1.0-x86_64.AppImage")

	exe, err := LocateExecutable(sample, "hello", model.ActionBdistAppImage, linuxEnv("3.12.1"))
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
}

func TestLocateExecutable_AppImageMissing(t *testing.T) {
	sample := t.TempDir()
	// A build_exe binary alone does not satisfy a bdist_appimage search.
	writeExe(t, filepath.Join(sample, "build", "exe.linux-x86_64-3.12"), "hello")

	_, err := LocateExecutable(sample, "hello", model.ActionBdistAppImage, linuxEnv("3.12.1"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitBuildFailed, cliErr.Code)
}

func TestLocateExecutable_MSIDecoratedName(t *testing.T) {
	sample := t.TempDir()
	want := writeExe(t, filepath.Join(sample, "dist"), "hello-0.1.2.3-win64.msi")

	env := &pyenv.Env{Platform: model.PlatformWindows, Version: pyenv.ParsePythonVersion("3.12.1")}
	exe, err := LocateExecutable(sample, "hello", model.ActionBdistMSI, env)
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
}

func TestLocateExecutable_MacAppBundle(t *testing.T) {
	sample := t.TempDir()
	bundle := filepath.Join(sample, "build", "hello.app", "Contents", "MacOS")
	want := writeExe(t, bundle, "hello")

	env := &pyenv.Env{Platform: model.PlatformMacOS, Version: pyenv.ParsePythonVersion("3.12.1")}
	exe, err := LocateExecutable(sample, "hello", model.ActionBdistMac, env)
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
	assert.Equal(t, bundle, exe.Dir)
}

func TestLocateExecutable_MacRenamedBundle(t *testing.T) {
	sample := t.TempDir()
	// The bundle carries the display name; the binary inside matches it.
	want := writeExe(t, filepath.Join(sample, "build", "Greeter.app", "Contents", "MacOS"), "Greeter")

	env := &pyenv.Env{Platform: model.PlatformMacOS, Version: pyenv.ParsePythonVersion("3.12.1")}
	exe, err := LocateExecutable(sample, "hello", model.ActionBdistMac, env)
	require.NoError(t, err)
	assert.Equal(t, want, exe.Path)
}

func TestBuildDirTag(t *testing.T) {
	assert.Empty(t, BuildDirTag(&pyenv.Env{Platform: model.PlatformLinux}),
		"unknown interpreter version yields no tag")

	tag := BuildDirTag(linuxEnv("3.12.1"))
	assert.Contains(t, tag, "linux-")
	assert.Contains(t, tag, "-3.12")

	assert.Empty(t, BuildDirTag(&pyenv.Env{
		Platform: model.PlatformMacOS,
		Version:  pyenv.ParsePythonVersion("3.12.1"),
	}), "macOS relies on the glob fallback")
}
