package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesMergeOverDefaults(t *testing.T) {
	path := writeConfig(t, `
samples_dir: ci/samples
run_timeout: 90s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ci/samples", cfg.SamplesDir)
	assert.Equal(t, 90*time.Second, cfg.RunTimeout)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().ContainerImage, cfg.ContainerImage)
	assert.Equal(t, Default().DisplayGeometry, cfg.DisplayGeometry)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "samples_dir: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_RejectsEmptySamplesDir(t *testing.T) {
	path := writeConfig(t, `samples_dir: ""`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "samples_dir")
}

func TestLoad_RejectsNonPositiveTimeout(t *testing.T) {
	path := writeConfig(t, "run_timeout: -1s")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run_timeout")
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, DefaultFileName),
		[]byte("container_image: debian:12\n"), 0o644))

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "debian:12", cfg.ContainerImage)
}
