// Package config loads the optional harness configuration file.
//
// Configuration lives in .freezeci.yml at the project root. Every field
// has a working default, so the file only exists in projects that need
// to deviate (a non-standard samples directory, a custom container
// image for re-runs, a larger timeout for slow samples).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file searched for in the project
// root.
const DefaultFileName = ".freezeci.yml"

// Config holds harness-wide settings.
type Config struct {
	// SamplesDir is the directory containing the sample projects,
	// relative to the project root.
	SamplesDir string

	// ManifestPath overrides the manifest search. Empty means the
	// standard locations (ci/build-test.json, build-test.json).
	ManifestPath string

	// ContainerImage is the image used for container re-runs of frozen
	// executables.
	ContainerImage string

	// RunTimeout bounds a single frozen executable run. Manifest entries
	// can override it per sample.
	RunTimeout time.Duration

	// DisplayGeometry is the Xvfb screen configuration for GUI samples,
	// in WIDTHxHEIGHTxDEPTH form.
	DisplayGeometry string
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SamplesDir:      "samples",
		ContainerImage:  "ubuntu:22.04",
		RunTimeout:      5 * time.Minute,
		DisplayGeometry: "1280x1024x24",
	}
}

// rawConfig is the YAML shape of the file. Pointer fields distinguish
// "absent" from "explicitly empty" so absent fields keep their
// defaults, and run_timeout is read as a Go duration string ("90s").
type rawConfig struct {
	SamplesDir      *string `yaml:"samples_dir"`
	ManifestPath    *string `yaml:"manifest_path"`
	ContainerImage  *string `yaml:"container_image"`
	RunTimeout      *string `yaml:"run_timeout"`
	DisplayGeometry *string `yaml:"display_geometry"`
}

// Load reads the configuration file at path and merges it over the
// defaults. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if raw.SamplesDir != nil {
		cfg.SamplesDir = *raw.SamplesDir
	}
	if raw.ManifestPath != nil {
		cfg.ManifestPath = *raw.ManifestPath
	}
	if raw.ContainerImage != nil {
		cfg.ContainerImage = *raw.ContainerImage
	}
	if raw.DisplayGeometry != nil {
		cfg.DisplayGeometry = *raw.DisplayGeometry
	}
	if raw.RunTimeout != nil {
		d, err := time.ParseDuration(*raw.RunTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid config %s: run_timeout: %w", path, err)
		}
		cfg.RunTimeout = d
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir loads DefaultFileName from the given project directory.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, DefaultFileName))
}

func (c *Config) validate() error {
	if c.SamplesDir == "" {
		return errors.New("samples_dir must not be empty")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %s", c.RunTimeout)
	}
	return nil
}
