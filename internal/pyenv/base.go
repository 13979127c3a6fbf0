package pyenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mmr-tortoise/freezeci/internal/manifest"
	"github.com/mmr-tortoise/freezeci/internal/model"
)

// pyprojectFile mirrors the slices of pyproject.toml the base install
// reads: the build backend's requirements and the project's runtime
// dependencies.
type pyprojectFile struct {
	BuildSystem struct {
		Requires []string `toml:"requires"`
	} `toml:"build-system"`
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
}

// InstallBase bootstraps the environment for building the packaging tool
// from source: pip and setuptools are upgraded (pip is left to pipenv
// when pipenv is active), then the build-system requires and project
// dependencies from the project's pyproject.toml are installed. Under
// MSYS2 the ca-certificates package is pulled in first, since a bare
// MSYS2 Python cannot reach HTTPS indexes without it.
//
// Returns the names of everything installed, for log output.
func (i *Installer) InstallBase(ctx context.Context, projectDir string) ([]string, error) {
	bootstrap := []string{"setuptools"}
	if !i.env.PipenvActive {
		bootstrap = append([]string{"pip"}, bootstrap...)
	}
	args := append([]string{"-m", "pip", "install", "--upgrade"}, bootstrap...)
	if _, err := runTool(ctx, "", i.env.Python, args...); err != nil {
		return nil, err
	}
	installed := append([]string(nil), bootstrap...)

	specs, err := BaseRequirements(filepath.Join(projectDir, "pyproject.toml"))
	if err != nil {
		return installed, err
	}
	if i.env.Manager == model.ManagerMinGW {
		specs = append([]string{"ca-certificates"}, specs...)
	}
	if len(specs) == 0 {
		return installed, nil
	}

	reqs := make([]manifest.Requirement, 0, len(specs))
	for _, spec := range specs {
		req, err := manifest.ParseRequirement(spec)
		if err != nil {
			return installed, model.WrapCLIError(
				model.ExitEnvSetupFailed,
				fmt.Sprintf("bad base requirement %q", spec),
				err,
			)
		}
		reqs = append(reqs, req)
	}

	names, err := i.InstallRequirements(ctx, &manifest.Entry{Requirements: reqs})
	return append(installed, names...), err
}

// BaseRequirements reads a pyproject.toml and returns its build-system
// requires plus project dependencies as requirement strings in the
// manifest grammar. A sys_platform environment marker becomes a
// --platform gate; other markers are stripped and the requirement kept
// unconditionally. A missing file yields no requirements: only the
// packaging tool's own checkout carries one.
func BaseRequirements(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitEnvSetupFailed, "failed to read pyproject.toml", err)
	}

	var file pyprojectFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, model.WrapCLIError(model.ExitEnvSetupFailed, "failed to parse pyproject.toml", err)
	}

	var specs []string
	seen := make(map[string]bool)
	for _, dep := range append(file.BuildSystem.Requires, file.Project.Dependencies...) {
		spec := baseRequirementSpec(dep)
		if spec == "" || seen[spec] {
			continue
		}
		seen[spec] = true
		specs = append(specs, spec)
	}
	return specs, nil
}

// baseRequirementSpec converts one PEP 508 dependency string into the
// manifest requirement grammar.
func baseRequirementSpec(dependency string) string {
	spec, marker, _ := strings.Cut(dependency, ";")
	// PEP 508 allows whitespace inside a spec ("setuptools >= 65"); the
	// manifest grammar is whitespace-separated, so collapse it.
	spec = strings.Join(strings.Fields(spec), "")
	if spec == "" {
		return ""
	}
	switch {
	case strings.Contains(marker, `sys_platform == 'linux'`):
		spec += " --platform=linux"
	case strings.Contains(marker, `sys_platform == 'win32'`):
		spec += " --platform=windows,mingw"
	}
	return spec
}
