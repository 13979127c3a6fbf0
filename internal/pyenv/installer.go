package pyenv

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mmr-tortoise/freezeci/internal/manifest"
	"github.com/mmr-tortoise/freezeci/internal/model"
)

// InstallMode selects how the packaging tool itself is installed before a
// sample is built.
type InstallMode string

const (
	// ModeDefault leaves the installed packaging tool alone.
	ModeDefault InstallMode = "default"

	// ModeDevelop installs the packaging tool from the project checkout in
	// editable mode with build isolation disabled, so local changes are
	// picked up without a rebuild.
	ModeDevelop InstallMode = "develop"

	// ModeEditable is like ModeDevelop but also skips dependency
	// resolution; the environment is assumed to carry the dependencies
	// already.
	ModeEditable InstallMode = "editable"

	// ModeLatest installs the newest released packaging tool from the
	// package index, replacing whatever is present.
	ModeLatest InstallMode = "latest"
)

// Installer installs manifest requirements and the packaging tool into a
// detected environment. It dispatches to pip, conda, or pacman depending
// on the environment's manager.
type Installer struct {
	env *Env

	// upgrade adds --upgrade to every pip install, mirroring the
	// PIP_UPGRADE environment variable contract.
	upgrade bool

	// verbose adds --verbose to pip command lines.
	verbose bool
}

// NewInstaller creates an Installer for the given environment.
func NewInstaller(env *Env, verbose bool) *Installer {
	return &Installer{
		env:     env,
		upgrade: os.Getenv("PIP_UPGRADE") != "",
		verbose: verbose,
	}
}

// InstallRequirements installs the applicable requirements of a manifest
// entry into the environment. Requirements gated to other platforms or
// interpreter versions are skipped silently; that is how the manifest
// expresses per-platform dependency sets.
//
// Returns the list of requirement names that were installed, for log
// output.
func (i *Installer) InstallRequirements(ctx context.Context, entry *manifest.Entry) ([]string, error) {
	var applicable []manifest.Requirement
	for _, req := range entry.Requirements {
		if req.AppliesTo(i.env.Platform, i.env.Version) {
			applicable = append(applicable, req)
		}
	}
	if len(applicable) == 0 {
		return nil, nil
	}

	switch i.env.Manager {
	case model.ManagerConda:
		return i.condaInstall(ctx, applicable)
	case model.ManagerMinGW:
		return i.pacmanInstall(ctx, applicable)
	default:
		return i.pipInstall(ctx, applicable, entry.ExtraIndexURLs, entry.FindLinks)
	}
}

// InstallFreezer installs the packaging tool according to the install
// mode. projectDir is the tool's source checkout, used by the develop and
// editable modes; toolName is the distribution name used by ModeLatest.
func (i *Installer) InstallFreezer(ctx context.Context, mode InstallMode, projectDir, toolName string) error {
	switch mode {
	case ModeDefault:
		return nil

	case ModeDevelop, ModeEditable:
		if i.env.PipenvActive {
			return model.NewCLIError(
				model.ExitEnvSetupFailed,
				fmt.Sprintf("--%s is not valid under pipenv", mode),
			)
		}
		args := []string{"-m", "pip", "install", "-e", ".", "--no-build-isolation"}
		if mode == ModeEditable {
			args = append(args, "--no-deps")
		}
		if i.verbose {
			args = append(args, "--verbose")
		}
		_, err := runTool(ctx, projectDir, i.env.Python, args...)
		return err

	case ModeLatest:
		args := append([]string{"-m", "pip", "install", "--upgrade"}, toolName)
		_, err := runTool(ctx, "", i.env.Python, args...)
		return err

	default:
		return model.NewCLIError(model.ExitEnvSetupFailed, fmt.Sprintf("unknown install mode %q", mode))
	}
}

// pipInstall installs requirements with pip. Plain requirements (no
// per-requirement flags) are batched into a single invocation; flagged
// requirements each get their own command line because flags like
// --only-binary are requirement-specific.
func (i *Installer) pipInstall(ctx context.Context, reqs []manifest.Requirement, extraIndexURLs, findLinks []string) ([]string, error) {
	var installed []string
	var batch []string

	for _, req := range reqs {
		name, ok := req.NameFor(i.env.Manager)
		if !ok {
			continue
		}

		if req.Plain() && !i.upgrade {
			batch = append(batch, name)
			continue
		}

		args := i.pipBaseArgs(extraIndexURLs, findLinks)
		args = append(args, req.PipArgs()...)
		if i.upgrade && !req.Upgrade {
			args = append(args, "--upgrade")
		}
		args = append(args, name)

		if _, err := runTool(ctx, "", i.env.Python, args...); err != nil {
			return installed, err
		}
		installed = append(installed, name)
	}

	if len(batch) > 0 {
		args := i.pipBaseArgs(extraIndexURLs, findLinks)
		args = append(args, batch...)
		if _, err := runTool(ctx, "", i.env.Python, args...); err != nil {
			return installed, err
		}
		installed = append(installed, batch...)
	}

	return installed, nil
}

// pipBaseArgs builds the common prefix of every pip install command line:
// "-m pip install" plus index and find-links options.
func (i *Installer) pipBaseArgs(extraIndexURLs, findLinks []string) []string {
	args := []string{"-m", "pip", "install"}
	for _, url := range extraIndexURLs {
		args = append(args, "--extra-index-url="+url)
	}
	for _, link := range findLinks {
		args = append(args, "--find-links="+link)
	}
	if i.verbose {
		args = append(args, "--verbose")
	}
	return args
}

// condaInstall installs requirements with conda into the active prefix.
// Requirements whose conda alias is explicitly empty are pip-only and
// skipped here.
func (i *Installer) condaInstall(ctx context.Context, reqs []manifest.Requirement) ([]string, error) {
	condaExe := os.Getenv("CONDA_EXE")
	if condaExe == "" {
		condaExe = "conda"
	}

	var names []string
	for _, req := range reqs {
		if name, ok := req.NameFor(model.ManagerConda); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	args := []string{"install", "--prefix", i.env.Prefix, "-y", "-q", "--no-channel-priority"}
	args = append(args, names...)

	if _, err := runTool(ctx, "", condaExe, args...); err != nil {
		return nil, err
	}
	return names, nil
}

// pacmanInstall installs requirements with pacman under MSYS2. Package
// naming in MSYS2 is irregular (python-foo, lowercasing, underscore and
// hyphen swaps), so each requirement is tried under several candidate
// names until one installs.
func (i *Installer) pacmanInstall(ctx context.Context, reqs []manifest.Requirement) ([]string, error) {
	prefix := os.Getenv("MINGW_PACKAGE_PREFIX")

	var installed []string
	for _, req := range reqs {
		name, ok := req.NameFor(model.ManagerMinGW)
		if !ok {
			continue
		}

		var lastErr error
		found := false
		for _, candidate := range PacmanCandidates(name, prefix) {
			_, err := runTool(ctx, "", "pacman", "--noconfirm", "--needed", "-S", candidate)
			if err == nil {
				installed = append(installed, candidate)
				found = true
				break
			}
			lastErr = err
		}
		if !found {
			return installed, model.WrapCLIError(
				model.ExitEnvSetupFailed,
				fmt.Sprintf("no pacman package found for requirement %q", name),
				lastErr,
			)
		}
	}
	return installed, nil
}

// PacmanCandidates enumerates the MSYS2 package names a Python requirement
// may be published under, most likely first. The bare distribution name is
// stripped of any version specifier before name mangling.
func PacmanCandidates(requirement, mingwPrefix string) []string {
	// Drop any version specifier ("foo>=1.2" → "foo").
	name := requirement
	if idx := strings.IndexAny(name, "<>=!~"); idx >= 0 {
		name = name[:idx]
	}

	base := []string{"python-" + name, name}
	if name != strings.ToLower(name) {
		for _, b := range base[:2] {
			base = append(base, strings.ToLower(b))
		}
	}
	if strings.Contains(name, "_") {
		for _, b := range base {
			base = append(base, strings.ReplaceAll(b, "_", "-"))
		}
	} else if strings.Contains(name, "-") {
		for _, b := range base {
			base = append(base, strings.ReplaceAll(b, "-", "_"))
		}
	}

	// Deduplicate while preserving order, then apply the toolchain prefix
	// (e.g. "mingw-w64-ucrt-x86_64").
	seen := make(map[string]bool, len(base))
	var out []string
	for _, b := range base {
		if seen[b] {
			continue
		}
		seen[b] = true
		if mingwPrefix != "" {
			out = append(out, mingwPrefix+"-"+b)
		} else {
			out = append(out, b)
		}
	}
	return out
}
