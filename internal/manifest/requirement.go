// requirement.go implements the requirement-string grammar used by the
// manifest. A requirement is a space-separated list of tokens: one package
// spec plus optional inline options, e.g.
//
//	"Pillow --prefer-binary --platform=linux,macos"
//	"numpy --python-version>=3.10 --only-binary"
//	"lief --conda=py-lief --only-binary"
//
// The inline options gate where the requirement applies (platform, Python
// version), select per-manager package aliases (conda, pacman), and add
// flags to the eventual pip command line.
package manifest

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

// Requirement is one parsed package requirement from the manifest.
type Requirement struct {
	// Name is the pip requirement spec (package name, optionally with a
	// version specifier like "cx_Logging>=3.0").
	Name string

	// CondaAlias is the package name to use under conda. The Set flag
	// distinguishes "no alias given" from "alias given as empty", which
	// means the requirement is skipped entirely on conda.
	CondaAlias    string
	CondaAliasSet bool

	// MingwAlias mirrors CondaAlias for MSYS2/pacman installs.
	MingwAlias    string
	MingwAliasSet bool

	// Pip behavior flags.
	NoDeps       bool
	OnlyBinary   bool
	Pre          bool
	PreferBinary bool
	Upgrade      bool

	// Platforms restricts the requirement to certain platforms, with the
	// same grammar as the entry-level platform spec.
	Platforms []string

	// PythonConstraint gates the requirement on the interpreter version.
	PythonConstraint *semver.Constraints
}

// pythonVersionPrefix introduces the interpreter version gate option.
// The operator and version follow the prefix directly: "--python-version>=3.10".
const pythonVersionPrefix = "--python-version"

// ParseRequirement parses a single requirement string.
func ParseRequirement(s string) (Requirement, error) {
	var req Requirement

	for _, token := range strings.Fields(s) {
		switch {
		case strings.HasPrefix(token, "--conda="):
			req.CondaAlias = strings.SplitN(token, "=", 2)[1]
			req.CondaAliasSet = true

		case strings.HasPrefix(token, "--mingw="):
			req.MingwAlias = strings.SplitN(token, "=", 2)[1]
			req.MingwAliasSet = true

		case token == "--no-deps":
			req.NoDeps = true

		case token == "--only-binary":
			req.OnlyBinary = true

		case token == "--pre":
			req.Pre = true

		case token == "--prefer-binary":
			req.PreferBinary = true

		case token == "--upgrade":
			req.Upgrade = true

		case strings.HasPrefix(token, "--platform="):
			req.Platforms = model.SplitPlatformSpec(strings.SplitN(token, "=", 2)[1])

		case strings.HasPrefix(token, pythonVersionPrefix):
			constraint := token[len(pythonVersionPrefix):]
			if constraint == "" {
				return req, fmt.Errorf("requirement %q: empty python version constraint", s)
			}
			c, err := semver.NewConstraint(constraint)
			if err != nil {
				return req, fmt.Errorf("requirement %q: invalid python version constraint %q: %w", s, constraint, err)
			}
			req.PythonConstraint = c

		case strings.HasPrefix(token, "--"):
			return req, fmt.Errorf("requirement %q: unknown option %q", s, token)

		default:
			if req.Name != "" {
				return req, fmt.Errorf("requirement %q: multiple package specs (%q and %q)", s, req.Name, token)
			}
			req.Name = token
		}
	}

	if req.Name == "" && !req.CondaAliasSet && !req.MingwAliasSet {
		return req, fmt.Errorf("requirement %q: no package spec", s)
	}

	return req, nil
}

// AppliesTo reports whether the requirement should be installed on the
// given platform with the given interpreter version. Requirements gated
// on a Python version that is unknown (nil) are skipped, matching the
// fail-closed behavior of the platform gate.
func (r *Requirement) AppliesTo(p model.Platform, pyVersion *semver.Version) bool {
	if !model.MatchPlatforms(r.Platforms, p) {
		return false
	}
	if r.PythonConstraint != nil {
		if pyVersion == nil {
			return false
		}
		return r.PythonConstraint.Check(pyVersion)
	}
	return true
}

// NameFor returns the package name to install under the given manager,
// applying the conda/mingw aliases. The second return value is false when
// the requirement must be skipped under that manager (alias explicitly
// set to empty, or no name available).
func (r *Requirement) NameFor(m model.EnvManager) (string, bool) {
	switch m {
	case model.ManagerConda:
		if r.CondaAliasSet {
			return r.CondaAlias, r.CondaAlias != ""
		}
	case model.ManagerMinGW:
		if r.MingwAliasSet {
			return r.MingwAlias, r.MingwAlias != ""
		}
	}
	return r.Name, r.Name != ""
}

// PipArgs returns the extra pip flags this requirement carries, in the
// order pip expects them before the requirement spec itself.
func (r *Requirement) PipArgs() []string {
	var args []string
	if r.NoDeps {
		args = append(args, "--no-deps")
	}
	if r.OnlyBinary {
		args = append(args, "--only-binary="+r.Name)
	}
	if r.Pre {
		args = append(args, "--pre")
	}
	if r.PreferBinary {
		args = append(args, "--prefer-binary")
	}
	if r.Upgrade {
		args = append(args, "--upgrade")
	}
	return args
}

// Plain reports whether the requirement carries no pip flags at all.
// Plain requirements can be batched into a single pip invocation; flagged
// ones need their own command line.
func (r *Requirement) Plain() bool {
	return !r.NoDeps && !r.OnlyBinary && !r.Pre && !r.PreferBinary && !r.Upgrade
}
