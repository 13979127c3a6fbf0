// Package manifest handles parsing and lookup of the sample build manifest.
//
// The manifest (ci/build-test.json) maps sample names to their test
// configuration: which application the frozen build produces, which
// platforms the sample supports, extra package requirements, and run
// options such as GUI mode or the container re-run flag. The file is
// written in JSONC (JSON with Comments), so this package uses
// github.com/tidwall/jsonc to strip comments before parsing with the
// standard encoding/json library.
//
// A sample absent from the manifest is not an error: lookup falls back to
// a default entry whose application name is "test_" + sample, which is the
// convention almost every sample follows.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

// rawEntry is the on-disk JSON shape of a single manifest entry. Fields that
// may be a single string or an array in the file use interface{} and are
// normalized during resolution.
type rawEntry struct {
	// TestApp is the application name the frozen build produces. Defaults
	// to "test_<sample>" when omitted.
	TestApp string `json:"test_app,omitempty"`

	// Platform restricts the sample to certain platforms. May be a single
	// comma-separated string ("linux,!mingw") or an array of names.
	Platform interface{} `json:"platform,omitempty"`

	// Requirements lists extra packages to install before building.
	// Each entry is a requirement string with optional inline options
	// (see ParseRequirement).
	Requirements []string `json:"requirements,omitempty"`

	// ExtraIndexURL lists additional package index URLs for pip.
	// May be a single string or an array.
	ExtraIndexURL interface{} `json:"extra_index_url,omitempty"`

	// FindLinks lists pip --find-links locations. May be a single string
	// or an array.
	FindLinks interface{} `json:"find_links,omitempty"`

	// PythonVersion is a version constraint the running interpreter must
	// satisfy for the sample to be tested (e.g. ">=3.10").
	PythonVersion string `json:"python_version,omitempty"`

	// GUI marks samples that open a window and therefore need a display
	// server when run headless.
	GUI bool `json:"gui,omitempty"`

	// Container requests a second run of the frozen executable inside a
	// container (Linux only).
	Container bool `json:"container,omitempty"`

	// Timeout is the run step timeout in seconds. Zero means the harness
	// default applies.
	Timeout int `json:"timeout,omitempty"`

	// Action overrides the packaging action for this sample
	// (build_exe, bdist_appimage, bdist_mac, bdist_msi).
	Action string `json:"action,omitempty"`
}

// Entry is the resolved manifest configuration for one sample.
type Entry struct {
	// Sample is the sample directory name the entry belongs to.
	Sample string

	// App is the test application name (executable base name).
	App string

	// Platforms is the normalized platform spec (nil means all platforms).
	Platforms []string

	// Requirements holds the parsed extra requirements.
	Requirements []Requirement

	// ExtraIndexURLs and FindLinks feed the pip command line.
	ExtraIndexURLs []string
	FindLinks      []string

	// PythonConstraint gates the sample on the interpreter version.
	// Nil means any version.
	PythonConstraint *semver.Constraints

	// GUI, Container and Timeout mirror the raw fields.
	GUI       bool
	Container bool
	Timeout   int

	// Action is the per-sample packaging action override. Empty means the
	// harness-level action (flag/env/default) applies.
	Action model.FreezeAction
}

// SupportedOn reports whether the entry's platform spec includes the
// given platform.
func (e *Entry) SupportedOn(p model.Platform) bool {
	return model.MatchPlatforms(e.Platforms, p)
}

// SupportsPython reports whether the entry's python_version constraint
// accepts the given interpreter version. A nil version (unknown
// interpreter) passes only unconstrained entries.
func (e *Entry) SupportsPython(v *semver.Version) bool {
	if e.PythonConstraint == nil {
		return true
	}
	if v == nil {
		return false
	}
	return e.PythonConstraint.Check(v)
}

// Manifest is the parsed sample manifest. Lookups never fail: samples
// without an entry get a synthesized default.
type Manifest struct {
	path    string
	entries map[string]rawEntry
}

// Load reads a manifest file, strips JSONC comments, and parses it.
//
// Returns an empty (but usable) manifest if the file does not exist, since
// the default-entry fallback makes the manifest itself optional.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{path: path, entries: map[string]rawEntry{}}, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	// Strip JSONC comments (// and /* */) and trailing commas before
	// parsing. The manifest is hand-maintained and commented in practice.
	cleanJSON := jsonc.ToJSON(data)

	var entries map[string]rawEntry
	if err := json.Unmarshal(cleanJSON, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest at %s: %w", path, err)
	}

	return &Manifest{path: path, entries: entries}, nil
}

// Find locates the manifest in the standard locations within a project
// directory, in priority order:
//
//  1. <projectDir>/ci/build-test.json
//  2. <projectDir>/build-test.json
//
// Returns the first path that exists. When neither exists, the preferred
// path is returned anyway — Load treats a missing file as an empty
// manifest, so callers need no special case.
func Find(projectDir string) string {
	candidates := []string{
		filepath.Join(projectDir, "ci", "build-test.json"),
		filepath.Join(projectDir, "build-test.json"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return candidates[0]
}

// Lookup resolves the entry for a sample, synthesizing the default entry
// (app = "test_" + sample, no restrictions) when the manifest has none.
// Parse errors in the entry's requirement strings or constraints are
// reported, since they indicate a broken manifest rather than a missing
// entry.
func (m *Manifest) Lookup(sample string) (*Entry, error) {
	raw, ok := m.entries[sample]
	if !ok {
		return &Entry{Sample: sample, App: "test_" + sample}, nil
	}
	return resolveEntry(sample, raw)
}

// Samples returns the names of all samples that have explicit manifest
// entries, sorted for deterministic driver ordering.
func (m *Manifest) Samples() []string {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SamplesFor returns the sorted names of manifest samples whose platform
// spec includes the given platform. Entries that fail to resolve are
// reported rather than silently dropped.
func (m *Manifest) SamplesFor(p model.Platform) ([]string, error) {
	var names []string
	for _, name := range m.Samples() {
		entry, err := m.Lookup(name)
		if err != nil {
			return nil, err
		}
		if entry.SupportedOn(p) {
			names = append(names, name)
		}
	}
	return names, nil
}

// resolveEntry converts a rawEntry into its normalized form.
func resolveEntry(sample string, raw rawEntry) (*Entry, error) {
	entry := &Entry{
		Sample:         sample,
		App:            raw.TestApp,
		Platforms:      normalizePlatforms(raw.Platform),
		ExtraIndexURLs: toStringSlice(raw.ExtraIndexURL),
		FindLinks:      toStringSlice(raw.FindLinks),
		GUI:            raw.GUI,
		Container:      raw.Container,
		Timeout:        raw.Timeout,
	}
	if entry.App == "" {
		entry.App = "test_" + sample
	}

	for _, reqStr := range raw.Requirements {
		req, err := ParseRequirement(reqStr)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", sample, err)
		}
		entry.Requirements = append(entry.Requirements, req)
	}

	if raw.PythonVersion != "" {
		c, err := semver.NewConstraint(raw.PythonVersion)
		if err != nil {
			return nil, fmt.Errorf("sample %q: invalid python_version %q: %w", sample, raw.PythonVersion, err)
		}
		entry.PythonConstraint = c
	}

	if raw.Action != "" {
		action, err := model.ParseFreezeAction(raw.Action)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", sample, err)
		}
		entry.Action = action
	}

	return entry, nil
}

// normalizePlatforms handles the string-or-array shape of the platform
// field, returning the slice form model.MatchPlatforms expects.
func normalizePlatforms(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return model.SplitPlatformSpec(t)
	case []interface{}:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, model.SplitPlatformSpec(s)...)
			}
		}
		return out
	default:
		return nil
	}
}

// toStringSlice normalizes a string-or-array JSON field into []string.
func toStringSlice(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
