// Package cli — list.go implements the "freezeci list" command.
//
// The list command enumerates samples from two sources: directories in
// the samples directory, and explicit manifest entries. The union is
// shown because both halves matter — a sample directory with no
// manifest entry is still runnable via the default entry, and a
// manifest entry whose directory is missing is a misconfiguration
// worth seeing.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/freezeci/internal/config"
	"github.com/mmr-tortoise/freezeci/internal/manifest"
	"github.com/mmr-tortoise/freezeci/internal/model"
	"github.com/mmr-tortoise/freezeci/internal/pyenv"
)

// NewListCommand creates the "list" cobra command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List samples and their manifest configuration",
		Long: `List all samples with their test application name, whether the
current platform is supported, and the GUI/container flags.

Examples:
  freezeci list
  freezeci list --json`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context())
		},
	}

	return cmd
}

// sampleInfo is one row of the list output.
type sampleInfo struct {
	Sample    string `json:"sample"`
	App       string `json:"app"`
	Supported bool   `json:"supported"`
	GUI       bool   `json:"gui,omitempty"`
	Container bool   `json:"container,omitempty"`

	// Missing marks manifest entries whose sample directory does not
	// exist.
	Missing bool `json:"missing,omitempty"`
}

// runList gathers the sample union and prints it.
func runList(ctx context.Context) error {
	cfg, err := config.LoadFromDir(projectDir)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to load config", err)
	}

	env, err := pyenv.Detect(ctx)
	if err != nil {
		return err
	}

	m, err := manifest.Load(manifestPath(cfg))
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to load manifest", err)
	}

	samplesDir := filepath.Join(projectDir, cfg.SamplesDir)
	names := sampleUnion(samplesDir, m.Samples())

	infos := make([]sampleInfo, 0, len(names))
	for _, name := range names {
		entry, err := m.Lookup(name)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "invalid manifest entry", err)
		}

		dirInfo, statErr := os.Stat(filepath.Join(samplesDir, name))
		missing := statErr != nil || !dirInfo.IsDir()

		infos = append(infos, sampleInfo{
			Sample:    name,
			App:       entry.App,
			Supported: entry.SupportedOn(env.Platform) && entry.SupportsPython(env.Version),
			GUI:       entry.GUI,
			Container: entry.Container,
			Missing:   missing,
		})
	}

	printSampleList(infos)
	return nil
}

// sampleUnion merges sample directory names with manifest entry names,
// sorted and deduplicated.
func sampleUnion(samplesDir string, manifestNames []string) []string {
	seen := make(map[string]bool)
	var names []string

	entries, _ := os.ReadDir(samplesDir)
	for _, e := range entries {
		if e.IsDir() {
			seen[e.Name()] = true
			names = append(names, e.Name())
		}
	}
	for _, name := range manifestNames {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names
}

// printSampleList outputs the sample table in text or JSON format.
func printSampleList(infos []sampleInfo) {
	if IsJSONOutput() {
		type resultJSON struct {
			Samples []sampleInfo `json:"samples"`
		}
		data, _ := json.MarshalIndent(resultJSON{Samples: infos}, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(infos) == 0 {
		fmt.Println("No samples found.")
		return
	}

	fmt.Printf("%-20s %-20s %-10s %s\n", "SAMPLE", "APP", "SUPPORTED", "FLAGS")
	for _, info := range infos {
		fmt.Printf("%-20s %-20s %-10s %s\n",
			info.Sample, info.App, yesNo(info.Supported), FormatFlags(info))
	}
}

// yesNo renders a boolean for the text table.
func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// FormatFlags condenses a sample's boolean attributes into a short
// comma-separated string for the text table. Returns "-" when no flags
// apply.
//
// Exported for testing (see list_test.go).
func FormatFlags(info sampleInfo) string {
	var flags []string
	if info.GUI {
		flags = append(flags, "gui")
	}
	if info.Container {
		flags = append(flags, "container")
	}
	if info.Missing {
		flags = append(flags, "missing-dir")
	}
	if len(flags) == 0 {
		return "-"
	}
	result := flags[0]
	for _, f := range flags[1:] {
		result += "," + f
	}
	return result
}
