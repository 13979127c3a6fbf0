// Package cli — clean.go implements the "freezeci clean" command.
//
// Container re-runs use --rm, so under normal operation nothing is
// left behind. Crashed runs are another matter: a killed harness can
// leave labeled containers on the host, and on shared CI runners those
// accumulate. Clean finds every container carrying the harness label
// and removes it.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/freezeci/internal/docker"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	// dryRun lists what would be removed without removing anything.
	dryRun bool
}

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover harness containers",
		Long: `Remove all Docker containers created by the harness, running or not.

Containers are discovered by the freezeci.managed-by label, so only
harness containers are touched.

Examples:
  freezeci clean
  freezeci clean --dry-run`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List containers without removing them")
	return cmd
}

// runClean discovers and removes harness containers.
func runClean(ctx context.Context, flags *cleanFlags) error {
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}

	containers, err := docker.ListHarnessContainers(ctx, cli)
	if err != nil {
		return err
	}

	if !flags.dryRun {
		for _, c := range containers {
			// Force removal: a stuck container is exactly what clean is
			// for.
			if err := docker.RemoveContainer(ctx, cli, c.ID, true); err != nil {
				return err
			}
			VerboseLog("removed container %s (%s)", c.Name, c.ID)
		}
	}

	printCleanResult(containers, flags.dryRun)
	return nil
}

// printCleanResult reports the removed (or listed) containers.
func printCleanResult(containers []docker.ContainerInfo, dryRun bool) {
	if IsJSONOutput() {
		type containerJSON struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			State  string `json:"state"`
			Sample string `json:"sample,omitempty"`
		}
		type resultJSON struct {
			DryRun     bool            `json:"dryRun"`
			Containers []containerJSON `json:"containers"`
		}

		result := resultJSON{
			DryRun:     dryRun,
			Containers: make([]containerJSON, 0, len(containers)),
		}
		for _, c := range containers {
			entry := containerJSON{ID: c.ID, Name: c.Name, State: c.State}
			if c.Info != nil {
				entry.Sample = c.Info.Sample
			}
			result.Containers = append(result.Containers, entry)
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(containers) == 0 {
		fmt.Println("No harness containers found.")
		return
	}

	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	for _, c := range containers {
		sample := "?"
		if c.Info != nil {
			sample = c.Info.Sample
		}
		fmt.Printf("%s %s (sample %s, %s)\n", verb, c.Name, sample, c.State)
	}
	fmt.Printf("%d container(s)\n", len(containers))
}
