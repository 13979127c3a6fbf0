// Package cli — install.go implements the "freezeci install" command.
//
// Install prepares the environment without building anything. With no
// sample it installs the base requirements: a pip/setuptools bootstrap
// plus the build-system and project dependencies read from the
// project's pyproject.toml. With a sample it installs that sample's
// applicable requirements. The packaging tool itself is installed when
// one of --develop/--editable/--latest is given. The run and batch
// commands do the per-sample work implicitly; the separate command
// exists so CI can split environment preparation into its own cached
// workflow step.
package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/freezeci/internal/config"
	"github.com/mmr-tortoise/freezeci/internal/model"
	"github.com/mmr-tortoise/freezeci/internal/pyenv"
)

// NewInstallCommand creates the "install" cobra command.
func NewInstallCommand() *cobra.Command {
	flags := &freezeFlags{}

	cmd := &cobra.Command{
		Use:   "install [sample]",
		Short: "Install base or sample requirements into the environment",
		Long: `Install requirements into the detected environment.

Without a sample, the base requirements are installed: pip and
setuptools are upgraded and the build-system and project dependencies
from the project's pyproject.toml are installed. With a sample, that
sample's applicable requirements are installed instead.

The packaging tool itself is installed only when one of --develop,
--editable, or --latest is given.

Examples:
  freezeci install
  freezeci install --develop
  freezeci install pandas`,

		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sample := ""
			if len(args) == 1 {
				sample = args[0]
			}
			return runInstall(cmd.Context(), sample, flags)
		},
	}

	addFreezeFlags(cmd, flags)
	return cmd
}

// runInstall performs environment detection, the optional tool install,
// and either the base-requirements or the per-sample requirement
// install.
func runInstall(ctx context.Context, sample string, flags *freezeFlags) error {
	mode, err := flags.installMode()
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromDir(projectDir)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to load config", err)
	}

	base, err := pyenv.Detect(ctx)
	if err != nil {
		return err
	}
	if err := checkEnvManager(flags, base); err != nil {
		return err
	}
	env, err := pyenv.EnsureVenv(ctx, base, filepath.Join(projectDir, "build", "venv"), flags.allowSystem)
	if err != nil {
		return err
	}
	VerboseLog("interpreter: %s (%s)", env.Python, env.Manager)

	installer := pyenv.NewInstaller(env, verbose)
	if mode != pyenv.ModeDefault {
		if err := installer.InstallFreezer(ctx, mode, projectDir, flags.freezerPkg); err != nil {
			return err
		}
		fmt.Printf("Installed packaging tool (%s mode)\n", mode)
	}

	if sample == "" {
		installed, err := installer.InstallBase(ctx, projectDir)
		if err != nil {
			return err
		}
		for _, name := range installed {
			fmt.Printf("Installed %s\n", name)
		}
		return nil
	}

	entry, err := lookupEntry(cfg, sample)
	if err != nil {
		return err
	}
	installed, err := installer.InstallRequirements(ctx, entry)
	if err != nil {
		return err
	}
	if len(installed) == 0 {
		fmt.Printf("Sample %q has no applicable requirements\n", sample)
		return nil
	}
	for _, name := range installed {
		fmt.Printf("Installed %s\n", name)
	}
	return nil
}
