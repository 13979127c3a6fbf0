// Package cli implements the cobra-based CLI commands for freezeci.
//
// Each subcommand (run, batch, install, list, clean) is defined in its
// own file within this package. This file defines the root command that
// serves as the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

// Global flag variables shared across all subcommands. They are bound
// to cobra persistent flags on the root command, which makes them
// available to every subcommand automatically.
var (
	// jsonOutput switches command output to JSON for machine consumption.
	jsonOutput bool

	// verbose enables detailed logging output and passes --verbose
	// through to pip.
	verbose bool

	// projectDir is the root of the project checkout being tested.
	projectDir string
)

// version, commit, and date are set at build time via ldflags and
// injected from the main package.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action — it only
// provides help text and global flags. Actual functionality lives in
// the subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "freezeci",
		Short: "Build and test harness for frozen Python applications",
		Long: `freezeci builds sample Python applications into frozen executables and
verifies that the executables actually run, on the host and optionally
inside a clean container.

The harness detects the active Python environment (venv, conda, MSYS2,
or a bare system interpreter), installs each sample's declared
requirements, invokes the packaging action, locates the produced
executable, and runs it. The first failing step decides the exit code.`,

		// Cobra's automatic usage/error printing is disabled; errors are
		// formatted by Execute (text or JSON depending on --json).
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "Project root directory")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewBatchCommand())
	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewCleanCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes. It inspects
// errors returned by cobra commands and translates them into OS exit
// codes: CLIError values carry their own code, anything else exits 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag. Errors go to stderr
// in both modes; stdout is reserved for successful command output.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// VerboseLog prints a message to stderr only when verbose mode is
// enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
