// Package main is the entry point for the freezeci CLI.
//
// The binary builds sample Python applications into frozen executables
// and verifies they run. It delegates all functionality to the
// internal/cli package, which defines cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags
// by GoReleaser during the release process. During development, they
// default to "dev", "none", and "unknown" respectively.
package main

import (
	"github.com/mmr-tortoise/freezeci/internal/cli"
)

// version, commit, and date are set by GoReleaser at build time via
// ldflags (see .goreleaser.yml).
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Inject build-time version info into the CLI package. This
	// decouples the build system (GoReleaser ldflags) from the CLI
	// framework, keeping main.go minimal.
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
