// Package cli — run.go implements the "freezeci run" command, the
// per-sample worker pipeline.
//
// The pipeline for one sample is:
//
//	detect environment → manifest lookup → platform/version gate →
//	install requirements → build → locate executable →
//	(virtual display) → run → (container re-run)
//
// Gated-out samples exit 0: a sample declared for another platform is a
// skip, not a failure. Every other step failure stops the pipeline and
// the step's exit code class becomes the process exit code.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/freezeci/internal/cilog"
	"github.com/mmr-tortoise/freezeci/internal/config"
	"github.com/mmr-tortoise/freezeci/internal/display"
	"github.com/mmr-tortoise/freezeci/internal/docker"
	"github.com/mmr-tortoise/freezeci/internal/freezer"
	"github.com/mmr-tortoise/freezeci/internal/manifest"
	"github.com/mmr-tortoise/freezeci/internal/model"
	"github.com/mmr-tortoise/freezeci/internal/pyenv"
	"github.com/mmr-tortoise/freezeci/internal/runner"
)

// freezeFlags holds the flag values shared by the run and batch
// commands.
type freezeFlags struct {
	// develop, editable, latest select how the packaging tool itself is
	// installed before building. At most one may be set.
	develop  bool
	editable bool
	latest   bool

	// action overrides the packaging action (build_exe, bdist_appimage,
	// bdist_mac, bdist_msi). Empty falls back to FREEZECI_ACTION, then
	// build_exe.
	action string

	// freezerPkg is the distribution name of the packaging tool, used
	// by --latest.
	freezerPkg string

	// debug disables --quiet on the build for diagnosing broken
	// freezes.
	debug bool

	// envManager asserts which environment manager the harness must be
	// running under (venv, conda, mingw, system). Empty accepts any.
	envManager string

	// allowSystem permits installing into a bare system interpreter
	// instead of creating a venv.
	allowSystem bool

	// noContainer disables the container re-run even for samples that
	// request it.
	noContainer bool
}

// addFreezeFlags registers the shared pipeline flags on a command.
func addFreezeFlags(cmd *cobra.Command, flags *freezeFlags) {
	cmd.Flags().BoolVar(&flags.develop, "develop", false, "Install the packaging tool from the project checkout (editable)")
	cmd.Flags().BoolVar(&flags.editable, "editable", false, "Like --develop but without dependency resolution")
	cmd.Flags().BoolVar(&flags.latest, "latest", false, "Install the latest released packaging tool first")
	cmd.Flags().StringVar(&flags.action, "action", "", "Packaging action (default: $FREEZECI_ACTION or build_exe)")
	cmd.Flags().StringVar(&flags.freezerPkg, "freezer", "cx_Freeze", "Distribution name of the packaging tool")
	cmd.Flags().StringVar(&flags.envManager, "env", "", "Require a specific environment manager (venv, conda, mingw, system)")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Keep full build output")
	cmd.Flags().BoolVar(&flags.allowSystem, "allow-system", false, "Install into the system interpreter instead of a venv")
	cmd.Flags().BoolVar(&flags.noContainer, "no-container", false, "Skip the container re-run step")
}

// installMode resolves the tool install flags into a single mode,
// rejecting contradictory combinations.
func (f *freezeFlags) installMode() (pyenv.InstallMode, error) {
	set := 0
	mode := pyenv.ModeDefault
	if f.develop {
		set++
		mode = pyenv.ModeDevelop
	}
	if f.editable {
		set++
		mode = pyenv.ModeEditable
	}
	if f.latest {
		set++
		mode = pyenv.ModeLatest
	}
	if set > 1 {
		return "", model.NewCLIError(model.ExitGeneralError,
			"--develop, --editable and --latest are mutually exclusive")
	}
	return mode, nil
}

// resolveAction picks the packaging action: the --action flag wins,
// then the FREEZECI_ACTION environment variable, then build_exe.
// Per-sample manifest overrides are applied later, in runSample.
func (f *freezeFlags) resolveAction() (model.FreezeAction, error) {
	s := f.action
	if s == "" {
		s = os.Getenv("FREEZECI_ACTION")
	}
	if s == "" {
		return model.ActionBuildExe, nil
	}
	return model.ParseFreezeAction(s)
}

// NewRunCommand creates the "run" cobra command.
func NewRunCommand() *cobra.Command {
	flags := &freezeFlags{}

	cmd := &cobra.Command{
		Use:   "run <sample>",
		Short: "Build one sample and run the frozen executable",
		Long: `Build a single sample into a frozen executable and run it.

The sample's manifest entry (ci/build-test.json) controls extra
requirements, platform gating, GUI handling, and the container re-run.
A sample gated to another platform exits 0.

Examples:
  freezeci run simple
  freezeci run tkinter --develop
  freezeci run pandas --action build_exe --verbose`,

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runSample(cmd.Context(), args[0], flags, cilog.New())
			if err != nil {
				return err
			}
			printRunResult(report)
			return nil
		},
	}

	addFreezeFlags(cmd, flags)
	return cmd
}

// runSample executes the full worker pipeline for one sample and
// returns its report. The report is populated even on failure so the
// batch driver can include failed samples in its summary.
func runSample(ctx context.Context, sample string, flags *freezeFlags, log *cilog.Logger) (*model.SampleReport, error) {
	mode, err := flags.installMode()
	if err != nil {
		return nil, err
	}
	action, err := flags.resolveAction()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "invalid action", err)
	}

	cfg, err := config.LoadFromDir(projectDir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to load config", err)
	}

	sampleDir := filepath.Join(projectDir, cfg.SamplesDir, sample)
	if info, err := os.Stat(sampleDir); err != nil || !info.IsDir() {
		return nil, model.NewCLIError(
			model.ExitSampleNotFound,
			fmt.Sprintf("sample %q not found at %s", sample, sampleDir),
		)
	}

	entry, err := lookupEntry(cfg, sample)
	if err != nil {
		return nil, err
	}
	if entry.Action != "" {
		action = entry.Action
	}

	report := &model.SampleReport{
		Sample: sample,
		App:    entry.App,
		Action: action,
	}

	// Environment detection and isolation.
	log.Group("prepare environment")
	base, err := pyenv.Detect(ctx)
	if err != nil {
		log.EndGroup()
		return report, err
	}
	report.Platform = base.Platform

	if err := checkEnvManager(flags, base); err != nil {
		log.EndGroup()
		return report, err
	}

	env, err := pyenv.EnsureVenv(ctx, base, filepath.Join(projectDir, "build", "venv"), flags.allowSystem)
	if err != nil {
		log.EndGroup()
		return report, err
	}
	log.Printf("interpreter: %s (%s, %s)\n", env.Python, env.Manager, env.Platform)
	log.EndGroup()

	// Gating. A sample that does not apply here is a skip, not a
	// failure: the same manifest drives every platform in the CI
	// matrix, and each platform runs only its share.
	if !entry.SupportedOn(env.Platform) {
		log.Notice("sample %q is not supported on %s, skipping", sample, env.Platform)
		report.SkippedPlatform = true
		return report, nil
	}
	if !entry.SupportsPython(env.Version) {
		log.Notice("sample %q requires python %s, skipping", sample, entry.PythonConstraint)
		report.SkippedPlatform = true
		return report, nil
	}
	if !action.SupportedOn(env.Platform) {
		log.Notice("action %s is not supported on %s, skipping %q", action, env.Platform, sample)
		report.SkippedPlatform = true
		return report, nil
	}

	// Install step.
	log.Group(fmt.Sprintf("install requirements for %s", sample))
	start := time.Now()
	installErr := installStep(ctx, env, entry, mode, flags)
	report.Append(model.StepReport{
		Step:     model.StepInstall,
		ExitCode: exitCodeFromErr(installErr),
		Duration: time.Since(start),
	})
	log.EndGroup()
	if installErr != nil {
		log.Error("install failed for sample %q", sample)
		return report, installErr
	}

	// Build step.
	log.Group(fmt.Sprintf("build %s (%s)", sample, action))
	buildResult, buildErr := freezer.Build(ctx, env, sampleDir, action, freezer.BuildOptions{
		Quiet: !verbose,
		Debug: flags.debug,
	})
	step := model.StepReport{Step: model.StepBuild}
	if buildResult != nil {
		step.Command = buildResult.Command
		step.ExitCode = buildResult.ExitCode
		step.Output = buildResult.Output
		log.Printf("%s\n", buildResult.Output)
	} else {
		step.ExitCode = exitCodeFromErr(buildErr)
	}
	report.Append(step)
	log.EndGroup()
	if buildErr != nil {
		log.Error("build failed for sample %q", sample)
		return report, buildErr
	}

	exe, err := freezer.LocateExecutable(sampleDir, entry.App, action, env)
	if err != nil {
		// Locating nothing is a build defect: the packaging command
		// claimed success but produced no artifact.
		report.Append(model.StepReport{Step: model.StepBuild, ExitCode: int(model.ExitBuildFailed)})
		log.Error("no executable produced for sample %q", sample)
		return report, err
	}
	report.Executable = exe.Path
	VerboseLog("located executable at %s", exe.Path)

	// Run step, behind a virtual display for headless GUI samples.
	displayEnv := ""
	if entry.GUI && env.Platform == model.PlatformLinux && os.Getenv("DISPLAY") == "" {
		srv, err := display.Start(ctx, display.NewScanner(), cfg.DisplayGeometry)
		if err != nil {
			report.Append(model.StepReport{Step: model.StepRun, ExitCode: int(model.ExitDisplayFailed)})
			return report, err
		}
		defer func() { _ = srv.Stop() }()
		displayEnv = srv.DisplayEnv()
		VerboseLog("started virtual display %s", displayEnv)
	}

	timeout := cfg.RunTimeout
	if entry.Timeout > 0 {
		timeout = time.Duration(entry.Timeout) * time.Second
	}

	log.Group(fmt.Sprintf("run %s", entry.App))
	runResult, runErr := runner.Run(ctx, exe, entry.App, runner.Options{
		Timeout: timeout,
		Display: displayEnv,
	})
	log.Printf("%s\n", runResult.Output)
	for name, content := range runResult.LogFiles {
		log.Printf("--- %s ---\n%s\n", name, content)
	}
	report.Append(model.StepReport{
		Step:     model.StepRun,
		Command:  runResult.Command,
		ExitCode: runResult.ExitCode,
		Duration: runResult.Duration,
		Output:   runResult.Output,
	})
	log.EndGroup()
	if runErr != nil {
		log.Error("run failed for sample %q", sample)
		return report, runErr
	}

	// Container re-run, Linux only and never nested.
	if entry.Container && !flags.noContainer {
		if env.Platform != model.PlatformLinux || env.InContainer {
			report.Append(model.StepReport{Step: model.StepContainerRun, Skipped: true})
		} else {
			log.Group(fmt.Sprintf("container re-run %s", entry.App))
			rerunErr := containerStep(ctx, cfg, sample, action, exe, entry.App, timeout, report, log)
			log.EndGroup()
			if rerunErr != nil {
				log.Error("container re-run failed for sample %q", sample)
				return report, rerunErr
			}
		}
	}

	return report, nil
}

// installStep installs the packaging tool (per install mode) and then
// the sample's applicable requirements.
func installStep(ctx context.Context, env *pyenv.Env, entry *manifest.Entry, mode pyenv.InstallMode, flags *freezeFlags) error {
	installer := pyenv.NewInstaller(env, verbose)

	if err := installer.InstallFreezer(ctx, mode, projectDir, flags.freezerPkg); err != nil {
		return err
	}

	installed, err := installer.InstallRequirements(ctx, entry)
	if err != nil {
		return err
	}
	for _, name := range installed {
		VerboseLog("installed %s", name)
	}
	return nil
}

// containerStep verifies the daemon is up and re-runs the frozen
// executable inside a clean container image.
func containerStep(ctx context.Context, cfg *config.Config, sample string, action model.FreezeAction, exe *freezer.Executable, app string, timeout time.Duration, report *model.SampleReport, log *cilog.Logger) error {
	cli, err := docker.NewClient()
	if err != nil {
		report.Append(model.StepReport{Step: model.StepContainerRun, ExitCode: int(model.ExitDockerNotRunning)})
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		report.Append(model.StepReport{Step: model.StepContainerRun, ExitCode: int(model.ExitDockerNotRunning)})
		return err
	}

	result, rerunErr := docker.RerunFrozen(ctx, docker.RerunOptions{
		Image:   cfg.ContainerImage,
		Sample:  sample,
		Action:  action,
		ExeDir:  exe.Dir,
		ExeName: filepath.Base(exe.Path),
		Timeout: timeout,
	})
	log.Printf("%s\n", result.Output)
	report.Append(model.StepReport{
		Step:     model.StepContainerRun,
		Command:  result.Command,
		ExitCode: result.ExitCode,
		Output:   result.Output,
	})
	return rerunErr
}

// checkEnvManager enforces an explicit --env expectation against the
// detected environment. CI matrix jobs use this to fail fast when the
// job's activation step silently did nothing (e.g. conda requested but
// CONDA_PREFIX never set) instead of testing the wrong interpreter.
func checkEnvManager(flags *freezeFlags, env *pyenv.Env) error {
	if flags.envManager == "" {
		return nil
	}
	want, err := model.ParseEnvManager(flags.envManager)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid --env", err)
	}
	if env.Manager != want {
		return model.NewCLIError(
			model.ExitEnvSetupFailed,
			fmt.Sprintf("expected a %s environment, detected %s", want, env.Manager),
		)
	}
	return nil
}

// manifestPath resolves the manifest location: an explicit
// manifest_path from the config (relative to the project root) wins
// over the standard search.
func manifestPath(cfg *config.Config) string {
	if cfg.ManifestPath != "" {
		return filepath.Join(projectDir, cfg.ManifestPath)
	}
	return manifest.Find(projectDir)
}

// lookupEntry loads the manifest and resolves the sample's entry.
func lookupEntry(cfg *config.Config, sample string) (*manifest.Entry, error) {
	m, err := manifest.Load(manifestPath(cfg))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to load manifest", err)
	}
	entry, err := m.Lookup(sample)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "invalid manifest entry", err)
	}
	return entry, nil
}

// exitCodeFromErr maps a step error to the exit code recorded in the
// report: CLIError codes pass through, anything else is a general
// failure, nil is success.
func exitCodeFromErr(err error) int {
	if err == nil {
		return 0
	}
	if cliErr, ok := err.(*model.CLIError); ok {
		return int(cliErr.Code)
	}
	return int(model.ExitGeneralError)
}

// printRunResult reports the outcome of a single-sample run in text or
// JSON form.
func printRunResult(report *model.SampleReport) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
		return
	}

	if report.SkippedPlatform {
		fmt.Printf("SKIP %s\n", report.Sample)
		return
	}
	fmt.Printf("PASS %s (%s)\n", report.Sample, report.Executable)
}
