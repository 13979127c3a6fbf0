// Package cli — batch.go implements the "freezeci batch" command, the
// driver that runs the worker pipeline over many samples.
//
// Samples run sequentially: they share one Python environment and one
// display number range, and the interleaved output of parallel builds
// would make the CI log useless. Every sample runs even after failures;
// the exit code of the first failing sample becomes the process exit
// code once the summary has been printed.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/freezeci/internal/cilog"
	"github.com/mmr-tortoise/freezeci/internal/config"
	"github.com/mmr-tortoise/freezeci/internal/manifest"
	"github.com/mmr-tortoise/freezeci/internal/model"
	"github.com/mmr-tortoise/freezeci/internal/pyenv"
)

// NewBatchCommand creates the "batch" cobra command.
func NewBatchCommand() *cobra.Command {
	flags := &freezeFlags{}

	cmd := &cobra.Command{
		Use:   "batch [sample...]",
		Short: "Run the pipeline over many samples",
		Long: `Build and run a set of samples, then print a summary.

With no arguments, every manifest sample that supports the current
platform is run. With arguments, exactly the named samples are run.
All samples run even after a failure; the exit code is the first
failure's code.

Examples:
  freezeci batch
  freezeci batch simple tkinter pandas
  freezeci batch --develop --json`,

		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), args, flags)
		},
	}

	addFreezeFlags(cmd, flags)
	return cmd
}

// runBatch resolves the sample list, runs each sample's pipeline, and
// prints the summary.
func runBatch(ctx context.Context, args []string, flags *freezeFlags) error {
	samples := args
	if len(samples) == 0 {
		var err error
		samples, err = platformSamples(ctx)
		if err != nil {
			return err
		}
	}
	if len(samples) == 0 {
		fmt.Println("No samples to run on this platform.")
		return nil
	}

	log := cilog.New()
	var reports []*model.SampleReport
	var firstErr error

	for _, sample := range samples {
		start := time.Now()
		report, err := runSample(ctx, sample, flags, log)
		if report == nil {
			// The pipeline failed before producing a report (bad flags,
			// unknown sample). Synthesize one so the summary still shows
			// the sample.
			report = &model.SampleReport{Sample: sample}
			report.Append(model.StepReport{Step: model.StepInstall, ExitCode: exitCodeFromErr(err)})
		}
		reports = append(reports, report)

		if err != nil && firstErr == nil {
			firstErr = err
		}
		VerboseLog("sample %s finished in %s", sample, time.Since(start).Round(time.Millisecond))
	}

	printBatchSummary(reports)
	return firstErr
}

// platformSamples lists the manifest samples applicable to the current
// platform, in manifest order.
func platformSamples(ctx context.Context) ([]string, error) {
	cfg, err := config.LoadFromDir(projectDir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to load config", err)
	}

	env, err := pyenv.Detect(ctx)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(manifestPath(cfg))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to load manifest", err)
	}
	return m.SamplesFor(env.Platform)
}

// printBatchSummary reports the outcome of all samples in text or JSON
// form.
func printBatchSummary(reports []*model.SampleReport) {
	if IsJSONOutput() {
		type resultJSON struct {
			Samples []*model.SampleReport `json:"samples"`
		}
		data, _ := json.MarshalIndent(resultJSON{Samples: reports}, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("\n%-20s %-8s %s\n", "SAMPLE", "RESULT", "DETAIL")
	for _, r := range reports {
		fmt.Printf("%-20s %-8s %s\n", r.Sample, summaryVerdict(r), summaryDetail(r))
	}

	passed, failed, skipped := tallyReports(reports)
	fmt.Printf("\n%d passed, %d failed, %d skipped\n", passed, failed, skipped)
}

// summaryVerdict condenses a report into PASS, FAIL, or SKIP.
func summaryVerdict(r *model.SampleReport) string {
	switch {
	case r.SkippedPlatform:
		return "SKIP"
	case r.OK():
		return "PASS"
	default:
		return "FAIL"
	}
}

// summaryDetail names the failed step and its exit code, or the
// executable for passing samples.
func summaryDetail(r *model.SampleReport) string {
	if r.SkippedPlatform {
		return "not supported here"
	}
	for i := range r.Steps {
		if !r.Steps[i].OK() {
			return fmt.Sprintf("%s failed (exit %d)", r.Steps[i].Step, r.Steps[i].ExitCode)
		}
	}
	return r.Executable
}

// tallyReports counts pass/fail/skip outcomes for the summary footer.
func tallyReports(reports []*model.SampleReport) (passed, failed, skipped int) {
	for _, r := range reports {
		switch {
		case r.SkippedPlatform:
			skipped++
		case r.OK():
			passed++
		default:
			failed++
		}
	}
	return passed, failed, skipped
}
