package model

import (
	"time"
)

// StepName identifies one stage of the per-sample pipeline.
type StepName string

const (
	// StepInstall covers environment preparation and dependency install.
	StepInstall StepName = "install"

	// StepBuild covers the packaging command invocation.
	StepBuild StepName = "build"

	// StepRun covers executing the frozen binary on the host.
	StepRun StepName = "run"

	// StepContainerRun covers the optional re-run inside a container.
	StepContainerRun StepName = "container-run"
)

// StepReport records the outcome of a single pipeline stage. The harness
// keeps these purely for reporting — there is no retry or recovery logic,
// so a report is written once and never mutated afterwards.
type StepReport struct {
	// Step names the pipeline stage.
	Step StepName `json:"step"`

	// Command is the rendered command line, for log output.
	Command string `json:"command,omitempty"`

	// ExitCode is the child process exit code (0 on success).
	ExitCode int `json:"exitCode"`

	// Duration is the wall-clock time the stage took.
	Duration time.Duration `json:"duration"`

	// Output holds the captured combined stdout/stderr of the stage.
	// Empty for stages that stream directly to the terminal.
	Output string `json:"output,omitempty"`

	// Skipped marks stages the pipeline decided not to run (e.g. the
	// container re-run on non-Linux platforms).
	Skipped bool `json:"skipped,omitempty"`
}

// OK reports whether the stage succeeded. Skipped stages count as OK
// because they do not contribute a failure exit code.
func (s *StepReport) OK() bool {
	return s.Skipped || s.ExitCode == 0
}

// SampleReport aggregates the stage reports of one sample pipeline run.
// The driver collects one of these per sample to build its summary.
type SampleReport struct {
	// Sample is the sample directory name.
	Sample string `json:"sample"`

	// App is the resolved test application name from the manifest.
	App string `json:"app"`

	// Platform is the platform the pipeline ran on.
	Platform Platform `json:"platform"`

	// Action is the packaging action that was invoked.
	Action FreezeAction `json:"action"`

	// Executable is the located frozen executable path (empty when the
	// build failed before location).
	Executable string `json:"executable,omitempty"`

	// Steps holds the per-stage outcomes in execution order.
	Steps []StepReport `json:"steps"`

	// SkippedPlatform is true when the sample's platform spec excluded the
	// current platform and the pipeline never started.
	SkippedPlatform bool `json:"skippedPlatform,omitempty"`
}

// Append records a stage outcome.
func (r *SampleReport) Append(step StepReport) {
	r.Steps = append(r.Steps, step)
}

// FirstFailure returns the exit code of the first failed stage, or 0 when
// every stage succeeded. This is the "propagate the first non-zero exit
// code" contract of the harness.
func (r *SampleReport) FirstFailure() int {
	for i := range r.Steps {
		if !r.Steps[i].OK() {
			return r.Steps[i].ExitCode
		}
	}
	return 0
}

// OK reports whether the whole sample pipeline passed.
func (r *SampleReport) OK() bool {
	return r.FirstFailure() == 0
}
