package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Platform tests ---

func TestParsePlatform_Valid(t *testing.T) {
	for _, name := range []string{"linux", "macos", "mingw", "windows"} {
		p, err := ParsePlatform(name)
		require.NoError(t, err, "platform %q should parse", name)
		assert.Equal(t, name, p.String())
		assert.True(t, p.IsValid())
	}
}

func TestParsePlatform_NormalizesCaseAndSpace(t *testing.T) {
	p, err := ParsePlatform("  Linux ")
	require.NoError(t, err)
	assert.Equal(t, PlatformLinux, p)
}

func TestParsePlatform_Invalid(t *testing.T) {
	_, err := ParsePlatform("freebsd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "freebsd")
}

func TestPlatform_IsWindowsLike(t *testing.T) {
	assert.True(t, PlatformWindows.IsWindowsLike())
	assert.True(t, PlatformMinGW.IsWindowsLike())
	assert.False(t, PlatformLinux.IsWindowsLike())
	assert.False(t, PlatformMacOS.IsWindowsLike())
}

// TestMatchPlatforms covers the inclusion/negation grammar of the manifest
// platform spec. The semantics: bare names select the allowed set, negated
// names subtract, empty spec means all platforms.
func TestMatchPlatforms(t *testing.T) {
	tests := []struct {
		name    string
		spec    []string
		current Platform
		want    bool
	}{
		{"empty spec matches linux", nil, PlatformLinux, true},
		{"empty spec matches windows", nil, PlatformWindows, true},
		{"positive match", []string{"linux"}, PlatformLinux, true},
		{"positive miss", []string{"linux"}, PlatformMacOS, false},
		{"multiple positives", []string{"linux", "macos"}, PlatformMacOS, true},
		{"negation excludes", []string{"!mingw"}, PlatformMinGW, false},
		{"negation keeps others", []string{"!mingw"}, PlatformWindows, true},
		{"positive plus negation", []string{"windows", "!mingw"}, PlatformWindows, true},
		{"negation wins over positive", []string{"mingw", "!mingw"}, PlatformMinGW, false},
		{"whitespace and case tolerated", []string{" Linux "}, PlatformLinux, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPlatforms(tt.spec, tt.current))
		})
	}
}

func TestSplitPlatformSpec(t *testing.T) {
	assert.Nil(t, SplitPlatformSpec(""))
	assert.Nil(t, SplitPlatformSpec("   "))
	assert.Equal(t, []string{"linux", "!mingw"}, SplitPlatformSpec("linux, !mingw"))
}

// --- EnvManager / FreezeAction tests ---

func TestParseEnvManager(t *testing.T) {
	m, err := ParseEnvManager("Conda")
	require.NoError(t, err)
	assert.Equal(t, ManagerConda, m)

	_, err = ParseEnvManager("pipx")
	require.Error(t, err)
}

func TestFreezeAction_SupportedOn(t *testing.T) {
	// build_exe is universal.
	for _, p := range []Platform{PlatformLinux, PlatformMacOS, PlatformMinGW, PlatformWindows} {
		assert.True(t, ActionBuildExe.SupportedOn(p), "build_exe on %s", p)
	}

	// bdist variants are platform-bound.
	assert.True(t, ActionBdistAppImage.SupportedOn(PlatformLinux))
	assert.False(t, ActionBdistAppImage.SupportedOn(PlatformMacOS))

	assert.True(t, ActionBdistMac.SupportedOn(PlatformMacOS))
	assert.False(t, ActionBdistMac.SupportedOn(PlatformLinux))

	assert.True(t, ActionBdistMSI.SupportedOn(PlatformWindows))
	assert.True(t, ActionBdistMSI.SupportedOn(PlatformMinGW))
	assert.False(t, ActionBdistMSI.SupportedOn(PlatformLinux))
}

func TestParseFreezeAction_Invalid(t *testing.T) {
	_, err := ParseFreezeAction("bdist_wheel")
	require.Error(t, err)
}

// --- Report tests ---

func TestSampleReport_FirstFailure(t *testing.T) {
	r := &SampleReport{Sample: "simple"}
	r.Append(StepReport{Step: StepInstall, ExitCode: 0, Duration: time.Second})
	r.Append(StepReport{Step: StepBuild, ExitCode: 0})
	r.Append(StepReport{Step: StepRun, ExitCode: 3})
	r.Append(StepReport{Step: StepContainerRun, ExitCode: 7})

	// The FIRST failing stage's code is propagated, not the last.
	assert.Equal(t, 3, r.FirstFailure())
	assert.False(t, r.OK())
}

func TestSampleReport_SkippedStepsAreOK(t *testing.T) {
	r := &SampleReport{Sample: "gui"}
	r.Append(StepReport{Step: StepBuild, ExitCode: 0})
	// A skipped container re-run carries a non-zero code field but must not
	// count as a failure.
	r.Append(StepReport{Step: StepContainerRun, ExitCode: -1, Skipped: true})

	assert.Equal(t, 0, r.FirstFailure())
	assert.True(t, r.OK())
}

// --- CLIError tests ---

func TestCLIError_ErrorAndUnwrap(t *testing.T) {
	base := assert.AnError
	err := WrapCLIError(ExitBuildFailed, "build failed for sample \"simple\"", base)

	assert.Contains(t, err.Error(), "build failed")
	assert.Contains(t, err.Error(), base.Error())
	assert.Equal(t, base, err.Unwrap())
	assert.Equal(t, ExitBuildFailed, err.Code)

	plain := NewCLIError(ExitSampleNotFound, "no such sample")
	assert.Equal(t, "no such sample", plain.Error())
	assert.Nil(t, plain.Unwrap())
}
