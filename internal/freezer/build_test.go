package freezer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

func TestBuildArgs(t *testing.T) {
	testCases := []struct {
		name     string
		action   model.FreezeAction
		opts     BuildOptions
		expected []string
	}{
		{
			"default is optimized",
			model.ActionBuildExe,
			BuildOptions{},
			[]string{"-O", "setup.py", "build_exe"},
		},
		{
			"quiet",
			model.ActionBuildExe,
			BuildOptions{Quiet: true},
			[]string{"-O", "setup.py", "build_exe", "--quiet"},
		},
		{
			"debug drops optimization and quiet",
			model.ActionBuildExe,
			BuildOptions{Quiet: true, Debug: true},
			[]string{"setup.py", "build_exe"},
		},
		{
			"bdist action",
			model.ActionBdistAppImage,
			BuildOptions{Quiet: true},
			[]string{"-O", "setup.py", "bdist_appimage", "--quiet"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, buildArgs(tc.action, tc.opts))
		})
	}
}

func TestBuild_MissingSetupScript(t *testing.T) {
	sample := t.TempDir()

	_, err := Build(context.Background(), linuxEnv("3.12.1"), sample, model.ActionBuildExe, BuildOptions{})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitBuildFailed, cliErr.Code)
	assert.Contains(t, cliErr.Message, sample)
}

func TestBuild_RunsSetupScript(t *testing.T) {
	sample := t.TempDir()
	// A fake interpreter that records its argument vector; the sample
	// needs a setup.py for the pre-flight check.
	script := writeExe(t, t.TempDir(), "python")
	writeExe(t, sample, "setup.py")

	env := linuxEnv("3.12.1")
	env.Python = script

	result, err := Build(context.Background(), env, sample, model.ActionBuildExe, BuildOptions{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, script+" -O setup.py build_exe --quiet", result.Command)
}
