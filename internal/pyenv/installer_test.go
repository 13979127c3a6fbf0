package pyenv

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

func TestPacmanCandidates_SimpleName(t *testing.T) {
	got := PacmanCandidates("cython", "mingw-w64-ucrt-x86_64")
	assert.Equal(t, []string{
		"mingw-w64-ucrt-x86_64-python-cython",
		"mingw-w64-ucrt-x86_64-cython",
	}, got)
}

func TestPacmanCandidates_MixedCase(t *testing.T) {
	got := PacmanCandidates("Pillow", "")
	// Original casing first, then lowercased variants, no duplicates.
	assert.Equal(t, []string{
		"python-Pillow",
		"Pillow",
		"python-pillow",
		"pillow",
	}, got)
}

func TestPacmanCandidates_UnderscoreSwap(t *testing.T) {
	got := PacmanCandidates("cx_Logging", "")
	assert.Contains(t, got, "python-cx-logging")
	assert.Contains(t, got, "python-cx_Logging")
}

func TestPacmanCandidates_StripsVersionSpec(t *testing.T) {
	got := PacmanCandidates("numpy>=1.26", "pfx")
	assert.Equal(t, []string{"pfx-python-numpy", "pfx-numpy"}, got)
}

func TestPipBaseArgs(t *testing.T) {
	i := &Installer{env: &Env{Platform: model.PlatformLinux}}

	args := i.pipBaseArgs(
		[]string{"https://idx.example.org/simple"},
		[]string{"https://wheels.example.org/"},
	)
	assert.Equal(t, []string{
		"-m", "pip", "install",
		"--extra-index-url=https://idx.example.org/simple",
		"--find-links=https://wheels.example.org/",
	}, args)
}

func TestPipBaseArgs_Verbose(t *testing.T) {
	i := &Installer{env: &Env{Platform: model.PlatformLinux}, verbose: true}
	args := i.pipBaseArgs(nil, nil)
	assert.Equal(t, []string{"-m", "pip", "install", "--verbose"}, args)
}
