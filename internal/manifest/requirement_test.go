package manifest

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

func TestParseRequirement_PlainName(t *testing.T) {
	req, err := ParseRequirement("cx_Logging>=3.0")
	require.NoError(t, err)

	assert.Equal(t, "cx_Logging>=3.0", req.Name)
	assert.True(t, req.Plain())
	assert.Empty(t, req.PipArgs())
}

func TestParseRequirement_AllOptions(t *testing.T) {
	req, err := ParseRequirement("lief --conda=py-lief --no-deps --only-binary --pre --prefer-binary --upgrade")
	require.NoError(t, err)

	assert.Equal(t, "lief", req.Name)
	assert.True(t, req.CondaAliasSet)
	assert.Equal(t, "py-lief", req.CondaAlias)
	assert.True(t, req.NoDeps)
	assert.True(t, req.OnlyBinary)
	assert.True(t, req.Pre)
	assert.True(t, req.PreferBinary)
	assert.True(t, req.Upgrade)
	assert.False(t, req.Plain())

	assert.Equal(t,
		[]string{"--no-deps", "--only-binary=lief", "--pre", "--prefer-binary", "--upgrade"},
		req.PipArgs())
}

func TestParseRequirement_PlatformGate(t *testing.T) {
	req, err := ParseRequirement("pywin32 --platform=windows,mingw")
	require.NoError(t, err)

	assert.True(t, req.AppliesTo(model.PlatformWindows, nil))
	assert.True(t, req.AppliesTo(model.PlatformMinGW, nil))
	assert.False(t, req.AppliesTo(model.PlatformLinux, nil))
}

func TestParseRequirement_PythonVersionGate(t *testing.T) {
	req, err := ParseRequirement("numpy --python-version>=3.10")
	require.NoError(t, err)
	require.NotNil(t, req.PythonConstraint)

	assert.True(t, req.AppliesTo(model.PlatformLinux, semver.MustParse("3.12.1")))
	assert.False(t, req.AppliesTo(model.PlatformLinux, semver.MustParse("3.9.18")))
	// Unknown interpreter version fails closed on gated requirements.
	assert.False(t, req.AppliesTo(model.PlatformLinux, nil))
}

func TestParseRequirement_EmptyCondaAliasSkips(t *testing.T) {
	// "--conda=" with no value means: this requirement does not exist on
	// conda at all.
	req, err := ParseRequirement("some-pip-only-pkg --conda=")
	require.NoError(t, err)

	name, ok := req.NameFor(model.ManagerConda)
	assert.False(t, ok)
	assert.Empty(t, name)

	// Other managers still see the pip name.
	name, ok = req.NameFor(model.ManagerVenv)
	assert.True(t, ok)
	assert.Equal(t, "some-pip-only-pkg", name)
}

func TestParseRequirement_MingwAlias(t *testing.T) {
	req, err := ParseRequirement("Pillow --mingw=python-pillow")
	require.NoError(t, err)

	name, ok := req.NameFor(model.ManagerMinGW)
	assert.True(t, ok)
	assert.Equal(t, "python-pillow", name)
}

func TestParseRequirement_Errors(t *testing.T) {
	_, err := ParseRequirement("numpy --frobnicate")
	require.Error(t, err, "unknown options are rejected")

	_, err = ParseRequirement("numpy scipy")
	require.Error(t, err, "two package specs in one requirement are rejected")

	_, err = ParseRequirement("--no-deps")
	require.Error(t, err, "a requirement needs a package spec")

	_, err = ParseRequirement("numpy --python-version")
	require.Error(t, err, "empty version constraint is rejected")
}
