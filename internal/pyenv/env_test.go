package pyenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePythonVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3.12.1", "3.12.1"},
		{"3.12", "3.12.0"},
		{"3.14.0rc2", "3.14.0"},
		{"3.11.9+", "3.11.9"},
		{" 3.10.0\n", "3.10.0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v := ParsePythonVersion(tt.in)
			require.NotNil(t, v, "version %q should parse", tt.in)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestParsePythonVersion_Unparseable(t *testing.T) {
	assert.Nil(t, ParsePythonVersion(""))
	assert.Nil(t, ParsePythonVersion("not-a-version"))
	assert.Nil(t, ParsePythonVersion("python 3"))
}

func TestEnv_ShortVersion(t *testing.T) {
	env := &Env{Version: ParsePythonVersion("3.12.1")}
	assert.Equal(t, "3.12", env.ShortVersion())

	empty := &Env{}
	assert.Equal(t, "", empty.ShortVersion())
}
