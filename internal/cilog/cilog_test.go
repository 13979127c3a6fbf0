package cilog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroup_CIMode(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, true)

	log.Group("build sample")
	log.Printf("building\n")
	log.EndGroup()

	assert.Equal(t, "::group::build sample\nbuilding\n::endgroup::\n", buf.String())
}

func TestGroup_PlainMode(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, false)

	log.Group("build sample")
	log.EndGroup()

	assert.Equal(t, "=== build sample ===\n\n", buf.String())
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, true).Error("sample %s failed", "tkinter")
	assert.Equal(t, "::error::sample tkinter failed\n", buf.String())

	buf.Reset()
	NewWithWriter(&buf, false).Error("sample %s failed", "tkinter")
	assert.Equal(t, "ERROR: sample tkinter failed\n", buf.String())
}

func TestNotice(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, true).Notice("skipping %s", "pandas")
	assert.Equal(t, "::notice::skipping pandas\n", buf.String())
}

func TestSanitize_StripsNewlines(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, true).Error("line one\nline two\r\nline three")
	assert.Equal(t, "::error::line one line two line three\n", buf.String())
}
