package docker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

func validLabels() map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelSample:    "simple",
		LabelAction:    "build_exe",
		LabelCreatedAt: "2026-08-24T10:00:00Z",
	}
}

func TestBuildLabels(t *testing.T) {
	createdAt := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	labels := BuildLabels("tkinter", model.ActionBuildExe, createdAt)

	assert.Equal(t, ManagedByValue, labels[LabelManagedBy])
	assert.Equal(t, "tkinter", labels[LabelSample])
	assert.Equal(t, "build_exe", labels[LabelAction])
	assert.Equal(t, "2026-08-24T10:00:00Z", labels[LabelCreatedAt])
	assert.Len(t, labels, 4)
}

func TestBuildLabels_TimestampIsUTC(t *testing.T) {
	// A non-UTC creation time must still serialize as UTC.
	loc := time.FixedZone("JST", 9*3600)
	createdAt := time.Date(2026, 8, 24, 19, 0, 0, 0, loc)

	labels := BuildLabels("simple", model.ActionBuildExe, createdAt)
	assert.Equal(t, "2026-08-24T10:00:00Z", labels[LabelCreatedAt])
}

func TestParseLabels(t *testing.T) {
	info, err := ParseLabels(validLabels())
	require.NoError(t, err)

	assert.Equal(t, "simple", info.Sample)
	assert.Equal(t, model.ActionBuildExe, info.Action)
	assert.Equal(t, time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC), info.CreatedAt)
}

func TestParseLabels_MissingRequired(t *testing.T) {
	testCases := []struct {
		name       string
		missingKey string
	}{
		{"missing managed-by", LabelManagedBy},
		{"missing sample", LabelSample},
		{"missing action", LabelAction},
		{"missing created-at", LabelCreatedAt},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			labels := validLabels()
			delete(labels, tc.missingKey)

			_, err := ParseLabels(labels)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.missingKey)
		})
	}
}

func TestParseLabels_UnexpectedManagedBy(t *testing.T) {
	labels := validLabels()
	labels[LabelManagedBy] = "some-other-tool"

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected value")
}

func TestParseLabels_InvalidAction(t *testing.T) {
	labels := validLabels()
	labels[LabelAction] = "bdist_toaster"

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), LabelAction)
}

func TestParseLabels_InvalidCreatedAt(t *testing.T) {
	labels := validLabels()
	labels[LabelCreatedAt] = "not-a-timestamp"

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), LabelCreatedAt)
}

// Building labels and parsing them back must round-trip every field the
// clean command relies on.
func TestBuildAndParseLabelRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	labels := BuildLabels("pyside6", model.ActionBdistAppImage, createdAt)
	info, err := ParseLabels(labels)
	require.NoError(t, err)

	assert.Equal(t, "pyside6", info.Sample)
	assert.Equal(t, model.ActionBdistAppImage, info.Action)
	assert.Equal(t, createdAt, info.CreatedAt)
}

func TestFilterLabel(t *testing.T) {
	assert.Equal(t, "freezeci.managed-by=freezeci", FilterLabel())
}
