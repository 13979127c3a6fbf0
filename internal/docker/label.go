package docker

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

// Label key constants define the Docker label keys attached to every
// container the harness creates. The labels are the only persistence
// mechanism: the clean command discovers leftover containers purely by
// label, so a crashed run never leaves untrackable state behind.
//
// All keys share the "freezeci." prefix to avoid collisions with labels
// set by other tools on the same host.
const (
	// LabelPrefix is the common prefix for all harness labels.
	LabelPrefix = "freezeci."

	// LabelManagedBy identifies containers created by the harness.
	// Key: "freezeci.managed-by", value: always "freezeci".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelSample stores the sample name the container re-ran.
	// Key: "freezeci.sample", value: e.g. "simple".
	LabelSample = LabelPrefix + "sample"

	// LabelAction stores the freeze action whose output is mounted.
	// Key: "freezeci.action", value: e.g. "build_exe".
	LabelAction = LabelPrefix + "action"

	// LabelCreatedAt stores the RFC3339 timestamp of the re-run.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "freezeci"

// RunInfo describes a container re-run, reconstructed from labels.
type RunInfo struct {
	// Sample is the sample name the container belongs to.
	Sample string

	// Action is the freeze action whose artifact was re-run.
	Action model.FreezeAction

	// CreatedAt is when the re-run container was created.
	CreatedAt time.Time
}

// BuildLabels constructs the Docker label map applied to a re-run
// container. ParseLabels is the inverse.
func BuildLabels(sample string, action model.FreezeAction, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelSample:    sample,
		LabelAction:    action.String(),
		// UTC keeps the timestamps comparable regardless of the host
		// machine's timezone.
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels reconstructs a RunInfo from a container's label map.
//
// All harness labels are required. Missing labels are reported together
// so one inspection reveals everything that is wrong.
func ParseLabels(labels map[string]string) (*RunInfo, error) {
	requiredKeys := []string{
		LabelManagedBy,
		LabelSample,
		LabelAction,
		LabelCreatedAt,
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	action, err := model.ParseFreezeAction(labels[LabelAction])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelAction, err)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	return &RunInfo{
		Sample:    labels[LabelSample],
		Action:    action,
		CreatedAt: createdAt,
	}, nil
}

// FilterLabel returns the "key=value" filter expression that matches
// harness-managed containers in the Docker API's container listing.
func FilterLabel() string {
	return LabelManagedBy + "=" + ManagedByValue
}
