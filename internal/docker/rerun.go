package docker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

// RerunOptions configures a container re-run of a frozen executable.
type RerunOptions struct {
	// Image is the container image to run inside. It should be a bare
	// base image so missing-library problems surface.
	Image string

	// Sample is the sample name, recorded in the container labels.
	Sample string

	// Action is the freeze action that produced the artifact.
	Action model.FreezeAction

	// ExeDir is the host directory containing the frozen executable.
	// It is bind-mounted read-only into the container.
	ExeDir string

	// ExeName is the executable file name inside ExeDir.
	ExeName string

	// Timeout bounds the container run. Zero means no timeout.
	Timeout time.Duration
}

// mountPoint is where the build output appears inside the container.
const mountPoint = "/frozen"

// RerunResult is the outcome of a container re-run.
type RerunResult struct {
	// Command is the docker invocation, for log output.
	Command string

	// Output is the combined stdout and stderr of the container.
	Output string

	// ExitCode is the frozen executable's exit code inside the
	// container. Zero on success.
	ExitCode int
}

// RerunFrozen runs a frozen executable inside a clean container.
//
// The invocation shells out to "docker run --rm" rather than using the
// SDK's ContainerCreate/Start/Wait sequence: streaming output and exit
// code handling come for free, and --rm guarantees cleanup even when
// the harness process dies mid-run. Labels are still applied so the
// clean command can find containers that outlived a --rm failure.
//
// A non-zero exit of the executable is reported as a model.CLIError
// with ExitRunFailed; docker-level failures (image pull, daemon gone)
// map to ExitDockerNotRunning. The RerunResult is returned in both
// cases so callers can log the output.
func RerunFrozen(ctx context.Context, opts RerunOptions) (*RerunResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	args := []string{"run", "--rm"}
	for key, value := range BuildLabels(opts.Sample, opts.Action, time.Now()) {
		args = append(args, "--label", key+"="+value)
	}
	args = append(args,
		"-v", opts.ExeDir+":"+mountPoint+":ro",
		"-w", mountPoint,
		opts.Image,
		"./"+opts.ExeName,
	)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()

	result := &RerunResult{
		Command: "docker " + strings.Join(args, " "),
		Output:  string(output),
	}

	if err == nil {
		return result, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		// docker run propagates the container process's exit code, so a
		// non-zero status here is the frozen executable failing. Docker's
		// own failures use codes 125-127, which still read as a failed
		// run of the artifact.
		result.ExitCode = exitErr.ExitCode()
		return result, model.WrapCLIError(
			model.ExitRunFailed,
			fmt.Sprintf("frozen executable %q failed in container (exit %d)", opts.ExeName, result.ExitCode),
			err,
		)
	}

	// The docker binary could not be started at all.
	result.ExitCode = -1
	return result, model.WrapCLIError(
		model.ExitDockerNotRunning,
		"failed to invoke docker",
		err,
	)
}

// ContainerInfo describes a harness-managed container found on the host.
type ContainerInfo struct {
	// ID is the container ID.
	ID string

	// Name is the container name with the API's leading "/" stripped.
	Name string

	// State is Docker's short state string ("running", "exited", ...).
	State string

	// Info is the parsed harness metadata, nil when the labels are
	// damaged.
	Info *RunInfo
}

// ListHarnessContainers queries the daemon for all containers carrying
// the harness management label, including stopped ones. Stopped
// containers are the interesting case: they are what a crashed re-run
// leaves behind for the clean command.
func ListHarnessContainers(ctx context.Context, cli *Client) ([]ContainerInfo, error) {
	// Filtering server-side avoids pulling every container on the host.
	filterArgs := filters.NewArgs(
		filters.Arg("label", FilterLabel()),
	)

	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]ContainerInfo, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			// The API returns names with a leading "/" that is an
			// artifact, not part of the name.
			name = strings.TrimPrefix(c.Names[0], "/")
		}

		// Damaged labels do not block cleanup; the container is listed
		// with nil Info and can still be removed by ID.
		info, _ := ParseLabels(c.Labels)

		result = append(result, ContainerInfo{
			ID:    c.ID,
			Name:  name,
			State: c.State,
			Info:  info,
		})
	}

	return result, nil
}

// RemoveContainer removes a container by ID. With force, a running
// container is killed first.
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}
