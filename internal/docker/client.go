// Package docker wraps the Docker Engine SDK client for the container
// re-run step and for cleaning up harness containers.
//
// On Linux, a frozen executable that passes on the build machine can
// still fail on a clean machine because it silently depends on host
// libraries. The harness therefore re-runs the executable inside a
// minimal container image with the build output bind-mounted in. This
// package provides the Docker plumbing for that step: socket detection,
// daemon health checks, label-based container discovery, and the re-run
// invocation itself.
package docker

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

// defaultPingTimeout bounds the wait for a Docker daemon response during
// Ping.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client, adding socket detection and
// the harness's error codes.
type Client struct {
	inner *client.Client
}

// NewClient creates a Docker client. A DOCKER_HOST environment variable
// is respected as-is; otherwise the well-known Unix socket paths are
// probed. The re-run step only runs on Linux, so the probe list covers
// Linux plus the Docker Desktop sockets a developer running "clean"
// against a local daemon would have — anything else (including Windows
// named pipes) must be addressed through DOCKER_HOST.
//
// Returns a model.CLIError with ExitDockerNotRunning when no socket is
// found or the client cannot be created.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		var err error
		host, err = firstSocket(socketCandidates())
		if err != nil {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
		}
	}

	// WithAPIVersionNegotiation keeps the client compatible across daemon
	// versions without hardcoding an API version.
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}
	return &Client{inner: c}, nil
}

// socketCandidates lists the Unix socket paths to probe, in order. On
// macOS newer Docker Desktop versions only provide the per-user socket.
func socketCandidates() []string {
	paths := []string{"/var/run/docker.sock"}
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, home+"/.docker/run/docker.sock")
		}
	}
	return paths
}

// firstSocket returns the Docker host URI for the first path that
// exists. Existence is checked rather than connectivity because the
// check is cheap and Ping handles connectivity separately.
func firstSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at any of %v; set DOCKER_HOST to reach a daemon elsewhere", paths)
}

// Ping verifies that the Docker daemon is reachable and responsive.
// Returns a model.CLIError with ExitDockerNotRunning when the daemon
// does not respond within defaultPingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding — is Docker running?",
			err,
		)
	}
	return nil
}

// Close releases the client's resources. Safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner returns the underlying SDK client for operations not exposed
// through the wrapper.
func (c *Client) Inner() *client.Client {
	return c.inner
}
