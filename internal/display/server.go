package display

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mmr-tortoise/freezeci/internal/model"
)

const (
	// scanRangeStart and scanRangeEnd bound the display-number search.
	// :99 is the conventional first choice for headless X servers, so the
	// range starts there.
	scanRangeStart = 99
	scanRangeEnd   = 199

	// readyPollInterval and readyTimeout bound the wait for Xvfb to create
	// its socket after starting. Xvfb is normally ready within tens of
	// milliseconds; the generous timeout covers loaded CI machines.
	readyPollInterval = 50 * time.Millisecond
	readyTimeout      = 5 * time.Second

	// DefaultGeometry is the screen configuration used when the harness
	// config does not override it.
	DefaultGeometry = "1280x1024x24"
)

// Server is a running Xvfb instance owned by the harness. It is created
// with Start and must be released with Stop in the same invocation —
// display servers never outlive the sample run that needed them.
type Server struct {
	// Number is the display number (e.g. 99 for ":99").
	Number int

	cmd       *exec.Cmd
	socketDir string
}

// Start launches Xvfb on the first free display and waits until the
// server is accepting connections.
//
// Failure modes (Xvfb missing, no free display, server exits before its
// socket appears) all map to model.ExitDisplayFailed.
func Start(ctx context.Context, scanner *Scanner, geometry string) (*Server, error) {
	xvfb, err := exec.LookPath("Xvfb")
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDisplayFailed,
			"Xvfb not found on PATH — required for GUI samples on headless machines",
			err,
		)
	}

	number, err := scanner.FindFreeDisplay(scanRangeStart, scanRangeEnd)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDisplayFailed, "no free X display", err)
	}

	if geometry == "" {
		geometry = DefaultGeometry
	}

	// -nolisten tcp keeps the server off the network; clients connect via
	// the Unix socket only.
	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, xvfb,
		fmt.Sprintf(":%d", number),
		"-screen", "0", geometry,
		"-nolisten", "tcp",
	)
	if err := cmd.Start(); err != nil {
		return nil, model.WrapCLIError(
			model.ExitDisplayFailed,
			fmt.Sprintf("failed to start Xvfb on display :%d", number),
			err,
		)
	}

	srv := &Server{Number: number, cmd: cmd, socketDir: scanner.socketDir}

	if err := srv.waitReady(); err != nil {
		// The server never came up; reap the child before reporting.
		_ = srv.Stop()
		return nil, err
	}

	return srv, nil
}

// waitReady polls for the display socket until it appears or the timeout
// elapses. If the Xvfb process exits in the meantime (address clash,
// broken install), that is reported instead of a timeout.
func (s *Server) waitReady() error {
	socket := filepath.Join(s.socketDir, fmt.Sprintf("X%d", s.Number))
	deadline := time.Now().Add(readyTimeout)

	for time.Now().Before(deadline) {
		if _, err := os.Stat(socket); err == nil {
			return nil
		}
		// ProcessState is set once Wait has reaped the child; before that,
		// a cheap Signal(0) probe detects an exited process.
		if s.cmd.Process != nil {
			if err := s.cmd.Process.Signal(syscall.Signal(0)); err != nil {
				return model.NewCLIError(
					model.ExitDisplayFailed,
					fmt.Sprintf("Xvfb exited before display :%d became ready", s.Number),
				)
			}
		}
		time.Sleep(readyPollInterval)
	}

	return model.NewCLIError(
		model.ExitDisplayFailed,
		fmt.Sprintf("timed out waiting for display :%d", s.Number),
	)
}

// DisplayEnv returns the DISPLAY value clients must use, e.g. ":99".
func (s *Server) DisplayEnv() string {
	return fmt.Sprintf(":%d", s.Number)
}

// Stop terminates the Xvfb process and reaps it. Safe to call after a
// failed Start and safe to call more than once.
func (s *Server) Stop() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Kill(); err != nil && s.cmd.ProcessState == nil {
		return fmt.Errorf("failed to kill Xvfb on display :%d: %w", s.Number, err)
	}
	// Wait reaps the zombie; the "already waited" error after a double
	// Stop is irrelevant.
	_ = s.cmd.Wait()
	s.cmd = nil
	return nil
}
