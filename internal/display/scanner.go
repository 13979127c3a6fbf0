// Package display implements virtual display management for GUI samples.
//
// Frozen GUI applications cannot run on a headless CI machine without an X
// server, so the harness starts an Xvfb instance on a free display before
// the run step and tears it down afterwards.
//
// The package has two halves:
//   - Scanner probes display numbers for availability, using the same
//     OS-asks-first approach as port scanning: a display :N is taken when
//     its Unix socket /tmp/.X11-unix/XN exists or its legacy TCP port
//     (6000+N) is bound.
//   - Server owns a running Xvfb child process.
package display

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// x11SocketDir is where X servers create their listening sockets.
const x11SocketDir = "/tmp/.X11-unix"

// x11BasePort is the TCP port of display :0; display :N listens on
// x11BasePort+N when TCP is enabled.
const x11BasePort = 6000

// Scanner checks whether X display numbers are free on this machine.
//
// The struct carries the socket directory so tests can point it at a
// temporary directory; production code uses NewScanner and gets the
// standard /tmp/.X11-unix.
type Scanner struct {
	// socketDir is the directory probed for XN sockets.
	socketDir string
}

// NewScanner creates a Scanner probing the standard X11 socket directory.
func NewScanner() *Scanner {
	return &Scanner{socketDir: x11SocketDir}
}

// NewScannerWithSocketDir creates a Scanner probing a custom socket
// directory. Used by tests.
func NewScannerWithSocketDir(dir string) *Scanner {
	return &Scanner{socketDir: dir}
}

// IsDisplayFree reports whether display :n appears unused.
//
// Two probes are combined because an X server may listen on either
// transport: the Unix socket file is checked for existence, and the
// display's TCP port is checked by attempting to bind it. Binding is the
// reliable probe — it asks the OS rather than parsing anything — and is
// released immediately.
func (s *Scanner) IsDisplayFree(n int) bool {
	if n < 0 {
		return false
	}

	// Unix socket probe: an existing XN file means a server is (or was)
	// there. Stale sockets make the display unusable for Xvfb anyway, so
	// existence alone disqualifies it.
	if _, err := os.Stat(filepath.Join(s.socketDir, fmt.Sprintf("X%d", n))); err == nil {
		return false
	}

	// TCP probe on the display's legacy port.
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", x11BasePort+n))
	if err != nil {
		return false
	}
	defer func() { _ = listener.Close() }()

	return true
}

// FindFreeDisplay scans display numbers [start, end] (inclusive) and
// returns the first free one. The search is sequential so repeated harness
// runs pick the same display, which keeps CI logs comparable.
func (s *Scanner) FindFreeDisplay(start, end int) (int, error) {
	for n := start; n <= end; n++ {
		if s.IsDisplayFree(n) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("no free X display in range :%d-:%d", start, end)
}
