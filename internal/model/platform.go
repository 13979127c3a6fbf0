package model

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Platform identifies the build/run platform of the harness. It mirrors the
// four platform families the packaging tool distinguishes: plain Linux,
// macOS, MSYS2/MinGW on Windows, and native Windows.
type Platform string

const (
	// PlatformLinux covers all Linux environments, including manylinux
	// containers.
	PlatformLinux Platform = "linux"

	// PlatformMacOS covers macOS (Intel and Apple Silicon).
	PlatformMacOS Platform = "macos"

	// PlatformMinGW covers Windows under an MSYS2/MinGW environment, where
	// packages are installed with pacman rather than pip wheels.
	PlatformMinGW Platform = "mingw"

	// PlatformWindows covers native Windows with a python.org or Store
	// interpreter.
	PlatformWindows Platform = "windows"
)

// String returns the string representation of the Platform.
// This satisfies fmt.Stringer for CLI output and logging.
func (p Platform) String() string {
	return string(p)
}

// IsValid checks whether the Platform value is one of the four known
// platform families.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformLinux, PlatformMacOS, PlatformMinGW, PlatformWindows:
		return true
	default:
		return false
	}
}

// IsWindowsLike reports whether frozen executables on this platform carry
// an ".exe" suffix. True for both native Windows and MinGW.
func (p Platform) IsWindowsLike() bool {
	return p == PlatformWindows || p == PlatformMinGW
}

// ParsePlatform converts a string to a Platform.
// Returns an error if the string does not match any known platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid platform: %q (valid: linux, macos, mingw, windows)", s)
	}
	return p, nil
}

// DetectPlatform determines the platform family of the running process.
//
// The only subtlety is Windows: a Go binary compiled for windows may be
// running inside an MSYS2/MinGW shell, which changes how Python packages
// are installed (pacman instead of pip). MSYS2 sets the MSYSTEM environment
// variable (e.g. "MINGW64", "UCRT64"), which we use as the discriminator.
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMacOS
	case "windows":
		if os.Getenv("MSYSTEM") != "" {
			return PlatformMinGW
		}
		return PlatformWindows
	default:
		// Everything else (linux, plus the BSDs the tool does not formally
		// support) is treated as the Linux family.
		return PlatformLinux
	}
}

// MatchPlatforms evaluates a manifest platform spec against a platform.
//
// The spec grammar comes from the sample manifest:
//   - An empty spec matches every platform.
//   - Bare names ("linux", "macos") select the allowed set: if any bare name
//     is present, only the named platforms are allowed.
//   - Negated names ("!mingw") subtract from the allowed set, which starts
//     as all four platforms when no bare name is given.
//
// Examples:
//
//	""              → all platforms
//	"linux"         → linux only
//	"linux,macos"   → linux and macos
//	"!mingw"        → everything except mingw
//	"windows,!mingw" → windows only (negation applied after selection)
func MatchPlatforms(spec []string, current Platform) bool {
	if len(spec) == 0 {
		return true
	}

	// Start with the full support set, then narrow it.
	allowed := map[Platform]bool{
		PlatformLinux:   true,
		PlatformMacOS:   true,
		PlatformMinGW:   true,
		PlatformWindows: true,
	}

	// Collect the positive selections first. Any bare name replaces the
	// default "all platforms" set with exactly the named ones.
	positive := map[Platform]bool{}
	for _, entry := range spec {
		name := strings.ToLower(strings.TrimSpace(entry))
		if name == "" || strings.HasPrefix(name, "!") {
			continue
		}
		positive[Platform(name)] = true
	}
	if len(positive) > 0 {
		allowed = positive
	}

	// Apply negations on top of whichever set we ended up with.
	for _, entry := range spec {
		name := strings.ToLower(strings.TrimSpace(entry))
		if strings.HasPrefix(name, "!") {
			delete(allowed, Platform(name[1:]))
		}
	}

	return allowed[current]
}

// SplitPlatformSpec normalizes a manifest "platform" value that may be a
// comma-separated string into the slice form MatchPlatforms expects.
// Empty input yields nil (match-all).
func SplitPlatformSpec(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
