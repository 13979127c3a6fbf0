// Package model defines the domain types and value objects for the
// freezeci harness.
//
// This package contains pure data structures with no external dependencies:
// the platform and environment-manager enums, the packaging action selector,
// per-step and per-sample run reports, and the exit-code carrying error type
// used by the CLI layer.
//
// Nothing here touches the filesystem or spawns processes — detection of the
// live environment lives in internal/pyenv, and all state is transient to a
// single harness invocation.
package model
