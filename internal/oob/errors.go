package oob

import "errors"

// Sentinel errors for the confirmation engine. Callers are expected to test
// with errors.Is rather than string matching.
var (
	// ErrEntropyUnavailable indicates the secure random source failed. This is
	// fatal: no detection attempt may proceed without fresh entropy.
	ErrEntropyUnavailable = errors.New("secure random source unavailable")

	// ErrUnsupportedEnvironment indicates no payload template exists for the
	// requested (class, environment) pair. The caller should skip the probe;
	// the compiler never substitutes a different environment.
	ErrUnsupportedEnvironment = errors.New("no payload template for execution environment")

	// ErrInvalidSessionState indicates a session contract violation (re-entering
	// a consumed state). It is a logic error, not a condition to retry.
	ErrInvalidSessionState = errors.New("invalid session state transition")

	// ErrCollectorUnreachable indicates every poll attempt failed at the
	// transport level. The result is indeterminate, never proof of absence.
	ErrCollectorUnreachable = errors.New("callback collector unreachable")

	// ErrInvalidDeadline indicates a non-positive confirmation budget. The
	// deadline is mandatory; there is no implicit default.
	ErrInvalidDeadline = errors.New("confirmation deadline must be positive")
)
