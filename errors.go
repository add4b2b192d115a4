package waitmux

import "errors"

// Sentinel errors, matched with [errors.Is]. Failures originating in a
// syscall wrap the errno, so the underlying cause remains inspectable.
var (
	// ErrTimedOut indicates a deadline elapsed with no qualifying event.
	// Recoverable; the caller decides whether to retry or give up.
	ErrTimedOut = errors.New(`waitmux: timed out`)

	// ErrInterrupted indicates an unmasked signal arrived during a
	// blocking call. Recoverable; conventionally retried with the
	// remaining portion of the same absolute deadline.
	ErrInterrupted = errors.New(`waitmux: interrupted by signal`)

	// ErrInvalidArgument indicates a malformed deadline or readiness set.
	// Fatal to the call; never retried automatically.
	ErrInvalidArgument = errors.New(`waitmux: invalid argument`)

	// ErrResourceExhausted indicates the wait-queue backend could not
	// register the call. Propagated, not retried.
	ErrResourceExhausted = errors.New(`waitmux: resource exhausted`)
)
