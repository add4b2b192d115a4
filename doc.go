// Package waitmux provides kernel-assisted waiting primitives: a
// futex-backed mutual exclusion lock, the wait-queue backend it parks on,
// and a signal-mask-aware readiness multiplexer with bounded deadlines.
//
// # Components
//
// [Mutex] is a contended lock over a single 32-bit word, shared by all
// contenders. The word holds one of three values: unlocked, locked with no
// waiters, or locked with at least one parked waiter. Acquisition takes an
// atomic compare-and-swap fast path; contention parks the caller on a
// [WaitQueue] keyed by the word's address. Release wakes exactly one
// parked waiter when the word was in the contended state.
//
// [WaitQueue] exposes the underlying wake/wait primitive directly:
// [WaitQueue.Wait] blocks only if the word still holds the expected value,
// checked atomically with parking, and [WaitQueue.Wake] makes up to a
// requested number of parked callers runnable. On Linux this is the futex
// syscall; elsewhere a process-local parking lot provides the same
// contract, minus signal interruption.
//
// [Multiplexer] waits for any of a set of I/O channels to become ready
// for a requested direction, bounded by a [Deadline], optionally swapping
// the calling thread's signal mask atomically with entering the blocked
// state (the ppoll/pselect contract). Channels are owned by the caller;
// the multiplexer never opens or closes them.
//
// # Blocking and cancellation
//
// The mutex and the multiplexer are the only blocking operations.
// Blocking calls are bounded only by their [Deadline] and by signal
// interruption; there is no separate cancellation token. Deadlines are
// converted to an absolute monotonic point at call entry, so retries
// after a spurious wake or an interruption never stretch the window.
//
// # Conformance
//
// Package [github.com/joeycumines/go-waitmux/conformance] drives scripted
// scenarios (worker contention, bounded waits, signal interruption)
// against these primitives, asserting timing tolerances and final shared
// state.
package waitmux
