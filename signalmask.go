package waitmux

import "syscall"

// maximum signal number representable in the set, matching sigset_t
const signalSetBits = 128

type (
	// SignalSet is a set of signals, in sigset_t style. The zero value is
	// the empty set; as a [SignalMaskSwap.During] mask it leaves every
	// signal unmasked for the duration of the wait.
	SignalSet struct {
		bits [signalSetBits / 64]uint64
	}

	// SignalMaskSwap configures the signal mask applied for the duration
	// of a blocking wait. Installing During and entering the blocked
	// state happen in the same kernel transition, never as two separate
	// steps: a signal that During unmasks cannot be delivered in a gap
	// before blocking (where it would be consumed without interrupting
	// anything), nor held masked and lost.
	SignalMaskSwap struct {
		// During is the mask installed while blocked. Nil leaves the
		// current mask untouched.
		During *SignalSet

		// After, if non-nil, is installed on the calling thread once the
		// wait returns, instead of the default restoration of the
		// pre-call mask (which the kernel applies atomically with leaving
		// the blocked state). Callers setting After should have the
		// goroutine locked to its OS thread.
		After *SignalSet
	}
)

func signalIndex(sig syscall.Signal) (uint, bool) {
	if sig <= 0 || int(sig) > signalSetBits {
		return 0, false
	}
	return uint(sig) - 1, true
}

// Add inserts the signal into the set. Out-of-range signals are ignored.
func (x *SignalSet) Add(sig syscall.Signal) {
	if n, ok := signalIndex(sig); ok {
		x.bits[n/64] |= 1 << (n % 64)
	}
}

// Remove deletes the signal from the set.
func (x *SignalSet) Remove(sig syscall.Signal) {
	if n, ok := signalIndex(sig); ok {
		x.bits[n/64] &^= 1 << (n % 64)
	}
}

// Contains reports whether the signal is in the set.
func (x *SignalSet) Contains(sig syscall.Signal) bool {
	n, ok := signalIndex(sig)
	return ok && x.bits[n/64]&(1<<(n%64)) != 0
}

// Fill adds every representable signal to the set.
func (x *SignalSet) Fill() {
	for i := range x.bits {
		x.bits[i] = ^uint64(0)
	}
}

// Clear empties the set.
func (x *SignalSet) Clear() {
	for i := range x.bits {
		x.bits[i] = 0
	}
}
