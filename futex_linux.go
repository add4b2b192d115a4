//go:build linux

package waitmux

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Futex operation codes; see futex(2).
const (
	futexOpWait      = 0
	futexOpWake      = 1
	futexPrivateFlag = 128
)

func (x *WaitQueue) futexOp(op uintptr) uintptr {
	if !x.shared {
		op |= futexPrivateFlag
	}
	return op
}

func (x *WaitQueue) wait(word *atomic.Uint32, expected uint32, deadline Deadline) (WaitOutcome, error) {
	// FUTEX_WAIT takes a relative timeout; recompute from the absolute
	// deadline so retries never stretch the window. A zero timespec makes
	// an immediate deadline behave as a poll (ETIMEDOUT if still parked).
	var ts *unix.Timespec
	switch {
	case deadline.IsImmediate():
		ts = &unix.Timespec{}
	case !deadline.IsInfinite():
		remaining := deadline.Remaining()
		if remaining <= 0 {
			return WaitTimedOut, nil
		}
		t := unix.NsecToTimespec(remaining.Nanoseconds())
		ts = &t
	}

	// The kernel checks *word == expected and parks in one atomic step,
	// closing the race between the caller's last observation and the
	// block.
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(word)),
		x.futexOp(futexOpWait),
		uintptr(expected),
		uintptr(unsafe.Pointer(ts)),
		0,
		0,
	)

	switch errno {
	case 0:
		return WaitWoken, nil
	case unix.EAGAIN:
		return WaitValueChanged, nil
	case unix.EINTR:
		return WaitInterrupted, nil
	case unix.ETIMEDOUT:
		return WaitTimedOut, nil
	case unix.ENOMEM:
		return 0, fmt.Errorf(`%w: futex wait: %v`, ErrResourceExhausted, errno)
	case unix.EINVAL, unix.EFAULT:
		return 0, fmt.Errorf(`%w: futex wait: %v`, ErrInvalidArgument, errno)
	default:
		return 0, fmt.Errorf(`waitmux: futex wait: %w`, errno)
	}
}

func (x *WaitQueue) wake(word *atomic.Uint32, max int) (int, error) {
	n, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(word)),
		x.futexOp(futexOpWake),
		uintptr(max),
		0,
		0,
		0,
	)
	if errno != 0 {
		switch errno {
		case unix.EINVAL, unix.EFAULT:
			return 0, fmt.Errorf(`%w: futex wake: %v`, ErrInvalidArgument, errno)
		default:
			return 0, fmt.Errorf(`waitmux: futex wake: %w`, errno)
		}
	}
	return int(n), nil
}
