//go:build linux

package waitmux

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The kernel's sigset_t is 64 bits; ppoll rejects a non-NULL sigmask
// whose sigsetsize differs.
const kernelSigsetBytes = 8

func interestToPoll(events IOEvents) int16 {
	var p int16
	if events&EventRead != 0 {
		p |= unix.POLLIN
	}
	if events&EventWrite != 0 {
		p |= unix.POLLOUT
	}
	return p
}

func pollToEvents(p int16) IOEvents {
	var events IOEvents
	if p&(unix.POLLIN|unix.POLLPRI) != 0 {
		events |= EventRead
	}
	if p&unix.POLLOUT != 0 {
		events |= EventWrite
	}
	if p&unix.POLLERR != 0 {
		events |= EventError
	}
	if p&unix.POLLHUP != 0 {
		events |= EventHangup
	}
	return events
}

func (x *SignalSet) sigset() *unix.Sigset_t {
	if x == nil {
		return nil
	}
	var s unix.Sigset_t
	for i, bits := range x.bits {
		s.Val[i] = bits
	}
	return &s
}

// ppoll issues SYS_PPOLL directly: the [unix.Ppoll] wrapper passes a
// sigsetsize of zero, which the kernel rejects for any non-NULL sigmask.
func ppoll(fds []unix.PollFd, ts *unix.Timespec, sigmask *uint64) (int, error) {
	var p unsafe.Pointer
	if len(fds) > 0 {
		p = unsafe.Pointer(&fds[0])
	}
	n, _, errno := unix.Syscall6(
		unix.SYS_PPOLL,
		uintptr(p),
		uintptr(len(fds)),
		uintptr(unsafe.Pointer(ts)),
		uintptr(unsafe.Pointer(sigmask)),
		kernelSigsetBytes,
		0,
	)
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

func (x *Multiplexer) wait(set *ReadinessSet, deadline Deadline, swap *SignalMaskSwap) (int, error) {
	fds := make([]unix.PollFd, len(set.entries))
	for i := range set.entries {
		fds[i] = unix.PollFd{
			Fd:     int32(set.entries[i].fd),
			Events: interestToPoll(set.entries[i].interest),
		}
	}

	var ts *unix.Timespec
	switch {
	case deadline.IsImmediate():
		ts = &unix.Timespec{}
	case !deadline.IsInfinite():
		t := unix.NsecToTimespec(deadline.Remaining().Nanoseconds())
		ts = &t
	}

	// Only the kernel's 64 signals are maskable; the set's second word
	// exists for sigset_t layout parity.
	var during *uint64
	if swap != nil && swap.During != nil {
		during = &swap.During.bits[0]
	}

	// ppoll installs the mask, blocks, and reinstates the previous mask
	// in one kernel transition; a signal unmasked by the swap cannot slip
	// into a gap between unmasking and blocking.
	n, err := ppoll(fds, ts, during)

	switch err {
	case nil:
	case unix.EINTR:
		err = ErrInterrupted
	case unix.EINVAL:
		err = fmt.Errorf(`%w: ppoll: %v`, ErrInvalidArgument, err)
	case unix.ENOMEM:
		err = fmt.Errorf(`%w: ppoll: %v`, ErrResourceExhausted, err)
	default:
		err = fmt.Errorf(`waitmux: ppoll: %w`, err)
	}

	if swap != nil && swap.After != nil {
		if merr := unix.PthreadSigmask(unix.SIG_SETMASK, swap.After.sigset(), nil); merr != nil {
			merr = fmt.Errorf(`waitmux: install after mask: %w`, merr)
			if err != nil {
				merr = errors.Join(err, merr)
			}
			err = merr
		}
	}

	if err != nil {
		return 0, err
	}

	for i := range set.entries {
		revents := fds[i].Revents
		if revents&unix.POLLNVAL != 0 {
			set.entries[i].invalid = true
			continue
		}
		set.entries[i].revents = pollToEvents(revents)
	}

	if n == 0 && len(set.entries) > 0 && !deadline.IsInfinite() {
		return 0, ErrTimedOut
	}
	return n, nil
}
