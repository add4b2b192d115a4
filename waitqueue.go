package waitmux

import (
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

type (
	// WaitOutcome describes how a [WaitQueue.Wait] call returned. It is
	// only meaningful when the accompanying error is nil.
	WaitOutcome uint8

	// WaitQueue is the kernel wait-queue backend the mutex parks on,
	// keyed by the address of a 32-bit word. On Linux it is the futex
	// syscall; on other platforms a process-local parking lot provides
	// the same contract, minus signal interruption.
	//
	// The zero value is valid and waits on process-private words.
	// Instances must not be copied while waiters are parked.
	WaitQueue struct {
		logger *logiface.Logger[logiface.Event]
		shared bool
	}

	// WaitQueueOption configures a WaitQueue instance.
	WaitQueueOption interface {
		applyWaitQueue(*WaitQueue) error
	}

	waitQueueOptionImpl struct {
		applyWaitQueueFunc func(*WaitQueue) error
	}
)

const (
	// WaitWoken indicates the caller was parked and then made runnable
	// by a wake. Wakes may be spurious; callers must re-check the
	// condition they were waiting for.
	WaitWoken WaitOutcome = iota

	// WaitValueChanged indicates the word no longer held the expected
	// value when the caller would have parked. Not an error; the caller
	// re-reads the word and decides whether to wait again.
	WaitValueChanged

	// WaitTimedOut indicates the deadline elapsed before a wake.
	WaitTimedOut

	// WaitInterrupted indicates an unmasked signal arrived while parked.
	WaitInterrupted
)

// String returns a human-readable representation of the outcome.
func (x WaitOutcome) String() string {
	switch x {
	case WaitWoken:
		return `Woken`
	case WaitValueChanged:
		return `ValueChanged`
	case WaitTimedOut:
		return `TimedOut`
	case WaitInterrupted:
		return `Interrupted`
	default:
		return fmt.Sprintf(`WaitOutcome(%d)`, uint8(x))
	}
}

func (x *waitQueueOptionImpl) applyWaitQueue(q *WaitQueue) error {
	return x.applyWaitQueueFunc(q)
}

// WithSharedWord configures the queue for words living in memory mapped
// into more than one process, e.g. a shared-memory segment. The caller
// supplies the mapping; the queue only requires the word's address to be
// stable and visible to every contender. The default is process-private,
// which the kernel can arbitrate more cheaply.
//
// Only meaningful on Linux; the non-Linux parking lot is always
// process-local.
func WithSharedWord() WaitQueueOption {
	return &waitQueueOptionImpl{func(q *WaitQueue) error {
		q.shared = true
		return nil
	}}
}

// WithWaitQueueLogger attaches a logger to the queue. Waits are logged at
// trace level. A nil logger disables logging (the default).
func WithWaitQueueLogger(logger *logiface.Logger[logiface.Event]) WaitQueueOption {
	return &waitQueueOptionImpl{func(q *WaitQueue) error {
		q.logger = logger
		return nil
	}}
}

// NewWaitQueue initializes a WaitQueue.
func NewWaitQueue(opts ...WaitQueueOption) (*WaitQueue, error) {
	q := &WaitQueue{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyWaitQueue(q); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// used by Mutex when no queue is configured
var defaultWaitQueue WaitQueue

// Wait parks the caller until the word no longer holds expected, a wake
// is issued on the word, the deadline elapses, or (Linux) an unmasked
// signal arrives.
//
// The check that the word still equals expected and the park are a single
// atomic step from the caller's point of view: a wake issued between the
// two cannot be lost. If the word already differs, Wait returns
// [WaitValueChanged] without blocking.
//
// The returned outcome is only meaningful when the error is nil. Errors
// are limited to [ErrInvalidArgument], [ErrResourceExhausted], and
// unexpected syscall failures.
func (x *WaitQueue) Wait(word *atomic.Uint32, expected uint32, deadline Deadline) (WaitOutcome, error) {
	if word == nil {
		return 0, fmt.Errorf(`%w: nil word`, ErrInvalidArgument)
	}
	outcome, err := x.wait(word, expected, deadline)
	if b := x.logger.Trace(); b.Enabled() {
		b.Int(`expected`, int(expected)).
			Str(`outcome`, outcome.String())
		if err != nil {
			b.Err(err)
		}
		b.Log(`wait queue wait returned`)
	}
	return outcome, err
}

// Wake makes up to max parked waiters on the word runnable, returning the
// number actually transitioned. Waking more than necessary is wasted
// work; waking zero when waiters exist is a correctness bug, so releasers
// must call Wake whenever the protocol says waiters may be parked.
func (x *WaitQueue) Wake(word *atomic.Uint32, max int) (int, error) {
	if word == nil {
		return 0, fmt.Errorf(`%w: nil word`, ErrInvalidArgument)
	}
	if max < 0 {
		return 0, fmt.Errorf(`%w: negative wake count %d`, ErrInvalidArgument, max)
	}
	if max == 0 {
		return 0, nil
	}
	n, err := x.wake(word, max)
	if b := x.logger.Trace(); b.Enabled() {
		b.Int(`max`, max).
			Int(`woken`, n)
		if err != nil {
			b.Err(err)
		}
		b.Log(`wait queue wake returned`)
	}
	return n, err
}
