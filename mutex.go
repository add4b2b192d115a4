package waitmux

import (
	"fmt"
	"sync/atomic"
)

// Lock word states. The word always holds exactly one of these values.
const (
	mutexUnlocked  uint32 = 0
	mutexLocked    uint32 = 1 // locked, no parked waiters
	mutexContended uint32 = 2 // locked, at least one parked waiter
)

// defaultSpinCount bounds the optimistic retry loop before parking.
const defaultSpinCount = 64

type (
	// Mutex is a mutual exclusion lock over a 32-bit futex word. Any
	// number of OS threads (or, with a shared word, processes) may
	// contend; at most one holds the lock at a time. There is no fairness
	// guarantee: after a wake, any contender may win, and starvation is
	// possible. Eventual acquisition holds for every contender that keeps
	// retrying.
	//
	// A Mutex must not be copied after first use.
	Mutex struct {
		word  *atomic.Uint32
		queue *WaitQueue
		spin  int
	}

	// MutexOption configures a Mutex instance.
	MutexOption interface {
		applyMutex(*Mutex) error
	}

	mutexOptionImpl struct {
		applyMutexFunc func(*Mutex) error
	}
)

func (x *mutexOptionImpl) applyMutex(m *Mutex) error {
	return x.applyMutexFunc(m)
}

// WithWaitQueue sets the wait-queue backend contended acquisitions park
// on. Defaults to a process-private queue.
func WithWaitQueue(queue *WaitQueue) MutexOption {
	return &mutexOptionImpl{func(m *Mutex) error {
		if queue == nil {
			return fmt.Errorf(`%w: nil wait queue`, ErrInvalidArgument)
		}
		m.queue = queue
		return nil
	}}
}

// WithSpinCount bounds the optimistic CAS loop a contended acquisition
// runs before parking. Zero parks on first contention; the default is a
// small bounded spin, which wins when critical sections are shorter than
// a park/wake round trip. Negative counts are invalid.
func WithSpinCount(n int) MutexOption {
	return &mutexOptionImpl{func(m *Mutex) error {
		if n < 0 {
			return fmt.Errorf(`%w: negative spin count %d`, ErrInvalidArgument, n)
		}
		m.spin = n
		return nil
	}}
}

// NewMutex initializes a Mutex with its own private word.
func NewMutex(opts ...MutexOption) (*Mutex, error) {
	return NewMutexAt(new(atomic.Uint32), opts...)
}

// NewMutexAt initializes a Mutex over a caller-supplied word, e.g. one
// living in a mapping shared with other processes (pair with
// [WithWaitQueue] and [WithSharedWord]). The word's address must be
// stable and visible to every contender, and it must hold 0, 1, or 2;
// a fresh word of 0 is an unlocked mutex.
func NewMutexAt(word *atomic.Uint32, opts ...MutexOption) (*Mutex, error) {
	if word == nil {
		return nil, fmt.Errorf(`%w: nil word`, ErrInvalidArgument)
	}
	m := &Mutex{
		word:  word,
		queue: &defaultWaitQueue,
		spin:  defaultSpinCount,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyMutex(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Lock acquires the mutex, blocking until it is available.
func (x *Mutex) Lock() {
	if x.word.CompareAndSwap(mutexUnlocked, mutexLocked) {
		return
	}
	// cannot time out without a deadline; backend failures are
	// unrecoverable for an unbounded acquire
	if err := x.lockSlow(NoDeadline()); err != nil {
		panic(err)
	}
}

// TryLock attempts to acquire the mutex without blocking, reporting
// whether it succeeded.
func (x *Mutex) TryLock() bool {
	return x.word.CompareAndSwap(mutexUnlocked, mutexLocked)
}

// LockDeadline acquires the mutex, giving up once the deadline expires,
// in which case it returns [ErrTimedOut]. Interruption and wait-queue
// value changes are absorbed and retried against the same absolute
// deadline; they are never surfaced.
func (x *Mutex) LockDeadline(deadline Deadline) error {
	if x.word.CompareAndSwap(mutexUnlocked, mutexLocked) {
		return nil
	}
	return x.lockSlow(deadline)
}

func (x *Mutex) lockSlow(deadline Deadline) error {
	// Optimistic spin before parking; a holder with a short critical
	// section usually releases within a few iterations.
	for i := 0; i < x.spin; i++ {
		if x.word.CompareAndSwap(mutexUnlocked, mutexLocked) {
			return nil
		}
	}

	for {
		switch v := x.word.Load(); v {
		case mutexUnlocked:
			// Acquire directly into the contended state: this caller may
			// still have competitors parked behind it, and the eventual
			// unlock must wake one of them.
			if x.word.CompareAndSwap(mutexUnlocked, mutexContended) {
				return nil
			}
		case mutexLocked:
			// Mark contention before parking so the holder knows to wake.
			x.word.CompareAndSwap(mutexLocked, mutexContended)
		default:
			outcome, err := x.queue.Wait(x.word, mutexContended, deadline)
			if err != nil {
				return err
			}
			if outcome == WaitTimedOut {
				return ErrTimedOut
			}
			// Woken, ValueChanged, and Interrupted all mean the same
			// thing here: re-read the word and try again.
		}
	}
}

// Unlock releases the mutex. If the word was in the contended state, one
// parked waiter is woken; failing to do so would stall it forever.
// Unlock panics if the mutex is not locked.
func (x *Mutex) Unlock() {
	switch prev := x.word.Swap(mutexUnlocked); prev {
	case mutexLocked:
	case mutexContended:
		if _, err := x.queue.Wake(x.word, 1); err != nil {
			// a failed wake strands parked waiters; nothing sane to do
			panic(fmt.Errorf(`waitmux: wake on unlock: %w`, err))
		}
	default:
		panic(`waitmux: unlock of unlocked mutex`)
	}
}
