//go:build !linux

package waitmux

import (
	"sync"
	"sync/atomic"
	"time"
)

// parkingLot emulates the kernel futex wait queue for platforms without
// one: a registry of parked waiters keyed by word address. The "value
// still matches" check happens under the registry lock together with
// enqueue, preserving the atomic check-and-block contract. Waiters are
// process-local; WithSharedWord has no effect here.
type parkingLot struct {
	mu      sync.Mutex
	waiters map[*atomic.Uint32][]chan struct{}
}

var lot = parkingLot{waiters: make(map[*atomic.Uint32][]chan struct{})}

func (x *WaitQueue) wait(word *atomic.Uint32, expected uint32, deadline Deadline) (WaitOutcome, error) {
	var remaining time.Duration
	if !deadline.IsInfinite() && !deadline.IsImmediate() {
		remaining = deadline.Remaining()
		if remaining <= 0 {
			return WaitTimedOut, nil
		}
	}

	lot.mu.Lock()
	if word.Load() != expected {
		lot.mu.Unlock()
		return WaitValueChanged, nil
	}
	if deadline.IsImmediate() {
		// futex semantics: a zero timeout with a matching value times out
		// immediately rather than parking.
		lot.mu.Unlock()
		return WaitTimedOut, nil
	}
	ch := make(chan struct{})
	lot.waiters[word] = append(lot.waiters[word], ch)
	lot.mu.Unlock()

	if deadline.IsInfinite() {
		<-ch
		return WaitWoken, nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ch:
		return WaitWoken, nil
	case <-timer.C:
	}

	// Deregister; a concurrent wake may have popped us first, in which
	// case the wake wins (it was counted against the waker's budget).
	lot.mu.Lock()
	defer lot.mu.Unlock()
	q := lot.waiters[word]
	for i, c := range q {
		if c == ch {
			q = append(q[:i], q[i+1:]...)
			if len(q) == 0 {
				delete(lot.waiters, word)
			} else {
				lot.waiters[word] = q
			}
			return WaitTimedOut, nil
		}
	}
	return WaitWoken, nil
}

func (x *WaitQueue) wake(word *atomic.Uint32, max int) (int, error) {
	lot.mu.Lock()
	defer lot.mu.Unlock()
	q := lot.waiters[word]
	n := min(max, len(q))
	for i := 0; i < n; i++ {
		close(q[i])
	}
	if n == len(q) {
		delete(lot.waiters, word)
	} else {
		lot.waiters[word] = q[n:]
	}
	return n, nil
}
