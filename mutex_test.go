package waitmux

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewMutex_optionErrors(t *testing.T) {
	for _, tc := range [...]struct {
		name string
		opts []MutexOption
	}{
		{`nil queue`, []MutexOption{WithWaitQueue(nil)}},
		{`negative spin`, []MutexOption{WithSpinCount(-1)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewMutex(tc.opts...); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf(`want ErrInvalidArgument, got %v`, err)
			}
		})
	}
}

func TestNewMutexAt_nilWord(t *testing.T) {
	if _, err := NewMutexAt(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf(`want ErrInvalidArgument, got %v`, err)
	}
}

func TestMutex_lockUnlock(t *testing.T) {
	mu, err := NewMutex()
	if err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	mu.Unlock()
	mu.Lock()
	mu.Unlock()
}

func TestMutex_TryLock(t *testing.T) {
	mu, err := NewMutex()
	if err != nil {
		t.Fatal(err)
	}
	if !mu.TryLock() {
		t.Fatal(`TryLock failed on an unlocked mutex`)
	}
	if mu.TryLock() {
		t.Fatal(`TryLock succeeded on a locked mutex`)
	}
	mu.Unlock()
	if !mu.TryLock() {
		t.Fatal(`TryLock failed after unlock`)
	}
	mu.Unlock()
}

func TestMutex_Unlock_unlocked(t *testing.T) {
	mu, err := NewMutex()
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal(`unlock of an unlocked mutex must panic`)
		}
	}()
	mu.Unlock()
}

func TestMutex_contention(t *testing.T) {
	for _, tc := range [...]struct {
		name string
		opts []MutexOption
	}{
		{`default`, nil},
		{`no spin`, []MutexOption{WithSpinCount(0)}},
		{`heavy spin`, []MutexOption{WithSpinCount(1 << 10)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mu, err := NewMutex(tc.opts...)
			if err != nil {
				t.Fatal(err)
			}

			const workers = 4
			const iterations = 100
			var counter int // guarded by mu

			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < iterations; i++ {
						mu.Lock()
						counter++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			if want := workers * iterations; counter != want {
				t.Fatalf(`counter = %d, want %d`, counter, want)
			}
		})
	}
}

func TestMutex_LockDeadline_timeout(t *testing.T) {
	mu, err := NewMutex()
	if err != nil {
		t.Fatal(err)
	}
	mu.Lock()

	deadline, err := After(50 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	err = mu.LockDeadline(deadline)
	elapsed := time.Since(start)
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf(`want ErrTimedOut, got %v`, err)
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf(`timed out after %s, before the deadline`, elapsed)
	}

	mu.Unlock()
	deadline, err = After(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if err := mu.LockDeadline(deadline); err != nil {
		t.Fatalf(`acquire after release failed: %v`, err)
	}
	mu.Unlock()
}

func TestMutex_LockDeadline_immediate(t *testing.T) {
	mu, err := NewMutex()
	if err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	if err := mu.LockDeadline(Immediate()); !errors.Is(err, ErrTimedOut) {
		t.Fatalf(`want ErrTimedOut, got %v`, err)
	}
	mu.Unlock()
	if err := mu.LockDeadline(Immediate()); err != nil {
		t.Fatalf(`immediate acquire of an unlocked mutex failed: %v`, err)
	}
	mu.Unlock()
}

func TestMutex_blockedLockerAcquiresOnUnlock(t *testing.T) {
	mu, err := NewMutex()
	if err != nil {
		t.Fatal(err)
	}
	mu.Lock()

	acquired := make(chan struct{})
	go func() {
		mu.Lock()
		close(acquired)
		mu.Unlock()
	}()

	// let the locker park on the contended word
	time.Sleep(100 * time.Millisecond)
	select {
	case <-acquired:
		t.Fatal(`locker acquired a held mutex`)
	default:
	}

	mu.Unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal(`unlock never woke the parked locker`)
	}
}

func TestNewMutexAt_sharesWord(t *testing.T) {
	var word atomic.Uint32
	a, err := NewMutexAt(&word)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewMutexAt(&word)
	if err != nil {
		t.Fatal(err)
	}
	a.Lock()
	if b.TryLock() {
		t.Fatal(`two mutexes over one word acquired concurrently`)
	}
	a.Unlock()
	if !b.TryLock() {
		t.Fatal(`second mutex could not acquire the released word`)
	}
	b.Unlock()
}
