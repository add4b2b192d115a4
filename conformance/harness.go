// Package conformance drives scripted scenarios against the waitmux
// primitives: worker threads contending a futex-backed mutex, bounded
// readiness waits expected to time out, and waits interrupted partway by
// an external actor. The harness owns timing measurement and pass/fail:
// each runner returns its measurements together with an error describing
// any violated property. The primitives themselves are ignorant of being
// tested.
package conformance

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	waitmux "github.com/joeycumines/go-waitmux"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"
)

type (
	// Harness runs conformance scenarios. The zero value is usable:
	// scenarios fall back to a process-private wait queue and a default
	// multiplexer, and logging is disabled.
	Harness struct {
		// Logger receives scenario progress; nil disables logging.
		Logger *logiface.Logger[logiface.Event]
		// Queue overrides the wait queue scenario mutexes park on.
		Queue *waitmux.WaitQueue
		// Mux overrides the readiness multiplexer.
		Mux *waitmux.Multiplexer
	}

	// ContentionConfig models the mutual exclusion scenario: Workers
	// workers each perform Iterations locked increments of a shared
	// counter.
	ContentionConfig struct {
		// Workers defaults to 4, if 0.
		Workers int
		// Iterations defaults to 100, if 0.
		Iterations int
		// Bound, if positive, makes workers acquire via LockDeadline
		// with this per-acquisition budget, exercising the bounded path.
		Bound time.Duration
	}

	// ContentionResult reports the final shared state and duration.
	ContentionResult struct {
		Counter int
		Elapsed time.Duration
	}

	// WakeBoundConfig models the wake-count scenario: Waiters parked on
	// one word, then a single wake bounded by MaxWake.
	WakeBoundConfig struct {
		// Waiters defaults to 4, if 0.
		Waiters int
		// MaxWake defaults to 2, if 0.
		MaxWake int
		// Settle is how long waiters are given to park before the
		// bounded wake is issued. Defaults to 250ms, if 0.
		Settle time.Duration
	}

	// WakeBoundResult reports wake counts.
	WakeBoundResult struct {
		// FirstWake is the number woken by the bounded wake.
		FirstWake int
		// TotalWoken counts every waiter made runnable, including the
		// drain after the bounded wake.
		TotalWoken int
	}
)

var defaultMultiplexer, _ = waitmux.NewMultiplexer()

func (x *Harness) mux() *waitmux.Multiplexer {
	if x.Mux != nil {
		return x.Mux
	}
	return defaultMultiplexer
}

func (x *Harness) queue() (*waitmux.WaitQueue, error) {
	if x.Queue != nil {
		return x.Queue, nil
	}
	return waitmux.NewWaitQueue()
}

// RunContention spawns cfg.Workers workers, each performing
// cfg.Iterations acquire → increment → release rounds on a fresh mutex,
// then verifies the shared counter converged to exactly
// Workers×Iterations: no lost and no duplicated increments. Ordering
// among workers is deliberately unchecked; convergence, not fairness, is
// the property under test.
func (x *Harness) RunContention(ctx context.Context, cfg ContentionConfig) (*ContentionResult, error) {
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = 100
	}
	if cfg.Workers < 0 || cfg.Iterations < 0 || cfg.Bound < 0 {
		return nil, fmt.Errorf(`%w: contention config %+v`, waitmux.ErrInvalidArgument, cfg)
	}

	var opts []waitmux.MutexOption
	if x.Queue != nil {
		opts = append(opts, waitmux.WithWaitQueue(x.Queue))
	}
	mu, err := waitmux.NewMutex(opts...)
	if err != nil {
		return nil, err
	}

	x.Logger.Debug().
		Int(`workers`, cfg.Workers).
		Int(`iterations`, cfg.Iterations).
		Log(`contention scenario started`)

	var counter int // guarded by mu
	start := time.Now()
	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		eg.Go(func() error {
			for i := 0; i < cfg.Iterations; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if cfg.Bound > 0 {
					deadline, err := waitmux.After(cfg.Bound)
					if err != nil {
						return err
					}
					if err := mu.LockDeadline(deadline); err != nil {
						return fmt.Errorf(`conformance: bounded acquire failed at iteration %d: %w`, i, err)
					}
				} else {
					mu.Lock()
				}
				counter++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &ContentionResult{Counter: counter, Elapsed: time.Since(start)}
	x.Logger.Debug().
		Int(`counter`, result.Counter).
		Dur(`elapsed`, result.Elapsed).
		Log(`contention scenario finished`)
	if want := cfg.Workers * cfg.Iterations; counter != want {
		return result, fmt.Errorf(`conformance: counter diverged: got %d, want %d`, counter, want)
	}
	return result, nil
}

// RunWakeBound parks cfg.Waiters waiters on a single word, issues one
// wake bounded by cfg.MaxWake, and verifies it made at least one and at
// most MaxWake waiters runnable. The remaining waiters are then drained
// and the scenario verifies none was lost.
func (x *Harness) RunWakeBound(ctx context.Context, cfg WakeBoundConfig) (*WakeBoundResult, error) {
	if cfg.Waiters == 0 {
		cfg.Waiters = 4
	}
	if cfg.MaxWake == 0 {
		cfg.MaxWake = 2
	}
	if cfg.Settle == 0 {
		cfg.Settle = 250 * time.Millisecond
	}
	if cfg.Waiters < 0 || cfg.MaxWake < 0 || cfg.Settle < 0 || cfg.MaxWake > cfg.Waiters {
		return nil, fmt.Errorf(`%w: wake bound config %+v`, waitmux.ErrInvalidArgument, cfg)
	}

	queue, err := x.queue()
	if err != nil {
		return nil, err
	}

	var word atomic.Uint32
	word.Store(1)

	// Each waiter parks at most once: a wake, however it is counted,
	// sends the waiter home rather than back to the queue.
	var eg errgroup.Group
	for i := 0; i < cfg.Waiters; i++ {
		eg.Go(func() error {
			for {
				outcome, err := queue.Wait(&word, 1, waitmux.NoDeadline())
				if err != nil {
					return err
				}
				switch outcome {
				case waitmux.WaitWoken, waitmux.WaitValueChanged:
					return nil
				default:
					// interrupted before parking counted; retry
				}
			}
		})
	}
	parked := make(chan error, 1)
	go func() { parked <- eg.Wait() }()

	time.Sleep(cfg.Settle)

	result := &WakeBoundResult{}
	result.FirstWake, err = queue.Wake(&word, cfg.MaxWake)
	if err != nil {
		return result, err
	}
	result.TotalWoken = result.FirstWake
	x.Logger.Debug().
		Int(`first_wake`, result.FirstWake).
		Int(`max`, cfg.MaxWake).
		Log(`bounded wake issued`)

	// Drain: no waiter may stall once the word leaves the awaited value.
	// Wakes repeat on a ticker; a waiter parking between the bounded wake
	// and the store would otherwise stall.
	word.Store(0)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	var drainErr error
drain:
	for {
		n, err := queue.Wake(&word, cfg.Waiters)
		if err != nil {
			return result, err
		}
		result.TotalWoken += n
		select {
		case drainErr = <-parked:
			break drain
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
	if drainErr != nil {
		return result, drainErr
	}

	if result.FirstWake < 1 {
		return result, fmt.Errorf(`conformance: bounded wake woke no waiters (expected 1..%d of %d parked)`, cfg.MaxWake, cfg.Waiters)
	}
	if result.FirstWake > cfg.MaxWake {
		return result, fmt.Errorf(`conformance: bounded wake woke %d waiters, more than the requested %d`, result.FirstWake, cfg.MaxWake)
	}
	return result, nil
}
