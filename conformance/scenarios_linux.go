//go:build linux

package conformance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	waitmux "github.com/joeycumines/go-waitmux"
	"golang.org/x/sys/unix"
)

type (
	// InterruptConfig models the atomic mask swap scenario: a long
	// bounded wait, with the scenario signal blocked on the waiting
	// thread and unmasked only by the swap, interrupted by an external
	// actor partway through.
	InterruptConfig struct {
		// Signal defaults to SIGUSR1, if nil.
		Signal syscall.Signal
		// Delay before the actor delivers the signal. Defaults to 1s.
		Delay time.Duration
		// Deadline bounds the wait; the scenario fails if it runs
		// anywhere near this. Defaults to 5s.
		Deadline time.Duration
		// Tolerance is the allowed deviation of the return from Delay.
		// Defaults to Delay/2, if 0.
		Tolerance time.Duration
	}

	// InterruptResult reports how the wait returned.
	InterruptResult struct {
		Elapsed time.Duration
		// SignalSeen records whether the scenario's signal handler
		// observed the delivery.
		SignalSeen bool
	}

	// PipeReadinessConfig models the satisfied-channel scenario: a pipe
	// read end waited on while an actor writes after a delay.
	PipeReadinessConfig struct {
		// Delay before the actor writes. Defaults to 100ms.
		Delay time.Duration
		// Deadline bounds the wait. Defaults to 2s.
		Deadline time.Duration
		// Tolerance is the allowed lag between Delay and the return.
		// Defaults to 250ms, if 0.
		Tolerance time.Duration
		// Payload is what the actor writes. Defaults to "test data".
		Payload []byte
	}

	// PipeReadinessResult reports the outcome and the payload read back.
	PipeReadinessResult struct {
		Elapsed time.Duration
		Data    []byte
	}
)

func sigsetFor(sig syscall.Signal) *unix.Sigset_t {
	var s unix.Sigset_t
	n := uint(sig) - 1
	s.Val[n/64] |= 1 << (n % 64)
	return &s
}

// RunInterrupt starts a long bounded wait on a thread that has the
// scenario signal blocked, unmasking it only for the duration of the
// wait via the atomic mask swap, while an actor delivers the signal to
// that thread after cfg.Delay. It verifies the wait returned
// ErrInterrupted near the delivery, rather than sleeping out the full
// deadline (a lost delivery) or returning early.
func (x *Harness) RunInterrupt(ctx context.Context, cfg InterruptConfig) (*InterruptResult, error) {
	if cfg.Signal == 0 {
		cfg.Signal = syscall.SIGUSR1
	}
	if cfg.Delay == 0 {
		cfg.Delay = time.Second
	}
	if cfg.Deadline == 0 {
		cfg.Deadline = 5 * time.Second
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = cfg.Delay / 2
	}
	if cfg.Delay < 0 || cfg.Deadline < 0 || cfg.Tolerance < 0 || cfg.Delay+cfg.Tolerance >= cfg.Deadline {
		return nil, fmt.Errorf(`%w: interrupt config %+v`, waitmux.ErrInvalidArgument, cfg)
	}

	// Install the runtime handler for the scenario signal; an unhandled
	// delivery would terminate the process. Receipt is recorded on a
	// flag owned by this scenario.
	var seen atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, cfg.Signal)
	defer signal.Stop(sigCh)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCh:
			seen.Store(true)
		case <-done:
		}
	}()

	type waitResult struct {
		elapsed time.Duration
		err     error
	}
	resCh := make(chan waitResult, 1)
	tidCh := make(chan int, 1)

	go func() {
		// The mask swap is per OS thread; pin the goroutine so the
		// blocked mask, the wait, and the delivery all target one
		// thread.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		var old unix.Sigset_t
		if err := unix.PthreadSigmask(unix.SIG_BLOCK, sigsetFor(cfg.Signal), &old); err != nil {
			resCh <- waitResult{err: err}
			return
		}
		defer unix.PthreadSigmask(unix.SIG_SETMASK, &old, nil) //nolint:errcheck

		tidCh <- unix.Gettid()

		deadline, err := waitmux.After(cfg.Deadline)
		if err != nil {
			resCh <- waitResult{err: err}
			return
		}
		// An empty During mask leaves everything unmasked while blocked;
		// the scenario signal is deliverable only inside the wait.
		swap := &waitmux.SignalMaskSwap{During: new(waitmux.SignalSet)}
		var set waitmux.ReadinessSet
		start := time.Now()
		_, err = x.mux().Wait(&set, deadline, swap)
		resCh <- waitResult{elapsed: time.Since(start), err: err}
	}()

	tid := <-tidCh

	go func() {
		select {
		case <-time.After(cfg.Delay):
			unix.Tgkill(unix.Getpid(), tid, cfg.Signal) //nolint:errcheck
		case <-done:
		}
	}()

	var res waitResult
	select {
	case res = <-resCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// give the notify goroutine a beat to observe the delivery
	for i := 0; i < 100 && !seen.Load(); i++ {
		time.Sleep(time.Millisecond)
	}

	result := &InterruptResult{Elapsed: res.elapsed, SignalSeen: seen.Load()}
	x.Logger.Debug().
		Dur(`elapsed`, result.Elapsed).
		Dur(`delay`, cfg.Delay).
		Log(`interrupt scenario finished`)

	if res.err == nil {
		return result, fmt.Errorf(`conformance: wait slept %s without interruption; the delivery was lost`, result.Elapsed)
	}
	if !errors.Is(res.err, waitmux.ErrInterrupted) {
		return result, fmt.Errorf(`conformance: want interruption, got: %w`, res.err)
	}
	if result.Elapsed+cfg.Tolerance < cfg.Delay {
		return result, fmt.Errorf(`conformance: interrupted after %s, before the %s delivery delay`, result.Elapsed, cfg.Delay)
	}
	if result.Elapsed > cfg.Delay+cfg.Tolerance {
		return result, fmt.Errorf(`conformance: interrupted after %s, too long after the %s delivery delay (deadline %s)`, result.Elapsed, cfg.Delay, cfg.Deadline)
	}
	return result, nil
}

// RunPipeReadiness waits for the read end of a pipe while an actor
// writes to the other end after cfg.Delay, verifying the multiplexer
// reported the channel ready promptly — not after the full deadline —
// and that the payload was readable.
func (x *Harness) RunPipeReadiness(ctx context.Context, cfg PipeReadinessConfig) (*PipeReadinessResult, error) {
	if cfg.Delay == 0 {
		cfg.Delay = 100 * time.Millisecond
	}
	if cfg.Deadline == 0 {
		cfg.Deadline = 2 * time.Second
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = 250 * time.Millisecond
	}
	if cfg.Payload == nil {
		cfg.Payload = []byte(`test data`)
	}
	if cfg.Delay < 0 || cfg.Deadline < 0 || cfg.Tolerance < 0 || cfg.Delay+cfg.Tolerance >= cfg.Deadline {
		return nil, fmt.Errorf(`%w: pipe readiness config %+v`, waitmux.ErrInvalidArgument, cfg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf(`conformance: pipe: %w`, err)
	}
	defer unix.Close(p[0]) //nolint:errcheck
	defer unix.Close(p[1]) //nolint:errcheck

	written := make(chan error, 1)
	go func() {
		time.Sleep(cfg.Delay)
		_, err := unix.Write(p[1], cfg.Payload)
		written <- err
	}()

	deadline, err := waitmux.After(cfg.Deadline)
	if err != nil {
		return nil, err
	}
	var set waitmux.ReadinessSet
	set.Add(p[0], waitmux.EventRead)

	start := time.Now()
	n, err := x.mux().Wait(&set, deadline, nil)
	result := &PipeReadinessResult{Elapsed: time.Since(start)}

	// join the actor before the pipe fds close
	if werr := <-written; werr != nil {
		return result, fmt.Errorf(`conformance: pipe write: %w`, werr)
	}

	x.Logger.Debug().
		Dur(`elapsed`, result.Elapsed).
		Int(`ready`, n).
		Log(`pipe readiness scenario finished`)

	if err != nil {
		return result, fmt.Errorf(`conformance: pipe wait: %w`, err)
	}
	if n != 1 || !set.Entry(0).Ready() || set.Entry(0).Events()&waitmux.EventRead == 0 {
		return result, fmt.Errorf(`conformance: pipe read end not reported readable (ready=%d, events=%#x)`, n, uint32(set.Entry(0).Events()))
	}
	if result.Elapsed > cfg.Delay+cfg.Tolerance {
		return result, fmt.Errorf(`conformance: wait returned after %s, too long after the %s write delay`, result.Elapsed, cfg.Delay)
	}

	buf := make([]byte, len(cfg.Payload)+16)
	rn, rerr := unix.Read(p[0], buf)
	if rerr != nil {
		return result, fmt.Errorf(`conformance: pipe read: %w`, rerr)
	}
	result.Data = buf[:rn]
	if string(result.Data) != string(cfg.Payload) {
		return result, fmt.Errorf(`conformance: read %q, want %q`, result.Data, cfg.Payload)
	}
	return result, nil
}
