package waitmux

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

type (
	// Multiplexer waits, with a bounded deadline and an atomically
	// swapped signal mask, for any channel in a [ReadinessSet] to become
	// ready for its requested direction.
	//
	// The zero value is valid; [NewMultiplexer] exists for option
	// symmetry with the other components.
	Multiplexer struct {
		logger *logiface.Logger[logiface.Event]
	}

	// MultiplexerOption configures a Multiplexer instance.
	MultiplexerOption interface {
		applyMultiplexer(*Multiplexer) error
	}

	multiplexerOptionImpl struct {
		applyMultiplexerFunc func(*Multiplexer) error
	}
)

func (x *multiplexerOptionImpl) applyMultiplexer(m *Multiplexer) error {
	return x.applyMultiplexerFunc(m)
}

// WithMultiplexerLogger attaches a logger; waits are logged at debug
// level. A nil logger disables logging (the default).
func WithMultiplexerLogger(logger *logiface.Logger[logiface.Event]) MultiplexerOption {
	return &multiplexerOptionImpl{func(m *Multiplexer) error {
		m.logger = logger
		return nil
	}}
}

// NewMultiplexer initializes a Multiplexer.
func NewMultiplexer(opts ...MultiplexerOption) (*Multiplexer, error) {
	m := &Multiplexer{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyMultiplexer(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Wait blocks until at least one channel in the set satisfies its
// requested direction, the deadline elapses, or a signal left unmasked by
// swap arrives. It returns the number of entries with a non-empty
// outcome, including entries flagged invalid.
//
// Per-entry outcomes are recorded on the set and read via [Entry.Ready],
// [Entry.Events], and [Entry.Invalid]; an entry whose handle does not
// refer to an open resource flags itself while the others still report.
// All channels ready at return are reported together, in no particular
// order of preference.
//
// An empty set with a finite deadline is a pure timer: it blocks until
// the deadline and returns (0, nil), never an error. A non-empty set
// whose deadline elapses with nothing ready returns [ErrTimedOut]; an
// immediate deadline polls every channel exactly once first. A signal
// arriving while blocked returns [ErrInterrupted], conventionally retried
// by the caller against the same absolute deadline. A malformed set or
// deadline is [ErrInvalidArgument].
//
// A swap with a non-nil During mask is installed atomically with entering
// the blocked state, and the pre-call mask restored atomically with
// leaving it; see [SignalMaskSwap].
func (x *Multiplexer) Wait(set *ReadinessSet, deadline Deadline, swap *SignalMaskSwap) (int, error) {
	if set == nil {
		return 0, fmt.Errorf(`%w: nil readiness set`, ErrInvalidArgument)
	}
	if err := set.validate(); err != nil {
		return 0, err
	}
	set.reset()
	n, err := x.wait(set, deadline, swap)
	if b := x.logger.Debug(); b.Enabled() {
		b.Int(`channels`, set.Len()).
			Int(`ready`, n)
		if err != nil {
			b.Err(err)
		}
		b.Log(`multiplexer wait returned`)
	}
	return n, err
}
