package waitmux

import (
	"fmt"
	"time"
)

type deadlineKind uint8

const (
	deadlineInfinite deadlineKind = iota
	deadlineImmediate
	deadlineAt
)

// Deadline bounds a blocking call. The zero value blocks until an event.
//
// Relative durations are converted to an absolute point on the monotonic
// clock at construction, so retrying a wait after a spurious wake or an
// interruption does not reset the window.
type Deadline struct {
	at   time.Time
	kind deadlineKind
}

// NoDeadline returns a Deadline that never expires: the wait blocks until
// a qualifying event. Equivalent to the zero value.
func NoDeadline() Deadline { return Deadline{} }

// Immediate returns a Deadline that polls: the wait checks its condition
// exactly once and returns without blocking.
func Immediate() Deadline { return Deadline{kind: deadlineImmediate} }

// After returns a Deadline the given duration from now. A zero duration
// is equivalent to [Immediate]. A negative duration is a caller error,
// reported as [ErrInvalidArgument] rather than silently clamped.
func After(d time.Duration) (Deadline, error) {
	if d < 0 {
		return Deadline{}, fmt.Errorf(`%w: negative duration %s`, ErrInvalidArgument, d)
	}
	if d == 0 {
		return Immediate(), nil
	}
	return Deadline{at: time.Now().Add(d), kind: deadlineAt}, nil
}

// Until returns a Deadline at the given absolute time.
func Until(t time.Time) Deadline {
	return Deadline{at: t, kind: deadlineAt}
}

// IsInfinite reports whether the deadline blocks until an event.
func (x Deadline) IsInfinite() bool { return x.kind == deadlineInfinite }

// IsImmediate reports whether the deadline polls without blocking.
func (x Deadline) IsImmediate() bool { return x.kind == deadlineImmediate }

// Remaining returns the time left before the deadline, clamped at zero.
// It is only meaningful for deadlines constructed via [After] or [Until].
func (x Deadline) Remaining() time.Duration {
	if x.kind != deadlineAt {
		return 0
	}
	if d := time.Until(x.at); d > 0 {
		return d
	}
	return 0
}

// Expired reports whether the deadline has passed. Infinite deadlines
// never expire; immediate deadlines always have.
func (x Deadline) Expired() bool {
	switch x.kind {
	case deadlineImmediate:
		return true
	case deadlineAt:
		return !x.at.After(time.Now())
	default:
		return false
	}
}
