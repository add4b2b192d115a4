package waitmux

import "fmt"

// IOEvents is a bit set of I/O readiness conditions.
type IOEvents uint32

const (
	// EventRead indicates the channel would not block a read.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the channel would not block a write.
	EventWrite
	// EventError indicates an error condition on the channel.
	EventError
	// EventHangup indicates the peer closed its end of the channel.
	EventHangup
)

// interest directions callers may request; error and hangup conditions
// are always reported
const interestMask = EventRead | EventWrite

type (
	// Entry is one (channel, interest) element of a [ReadinessSet]. Each
	// entry produces an independent outcome after a wait: ready (with the
	// observed conditions), not ready, or invalid.
	Entry struct {
		fd       int
		interest IOEvents
		revents  IOEvents
		invalid  bool
	}

	// ReadinessSet is an ordered sequence of entries to wait on. The
	// channels are owned by the caller; the multiplexer never opens or
	// closes them. The zero value is an empty set, which turns a bounded
	// wait into a pure timer.
	ReadinessSet struct {
		entries []Entry
	}
)

// Add appends an entry for the given channel handle. interest must be a
// combination of [EventRead] and [EventWrite]; anything else fails
// validation at the next wait.
func (x *ReadinessSet) Add(fd int, interest IOEvents) {
	x.entries = append(x.entries, Entry{fd: fd, interest: interest})
}

// Len returns the number of entries.
func (x *ReadinessSet) Len() int { return len(x.entries) }

// Entry returns the i'th entry, in insertion order.
func (x *ReadinessSet) Entry(i int) *Entry { return &x.entries[i] }

func (x *ReadinessSet) reset() {
	for i := range x.entries {
		x.entries[i].revents = 0
		x.entries[i].invalid = false
	}
}

func (x *ReadinessSet) validate() error {
	for i := range x.entries {
		e := &x.entries[i]
		if e.fd < 0 {
			return fmt.Errorf(`%w: entry %d: negative fd %d`, ErrInvalidArgument, i, e.fd)
		}
		if e.interest&interestMask == 0 {
			return fmt.Errorf(`%w: entry %d: no read or write interest`, ErrInvalidArgument, i)
		}
		if e.interest&^interestMask != 0 {
			return fmt.Errorf(`%w: entry %d: interest %#x is not a request direction`, ErrInvalidArgument, i, uint32(e.interest))
		}
	}
	return nil
}

// FD returns the channel handle.
func (x *Entry) FD() int { return x.fd }

// Interest returns the requested directions.
func (x *Entry) Interest() IOEvents { return x.interest }

// Events returns the conditions observed by the last wait.
func (x *Entry) Events() IOEvents { return x.revents }

// Ready reports whether the last wait observed any condition on a valid
// channel.
func (x *Entry) Ready() bool { return !x.invalid && x.revents != 0 }

// Invalid reports whether the last wait found that the handle does not
// refer to an open resource. Reported per entry; it never fails the
// whole call.
func (x *Entry) Invalid() bool { return x.invalid }
