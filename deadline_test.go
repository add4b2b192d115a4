package waitmux

import (
	"errors"
	"testing"
	"time"
)

func TestAfter(t *testing.T) {
	for _, tc := range [...]struct {
		name      string
		duration  time.Duration
		wantErr   bool
		immediate bool
	}{
		{`positive`, 50 * time.Millisecond, false, false},
		{`zero is immediate`, 0, false, true},
		{`negative`, -time.Nanosecond, true, false},
		{`very negative`, -time.Hour, true, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			deadline, err := After(tc.duration)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf(`want ErrInvalidArgument, got %v`, err)
				}
				return
			}
			if err != nil {
				t.Fatalf(`unexpected error: %v`, err)
			}
			if deadline.IsImmediate() != tc.immediate {
				t.Errorf(`IsImmediate() = %v, want %v`, deadline.IsImmediate(), tc.immediate)
			}
			if deadline.IsInfinite() {
				t.Error(`After should never be infinite`)
			}
		})
	}
}

func TestDeadline_zeroValueBlocksForever(t *testing.T) {
	var deadline Deadline
	if !deadline.IsInfinite() {
		t.Error(`zero value should be infinite`)
	}
	if deadline.IsImmediate() || deadline.Expired() {
		t.Error(`zero value should neither poll nor expire`)
	}
	if deadline.Remaining() != 0 {
		t.Error(`Remaining is only meaningful for absolute deadlines`)
	}
	if !NoDeadline().IsInfinite() {
		t.Error(`NoDeadline should match the zero value`)
	}
}

func TestDeadline_immediateIsExpired(t *testing.T) {
	if !Immediate().Expired() {
		t.Error(`immediate deadlines are always expired`)
	}
}

func TestDeadline_remainingClampsAtZero(t *testing.T) {
	deadline := Until(time.Now().Add(-time.Second))
	if !deadline.Expired() {
		t.Error(`past deadline should be expired`)
	}
	if remaining := deadline.Remaining(); remaining != 0 {
		t.Errorf(`Remaining() = %s, want 0`, remaining)
	}
}

func TestDeadline_remainingDoesNotResetOnReread(t *testing.T) {
	deadline, err := After(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	first := deadline.Remaining()
	second := deadline.Remaining()
	if second > first {
		t.Errorf(`remaining grew between reads: %s then %s`, first, second)
	}
	if first > time.Hour {
		t.Errorf(`Remaining() = %s, exceeds the requested duration`, first)
	}
}
