package waitmux

import (
	"errors"
	"testing"
)

func TestMultiplexer_Wait_nilSet(t *testing.T) {
	var mux Multiplexer
	if _, err := mux.Wait(nil, Immediate(), nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf(`want ErrInvalidArgument, got %v`, err)
	}
}

func TestMultiplexer_Wait_malformedEntries(t *testing.T) {
	for _, tc := range [...]struct {
		name     string
		fd       int
		interest IOEvents
	}{
		{`negative fd`, -1, EventRead},
		{`no direction`, 0, 0},
		{`error is not a direction`, 0, EventError},
		{`hangup is not a direction`, 0, EventHangup},
		{`direction plus condition`, 0, EventRead | EventError},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var mux Multiplexer
			var set ReadinessSet
			set.Add(tc.fd, tc.interest)
			if _, err := mux.Wait(&set, Immediate(), nil); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf(`want ErrInvalidArgument, got %v`, err)
			}
		})
	}
}

func TestNewMultiplexer(t *testing.T) {
	if _, err := NewMultiplexer(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewMultiplexer(nil, WithMultiplexerLogger(nil)); err != nil {
		t.Fatal(err)
	}
}
