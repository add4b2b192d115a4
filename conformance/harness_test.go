package conformance

import (
	"context"
	"errors"
	"testing"
	"time"

	waitmux "github.com/joeycumines/go-waitmux"
)

func TestHarness_RunContention(t *testing.T) {
	h := &Harness{Logger: newTestLogger(t)}
	result, err := h.RunContention(context.Background(), ContentionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Counter != 400 {
		t.Fatalf(`counter = %d, want 400`, result.Counter)
	}
}

func TestHarness_RunContention_bounded(t *testing.T) {
	h := &Harness{Logger: newTestLogger(t)}
	result, err := h.RunContention(context.Background(), ContentionConfig{
		Workers:    8,
		Iterations: 50,
		Bound:      5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Counter != 400 {
		t.Fatalf(`counter = %d, want 400`, result.Counter)
	}
}

func TestHarness_RunContention_explicitQueue(t *testing.T) {
	queue, err := waitmux.NewWaitQueue()
	if err != nil {
		t.Fatal(err)
	}
	h := &Harness{Queue: queue}
	result, err := h.RunContention(context.Background(), ContentionConfig{Workers: 2, Iterations: 25})
	if err != nil {
		t.Fatal(err)
	}
	if result.Counter != 50 {
		t.Fatalf(`counter = %d, want 50`, result.Counter)
	}
}

func TestHarness_RunContention_invalidConfig(t *testing.T) {
	var h Harness
	for _, tc := range [...]struct {
		name string
		cfg  ContentionConfig
	}{
		{`negative workers`, ContentionConfig{Workers: -1}},
		{`negative iterations`, ContentionConfig{Iterations: -1}},
		{`negative bound`, ContentionConfig{Bound: -time.Second}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.RunContention(context.Background(), tc.cfg); !errors.Is(err, waitmux.ErrInvalidArgument) {
				t.Fatalf(`want ErrInvalidArgument, got %v`, err)
			}
		})
	}
}

func TestHarness_RunContention_cancelledContext(t *testing.T) {
	var h Harness
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.RunContention(ctx, ContentionConfig{}); !errors.Is(err, context.Canceled) {
		t.Fatalf(`want context.Canceled, got %v`, err)
	}
}

func TestHarness_RunWakeBound(t *testing.T) {
	h := &Harness{Logger: newTestLogger(t)}
	result, err := h.RunWakeBound(context.Background(), WakeBoundConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if result.FirstWake < 1 || result.FirstWake > 2 {
		t.Fatalf(`FirstWake = %d, want 1..2`, result.FirstWake)
	}
}

func TestHarness_RunWakeBound_largerPool(t *testing.T) {
	var h Harness
	result, err := h.RunWakeBound(context.Background(), WakeBoundConfig{
		Waiters: 8,
		MaxWake: 3,
		Settle:  100 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.FirstWake < 1 || result.FirstWake > 3 {
		t.Fatalf(`FirstWake = %d, want 1..3`, result.FirstWake)
	}
	if result.TotalWoken < result.FirstWake {
		t.Fatalf(`TotalWoken = %d, less than FirstWake = %d`, result.TotalWoken, result.FirstWake)
	}
}

func TestHarness_RunWakeBound_invalidConfig(t *testing.T) {
	var h Harness
	if _, err := h.RunWakeBound(context.Background(), WakeBoundConfig{Waiters: 2, MaxWake: 4}); !errors.Is(err, waitmux.ErrInvalidArgument) {
		t.Fatalf(`want ErrInvalidArgument, got %v`, err)
	}
}
