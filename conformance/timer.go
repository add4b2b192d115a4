package conformance

import (
	"fmt"
	"time"

	waitmux "github.com/joeycumines/go-waitmux"
)

type (
	// TimerConfig models the timeout accuracy scenario: a bounded
	// multiplexer wait with no outstanding events.
	TimerConfig struct {
		// Duration defaults to 500ms, if 0.
		Duration time.Duration
		// Tolerance is the allowed deviation either side of Duration.
		// Defaults to Duration/10, if 0.
		Tolerance time.Duration
	}

	// TimerResult reports the measured wait.
	TimerResult struct {
		Elapsed time.Duration
	}
)

// RunTimer waits on an empty readiness set with a finite deadline — a
// pure timer — and verifies the wait neither returned early nor
// overshot the tolerance band. An empty set reports nothing ready and no
// error, per the multiplexer contract.
func (x *Harness) RunTimer(cfg TimerConfig) (*TimerResult, error) {
	if cfg.Duration == 0 {
		cfg.Duration = 500 * time.Millisecond
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = cfg.Duration / 10
	}
	if cfg.Duration < 0 || cfg.Tolerance < 0 {
		return nil, fmt.Errorf(`%w: timer config %+v`, waitmux.ErrInvalidArgument, cfg)
	}

	deadline, err := waitmux.After(cfg.Duration)
	if err != nil {
		return nil, err
	}

	var set waitmux.ReadinessSet
	start := time.Now()
	n, err := x.mux().Wait(&set, deadline, nil)
	result := &TimerResult{Elapsed: time.Since(start)}

	x.Logger.Debug().
		Dur(`requested`, cfg.Duration).
		Dur(`elapsed`, result.Elapsed).
		Log(`timer scenario finished`)

	if err != nil {
		return result, fmt.Errorf(`conformance: empty-set timer errored: %w`, err)
	}
	if n != 0 {
		return result, fmt.Errorf(`conformance: empty-set timer reported %d ready channels`, n)
	}
	if result.Elapsed < cfg.Duration-cfg.Tolerance || result.Elapsed > cfg.Duration+cfg.Tolerance {
		return result, fmt.Errorf(`conformance: timer elapsed %s outside %s±%s`, result.Elapsed, cfg.Duration, cfg.Tolerance)
	}
	return result, nil
}
