//go:build !linux

package waitmux

import (
	"errors"
	"fmt"
)

func (x *Multiplexer) wait(set *ReadinessSet, deadline Deadline, swap *SignalMaskSwap) (int, error) {
	return 0, fmt.Errorf(`waitmux: readiness multiplexer: %w`, errors.ErrUnsupported)
}
