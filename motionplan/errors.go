package motionplan

import "github.com/pkg/errors"

// ErrNonFiniteIntegration is returned when the integrator produces NaN or Inf. The caller treats it
// as fatal for the planning cycle.
var ErrNonFiniteIntegration = errors.New("trajectory integration produced a non-finite state")

// NewUnknownModeError is returned for a synthesis mode outside the closed set.
func NewUnknownModeError(m Mode) error {
	return errors.Errorf("unknown synthesis mode %d", int(m))
}
