package solver

import "errors"

var (
	// ErrNumericalBreakdown is returned when a coordinate step is not finite.
	ErrNumericalBreakdown = errors.New("solver: numerical breakdown")

	// ErrInvalidConfig is returned when the engine configuration is unusable.
	ErrInvalidConfig = errors.New("solver: invalid configuration")
)
