package gosmo

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/gosmo/internal/cache"
	"github.com/hupe1980/gosmo/internal/solver"
)

var (
	// ErrInvalidParameter is returned for unusable configurations or inputs.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrAllocation is returned when the kernel cache cannot reserve a single row.
	ErrAllocation = errors.New("kernel cache allocation failed")

	// ErrNumericalBreakdown is returned when the optimizer produces a non-finite step.
	ErrNumericalBreakdown = errors.New("numerical breakdown")
)

// ErrorKind classifies a TrainingError.
type ErrorKind uint8

const (
	KindInvalidParameter ErrorKind = iota + 1
	KindAllocation
	KindNumericalBreakdown
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidParameter:
		return "invalid parameter"
	case KindAllocation:
		return "allocation"
	case KindNumericalBreakdown:
		return "numerical breakdown"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// TrainingError reports why a training run failed and after how many
// iterations.
//
// It matches the package sentinel of its kind with errors.Is; the original
// underlying error can be accessed via errors.Unwrap.
type TrainingError struct {
	Kind      ErrorKind
	Iteration int
	cause     error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training failed at iteration %d (%s): %v", e.Iteration, e.Kind, e.cause)
}

func (e *TrainingError) Unwrap() error { return e.cause }

// Is matches the sentinel that corresponds to e.Kind.
func (e *TrainingError) Is(target error) bool {
	switch e.Kind {
	case KindInvalidParameter:
		return target == ErrInvalidParameter
	case KindAllocation:
		return target == ErrAllocation
	case KindNumericalBreakdown:
		return target == ErrNumericalBreakdown
	}
	return false
}

func translateError(err error, iteration int) error {
	if err == nil {
		return nil
	}

	var te *TrainingError
	if errors.As(err, &te) {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidParameter), errors.Is(err, solver.ErrInvalidConfig):
		return &TrainingError{Kind: KindInvalidParameter, Iteration: iteration, cause: err}
	case errors.Is(err, cache.ErrAllocation):
		return &TrainingError{Kind: KindAllocation, Iteration: iteration, cause: err}
	case errors.Is(err, solver.ErrNumericalBreakdown):
		return &TrainingError{Kind: KindNumericalBreakdown, Iteration: iteration, cause: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &TrainingError{Kind: KindCanceled, Iteration: iteration, cause: err}
	}
	return err
}
