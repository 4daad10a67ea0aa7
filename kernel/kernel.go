// Package kernel defines the kernel evaluator contract used by the solver and
// ships reference evaluators (linear, polynomial, RBF, sigmoid).
//
// Evaluators are pure functions of two rows. Rows may be dense or sparse; a
// dense and a sparse encoding of the same vectors evaluate to the same value
// up to floating-point summation order. Kernel rows are filled from several
// goroutines, so evaluators must be safe for concurrent use.
package kernel

import (
	"fmt"
	"math"

	"github.com/hupe1980/gosmo/table"
)

// Kernel evaluates K(a, b).
type Kernel interface {
	Evaluate(a, b table.Row) float64
}

// RowEvaluator is implemented by kernels that can fill a row of kernel values
// in one call. dst[r] = K(x, block.Row(r)) for r in [from, to).
type RowEvaluator interface {
	EvaluateRow(x table.Row, block *table.Block, from, to int, dst []float64)
}

// Func adapts a plain function to the Kernel interface.
type Func func(a, b table.Row) float64

// Evaluate calls f(a, b).
func (f Func) Evaluate(a, b table.Row) float64 { return f(a, b) }

// FillRow writes K(x, block.Row(r)) into dst[r] for r in [from, to).
func FillRow(k Kernel, x table.Row, block *table.Block, from, to int, dst []float64) {
	if re, ok := k.(RowEvaluator); ok {
		re.EvaluateRow(x, block, from, to, dst)
		return
	}
	for r := from; r < to; r++ {
		dst[r] = k.Evaluate(x, block.Row(r))
	}
}

// Linear is K(a, b) = <a, b>.
type Linear struct{}

// Evaluate implements Kernel.
func (Linear) Evaluate(a, b table.Row) float64 { return Dot(a, b) }

// EvaluateRow implements RowEvaluator.
func (Linear) EvaluateRow(x table.Row, block *table.Block, from, to int, dst []float64) {
	for r := from; r < to; r++ {
		dst[r] = Dot(x, block.Row(r))
	}
}

func (Linear) String() string { return "linear" }

// Polynomial is K(a, b) = (Gamma·<a, b> + Coef0)^Degree.
type Polynomial struct {
	Gamma  float64
	Coef0  float64
	Degree int
}

// Evaluate implements Kernel.
func (p Polynomial) Evaluate(a, b table.Row) float64 {
	return powi(p.Gamma*Dot(a, b)+p.Coef0, p.Degree)
}

func (p Polynomial) String() string {
	return fmt.Sprintf("poly(gamma=%g, coef0=%g, degree=%d)", p.Gamma, p.Coef0, p.Degree)
}

// RBF is K(a, b) = exp(-Gamma·|a-b|²).
type RBF struct {
	Gamma float64
}

// Evaluate implements Kernel.
func (k RBF) Evaluate(a, b table.Row) float64 {
	return math.Exp(-k.Gamma * SquaredDistance(a, b))
}

// EvaluateRow implements RowEvaluator.
func (k RBF) EvaluateRow(x table.Row, block *table.Block, from, to int, dst []float64) {
	for r := from; r < to; r++ {
		dst[r] = math.Exp(-k.Gamma * SquaredDistance(x, block.Row(r)))
	}
}

func (k RBF) String() string { return fmt.Sprintf("rbf(gamma=%g)", k.Gamma) }

// Sigmoid is K(a, b) = tanh(Gamma·<a, b> + Coef0).
type Sigmoid struct {
	Gamma float64
	Coef0 float64
}

// Evaluate implements Kernel.
func (s Sigmoid) Evaluate(a, b table.Row) float64 {
	return math.Tanh(s.Gamma*Dot(a, b) + s.Coef0)
}

func (s Sigmoid) String() string {
	return fmt.Sprintf("sigmoid(gamma=%g, coef0=%g)", s.Gamma, s.Coef0)
}

// powi computes base^times by repeated squaring.
func powi(base float64, times int) float64 {
	tmp, ret := base, 1.0
	for t := times; t > 0; t /= 2 {
		if t%2 == 1 {
			ret *= tmp
		}
		tmp *= tmp
	}
	return ret
}
