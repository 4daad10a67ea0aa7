package model

import (
	"fmt"
	"math"

	"github.com/hupe1980/gosmo/table"
)

// Solution is the final solver state indexed by working position.
type Solution struct {
	Alpha  []float64
	Grad   []float64
	Labels []float64
	// Index maps a working position to the original sample index.
	Index []int
	C     float64
}

// Extract builds the model from a finished solution. Support vectors are the
// positions with alpha > 0, emitted in increasing position order.
func Extract(sol Solution, src table.Table) (*Model, error) {
	n := len(sol.Alpha)
	if len(sol.Grad) != n || len(sol.Labels) != n || len(sol.Index) != n {
		return nil, fmt.Errorf("model: solution length mismatch (alpha=%d grad=%d labels=%d index=%d)",
			n, len(sol.Grad), len(sol.Labels), len(sol.Index))
	}

	var (
		coef    []float64
		indices []int
	)
	for p, a := range sol.Alpha {
		if a > 0 {
			coef = append(coef, sol.Labels[p]*a)
			indices = append(indices, sol.Index[p])
		}
	}

	block, err := src.Gather(indices)
	if err != nil {
		return nil, fmt.Errorf("model: gather support vectors: %w", err)
	}

	return &Model{
		Layout:         src.Layout(),
		Features:       src.Cols(),
		SupportVectors: block,
		Coefficients:   coef,
		Indices:        indices,
		Bias:           Bias(sol),
	}, nil
}

// Bias computes the intercept. With free vectors (0 < alpha < C) it is the
// negated mean of y·grad over them; otherwise it is the negated midpoint of
// the feasible interval [lb, ub] where ub = min over I_up and lb = max over
// I_low of y·grad.
func Bias(sol Solution) float64 {
	var (
		sum    float64
		nFree  int
		ub, lb = math.Inf(1), math.Inf(-1)
	)
	for p, a := range sol.Alpha {
		y := sol.Labels[p]
		yg := y * sol.Grad[p]
		switch {
		case a > 0 && a < sol.C:
			sum += yg
			nFree++
		case (a <= 0) == (y > 0): // lower with y=+1 or upper with y=-1
			ub = min(ub, yg)
		default:
			lb = max(lb, yg)
		}
	}

	if nFree > 0 {
		return -sum / float64(nFree)
	}
	switch {
	case math.IsInf(ub, 1) && math.IsInf(lb, -1):
		return 0
	case math.IsInf(ub, 1):
		return -lb
	case math.IsInf(lb, -1):
		return -ub
	}
	return -(ub + lb) / 2
}
