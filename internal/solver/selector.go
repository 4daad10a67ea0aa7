package solver

import "math"

// rowProvider returns the kernel row of the sample at a working position,
// valid for positions [0, length).
type rowProvider interface {
	row(pos, length int) ([]float64, error)
}

// workingSet is the part of the engine state the selector reads.
type workingSet struct {
	y      []float64
	grad   []float64
	status []status
	diag   []float64
	active int
}

// selection is a working pair together with the maximal KKT gap of the
// active set.
type selection struct {
	i, j int
	gap  float64
}

// selector implements maximal-violating-pair selection with second-order
// gain for the second index.
type selector struct {
	tolerance float64
	tau       float64
}

// pick returns the next working pair. converged is true when no pair
// violates the KKT conditions by at least the tolerance; in that case
// sel.gap still holds the final violation and i, j are -1.
func (s selector) pick(ws *workingSet, rows rowProvider) (sel selection, converged bool, err error) {
	gmax, gmin := math.Inf(-1), math.Inf(1)
	i := -1
	for t := 0; t < ws.active; t++ {
		v := -ws.y[t] * ws.grad[t]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return selection{i: -1, j: -1}, false, ErrNumericalBreakdown
		}
		if inUp(ws.y[t], ws.status[t]) && v > gmax {
			gmax, i = v, t
		}
		if inLow(ws.y[t], ws.status[t]) && v < gmin {
			gmin = v
		}
	}

	sel = selection{i: -1, j: -1}
	if i < 0 || math.IsInf(gmin, 1) {
		return sel, true, nil
	}
	sel.gap = gmax - gmin
	if sel.gap < s.tolerance {
		return sel, true, nil
	}

	qi, err := rows.row(i, ws.active)
	if err != nil {
		return sel, false, err
	}

	best, bestDiff := math.Inf(-1), 0.0
	j := -1
	for t := 0; t < ws.active; t++ {
		if !inLow(ws.y[t], ws.status[t]) {
			continue
		}
		diff := gmax + ws.y[t]*ws.grad[t]
		if diff <= 0 {
			continue
		}
		quad := max(ws.diag[i]+ws.diag[t]-2*qi[t], s.tau)
		gain := diff * diff / quad
		if gain > best || (gain == best && diff > bestDiff) {
			best, bestDiff, j = gain, diff, t
		}
	}
	if j < 0 {
		return sel, false, ErrNumericalBreakdown
	}

	sel.i, sel.j = i, j
	return sel, false, nil
}
