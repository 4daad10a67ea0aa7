package solver

import (
	"context"
	"log/slog"
	"math"
)

// shrink moves samples that are bound and unlikely to move behind the active
// boundary. Once the gap drops below ten times the tolerance the full set is
// restored a single time, so that the final iterations see every sample.
func (e *Engine) shrink() error {
	gmax1, gmax2 := e.shrinkBounds()

	if !e.unshrunk && gmax1+gmax2 <= 10*e.cfg.Tolerance {
		e.unshrunk = true
		if err := e.unshrink(); err != nil {
			return err
		}
	}

	before := e.active
	swapped := false
	for i := 0; i < e.active; i++ {
		if !e.beShrunk(i, gmax1, gmax2) {
			continue
		}
		e.active--
		for e.active > i {
			if !e.beShrunk(e.active, gmax1, gmax2) {
				e.swap(i, e.active)
				swapped = true
				break
			}
			e.active--
		}
	}

	if swapped {
		if err := e.km.regather(e.index); err != nil {
			return err
		}
	}
	if e.active != before && e.logger.Enabled(context.Background(), slog.LevelDebug) {
		e.logger.Debug("smo shrink",
			"iteration", e.iter,
			"active", e.active,
			"shrunk", e.n-e.active,
			"shrunk_samples", e.ShrunkSet().String())
	}
	return nil
}

// shrinkBounds returns max over I_up of -y·grad and max over I_low of y·grad
// on the active set.
func (e *Engine) shrinkBounds() (gmax1, gmax2 float64) {
	gmax1, gmax2 = math.Inf(-1), math.Inf(-1)
	for t := 0; t < e.active; t++ {
		yg := e.y[t] * e.grad[t]
		if inUp(e.y[t], e.status[t]) {
			gmax1 = max(gmax1, -yg)
		}
		if inLow(e.y[t], e.status[t]) {
			gmax2 = max(gmax2, yg)
		}
	}
	return gmax1, gmax2
}

// beShrunk reports whether the bound sample at position t cannot be part of
// a violating pair given the current bounds.
func (e *Engine) beShrunk(t int, gmax1, gmax2 float64) bool {
	switch e.status[t] {
	case statusUpper:
		if e.y[t] > 0 {
			return -e.grad[t] > gmax1
		}
		return -e.grad[t] > gmax2
	case statusLower:
		if e.y[t] > 0 {
			return e.grad[t] > gmax2
		}
		return e.grad[t] > gmax1
	default:
		return false
	}
}

// swap exchanges working positions i and j in every per-position array and
// in the resident cache rows.
func (e *Engine) swap(i, j int) {
	e.y[i], e.y[j] = e.y[j], e.y[i]
	e.alpha[i], e.alpha[j] = e.alpha[j], e.alpha[i]
	e.grad[i], e.grad[j] = e.grad[j], e.grad[i]
	e.gradBar[i], e.gradBar[j] = e.gradBar[j], e.gradBar[i]
	e.status[i], e.status[j] = e.status[j], e.status[i]
	e.diag[i], e.diag[j] = e.diag[j], e.diag[i]
	e.index[i], e.index[j] = e.index[j], e.index[i]
	e.where[e.index[i]] = i
	e.where[e.index[j]] = j
	e.cache.SwapColumns(i, j)
}

// reconstructGradient recomputes grad for shrunk positions from gradBar and
// the free vectors of the active set.
func (e *Engine) reconstructGradient() error {
	if e.active == e.n {
		return nil
	}
	for t := e.active; t < e.n; t++ {
		e.grad[t] = e.gradBar[t] - 1
	}

	nFree := 0
	for t := 0; t < e.active; t++ {
		if e.status[t] == statusFree {
			nFree++
		}
	}

	// Pick the cheaper of fetching shrunk rows over the active prefix or free
	// rows over the full width.
	if nFree*e.n > 2*e.active*(e.n-e.active) {
		for i := e.active; i < e.n; i++ {
			q, err := e.row(i, e.active)
			if err != nil {
				return err
			}
			var sum float64
			for j := 0; j < e.active; j++ {
				if e.status[j] == statusFree {
					sum += e.alpha[j] * e.y[j] * q[j]
				}
			}
			e.grad[i] += e.y[i] * sum
		}
		return nil
	}

	for i := 0; i < e.active; i++ {
		if e.status[i] != statusFree {
			continue
		}
		q, err := e.row(i, e.n)
		if err != nil {
			return err
		}
		ay := e.alpha[i] * e.y[i]
		for j := e.active; j < e.n; j++ {
			e.grad[j] += ay * e.y[j] * q[j]
		}
	}
	return nil
}
