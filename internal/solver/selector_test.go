package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRows serves fixed kernel rows and counts requests.
type stubRows struct {
	rows  map[int][]float64
	calls int
}

func (s *stubRows) row(pos, length int) ([]float64, error) {
	s.calls++
	return s.rows[pos][:length], nil
}

func lowerStatus(n int) []status {
	return make([]status, n)
}

func TestSelector_SecondOrderGain(t *testing.T) {
	ws := &workingSet{
		y:      []float64{1, 1, -1, -1},
		grad:   []float64{-1, -1, -1, -1},
		status: lowerStatus(4),
		diag:   []float64{1, 1, 1, 1},
		active: 4,
	}
	rows := &stubRows{rows: map[int][]float64{0: {1, 0, 0.5, 0}}}

	sel, converged, err := selector{tolerance: 1e-3, tau: 1e-12}.pick(ws, rows)
	require.NoError(t, err)
	require.False(t, converged)

	// i: both +1 samples violate equally, the lower position wins.
	assert.Equal(t, 0, sel.i)
	// j: quad 1 (gain 4) beats quad 2 (gain 2).
	assert.Equal(t, 2, sel.j)
	assert.InDelta(t, 2, sel.gap, 1e-15)
	assert.Equal(t, 1, rows.calls)
}

func TestSelector_TieBreaks(t *testing.T) {
	t.Run("equal gain prefers larger difference", func(t *testing.T) {
		ws := &workingSet{
			y:      []float64{1, -1, -1},
			grad:   []float64{-1, -1, -3},
			status: lowerStatus(3),
			diag:   []float64{1, 1, 3},
			active: 3,
		}
		// pos 1: diff 2, quad 1, gain 4; pos 2: diff 4, quad 4, gain 4.
		rows := &stubRows{rows: map[int][]float64{0: {1, 0.5, 0}}}

		sel, converged, err := selector{tolerance: 1e-3, tau: 1e-12}.pick(ws, rows)
		require.NoError(t, err)
		require.False(t, converged)
		assert.Equal(t, 2, sel.j)
	})

	t.Run("identical candidates prefer lower position", func(t *testing.T) {
		ws := &workingSet{
			y:      []float64{1, -1, -1},
			grad:   []float64{-1, -1, -1},
			status: lowerStatus(3),
			diag:   []float64{1, 1, 1},
			active: 3,
		}
		rows := &stubRows{rows: map[int][]float64{0: {1, 0, 0}}}

		sel, _, err := selector{tolerance: 1e-3, tau: 1e-12}.pick(ws, rows)
		require.NoError(t, err)
		assert.Equal(t, 1, sel.j)
	})
}

func TestSelector_Converged(t *testing.T) {
	ws := &workingSet{
		y:      []float64{1, -1},
		grad:   []float64{-0.0004, -0.0004},
		status: []status{statusFree, statusFree},
		diag:   []float64{1, 1},
		active: 2,
	}
	rows := &stubRows{}

	sel, converged, err := selector{tolerance: 1e-3, tau: 1e-12}.pick(ws, rows)
	require.NoError(t, err)
	assert.True(t, converged)
	assert.InDelta(t, 0.0008, sel.gap, 1e-15)
	assert.Equal(t, 0, rows.calls, "no kernel row is fetched on convergence")
}

func TestSelector_EmptyUpperSet(t *testing.T) {
	ws := &workingSet{
		y:      []float64{1, -1},
		grad:   []float64{-5, -5},
		status: []status{statusUpper, statusLower},
		diag:   []float64{1, 1},
		active: 2,
	}

	sel, converged, err := selector{tolerance: 1e-3, tau: 1e-12}.pick(ws, &stubRows{})
	require.NoError(t, err)
	assert.True(t, converged)
	assert.Equal(t, -1, sel.i)
}

func TestSelector_ActivePrefixOnly(t *testing.T) {
	ws := &workingSet{
		y:      []float64{1, -1, 1},
		grad:   []float64{-1, -1, -100},
		status: lowerStatus(3),
		diag:   []float64{1, 1, 1},
		active: 2,
	}
	rows := &stubRows{rows: map[int][]float64{0: {1, 0, 0}}}

	sel, _, err := selector{tolerance: 1e-3, tau: 1e-12}.pick(ws, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, sel.i)
	assert.Equal(t, 1, sel.j)
}

func TestSelector_CurvatureFloor(t *testing.T) {
	ws := &workingSet{
		y:      []float64{1, -1, -1},
		grad:   []float64{-1, -1, -1},
		status: lowerStatus(3),
		diag:   []float64{1, 1, 1},
		active: 3,
	}
	// pos 1 is a duplicate of pos 0: K_ii + K_jj - 2K_ij = 0 is floored at tau.
	rows := &stubRows{rows: map[int][]float64{0: {1, 1, 0}}}

	sel, _, err := selector{tolerance: 1e-3, tau: 1e-12}.pick(ws, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, sel.j)
}

func TestSelector_NaNRow(t *testing.T) {
	ws := &workingSet{
		y:      []float64{1, -1},
		grad:   []float64{-1, -1},
		status: lowerStatus(2),
		diag:   []float64{1, 1},
		active: 2,
	}
	rows := &stubRows{rows: map[int][]float64{0: {math.NaN(), math.NaN()}}}

	_, _, err := selector{tolerance: 1e-3, tau: 1e-12}.pick(ws, rows)
	assert.ErrorIs(t, err, ErrNumericalBreakdown)
}

func TestSelector_NonFiniteGradient(t *testing.T) {
	for _, g := range []float64{math.NaN(), math.Inf(1)} {
		ws := &workingSet{
			y:      []float64{1, -1, 1},
			grad:   []float64{-1, -1, g},
			status: lowerStatus(3),
			diag:   []float64{1, 1, 1},
			active: 3,
		}
		rows := &stubRows{rows: map[int][]float64{0: {1, 0, 0}}}

		_, _, err := selector{tolerance: 1e-3, tau: 1e-12}.pick(ws, rows)
		assert.ErrorIs(t, err, ErrNumericalBreakdown)
		assert.Zero(t, rows.calls)
	}
}
