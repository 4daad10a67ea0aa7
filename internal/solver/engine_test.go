package solver

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gosmo/internal/cache"
	"github.com/hupe1980/gosmo/kernel"
	"github.com/hupe1980/gosmo/model"
	"github.com/hupe1980/gosmo/resource"
	"github.com/hupe1980/gosmo/table"
	"github.com/hupe1980/gosmo/testutil"
)

func newEngine(t *testing.T, tbl table.Table, k kernel.Kernel, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(tbl, k, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// recomputeGradient evaluates grad_p = y_p Σ_q y_q alpha_q K(x_p, x_q) - 1
// from scratch, by working position.
func recomputeGradient(tbl table.Table, k kernel.Kernel, sol model.Solution) []float64 {
	n := len(sol.Alpha)
	g := make([]float64, n)
	for p := range n {
		var sum float64
		for q := range n {
			if sol.Alpha[q] == 0 {
				continue
			}
			sum += sol.Labels[q] * sol.Alpha[q] * k.Evaluate(tbl.Row(sol.Index[p]), tbl.Row(sol.Index[q]))
		}
		g[p] = sol.Labels[p]*sum - 1
	}
	return g
}

func coefficientsByIndex(m *model.Model) map[int]float64 {
	out := make(map[int]float64, m.NumSV())
	for r, idx := range m.Indices {
		out[idx] = m.Coefficients[r]
	}
	return out
}

func TestEngine_TwoPointClosedForm(t *testing.T) {
	tests := []struct {
		name   string
		x1, x2 []float64
	}{
		{"axis", []float64{2, 0}, []float64{0, 0}},
		{"offset", []float64{1, 2}, []float64{3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := table.NewDenseFromRows([][]float64{tt.x1, tt.x2}, []float64{1, -1})
			require.NoError(t, err)

			k := kernel.Linear{}
			e := newEngine(t, tbl, k, Config{C: 1, Tolerance: 1e-3})
			require.NoError(t, e.Run(context.Background()))

			k11, k22 := k.Evaluate(tbl.Row(0), tbl.Row(0)), k.Evaluate(tbl.Row(1), tbl.Row(1))
			d2 := kernel.SquaredDistance(tbl.Row(0), tbl.Row(1))

			assert.Equal(t, 1, e.Iterations())
			assert.Equal(t, StateConverged, e.State())

			sol := e.Solution()
			assert.InDelta(t, 2/d2, sol.Alpha[0], 1e-12)
			assert.InDelta(t, 2/d2, sol.Alpha[1], 1e-12)

			m, err := model.Extract(sol, tbl)
			require.NoError(t, err)
			assert.InDelta(t, -(k11-k22)/d2, m.Bias, 1e-12)
			assert.InDelta(t, 1, m.Decision(k, tbl.Row(0)), 1e-12)
			assert.InDelta(t, -1, m.Decision(k, tbl.Row(1)), 1e-12)
		})
	}
}

func TestEngine_Invariants(t *testing.T) {
	rng := testutil.NewRNG(7)
	dense, _ := rng.Blobs(80, 3, 1).Tables()
	k := kernel.RBF{Gamma: 0.5}
	cfg := Config{C: 1, Tolerance: 1e-4, Shrinking: true, ShrinkingPeriod: 5, Workers: 2}

	e := newEngine(t, dense, k, cfg)

	minActive := e.n
	e.observe = func(e *Engine) {
		var sum float64
		for p, a := range e.alpha {
			if a < 0 || a > cfg.C {
				t.Fatalf("iteration %d: alpha[%d]=%v outside [0, C]", e.iter, p, a)
			}
			sum += e.y[p] * a
		}
		if math.Abs(sum) > 1e-9 {
			t.Fatalf("iteration %d: Σ y·alpha = %v", e.iter, sum)
		}
		for p := range e.n {
			if e.where[e.index[p]] != p {
				t.Fatalf("iteration %d: position map broken at %d", e.iter, p)
			}
		}
		if int(e.ShrunkSet().GetCardinality()) != e.n-e.active {
			t.Fatalf("iteration %d: shrunk set out of sync", e.iter)
		}
		minActive = min(minActive, e.Active())
	}

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, StateConverged, e.State())
	assert.Less(t, e.Violation(), cfg.Tolerance)
	assert.Less(t, minActive, e.n, "shrinking never removed a sample")
	assert.Equal(t, e.n, e.Active())

	sol := e.Solution()
	want := recomputeGradient(dense, k, sol)
	for p := range want {
		assert.InDelta(t, want[p], sol.Grad[p], 1e-9, "grad at position %d", p)
	}

	hits, misses := e.CacheStats()
	assert.Positive(t, hits)
	assert.Positive(t, misses)
	assert.Less(t, e.Objective(), 0.0)
}

func TestEngine_LogsShrunkSamples(t *testing.T) {
	rng := testutil.NewRNG(7)
	dense, _ := rng.Blobs(80, 3, 1).Tables()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newEngine(t, dense, kernel.RBF{Gamma: 0.5},
		Config{C: 1, Tolerance: 1e-4, Shrinking: true, ShrinkingPeriod: 5},
		WithLogger(logger))
	require.NoError(t, e.Run(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"msg":"smo progress"`)
	assert.Contains(t, out, `"cached_rows":`)
	assert.Contains(t, out, `"msg":"smo shrink"`)
	assert.Contains(t, out, `"shrunk_samples":"{`)
}

func TestEngine_CacheCapacityDoesNotChangeResult(t *testing.T) {
	rng := testutil.NewRNG(11)
	dense, _ := rng.Blobs(60, 4, 1.5).Tables()
	k := kernel.RBF{Gamma: 0.25}

	run := func(capacity int) *Engine {
		e := newEngine(t, dense, k, Config{
			C:               2,
			Tolerance:       1e-3,
			CacheCapacity:   capacity,
			Shrinking:       true,
			ShrinkingPeriod: 10,
		})
		require.NoError(t, e.Run(context.Background()))
		return e
	}

	small, full := run(1), run(60)

	assert.Equal(t, 1, small.cache.Capacity())
	assert.Equal(t, full.Iterations(), small.Iterations())
	assert.Equal(t, full.Solution(), small.Solution())

	_, smallMisses := small.CacheStats()
	_, fullMisses := full.CacheStats()
	assert.Greater(t, smallMisses, fullMisses)
}

func TestEngine_ShrinkingMatchesUnshrunk(t *testing.T) {
	rng := testutil.NewRNG(3)
	dense, _ := rng.Blobs(120, 2, 3).Tables()
	k := kernel.Linear{}

	run := func(shrinking bool) (*Engine, *model.Model) {
		e := newEngine(t, dense, k, Config{
			C:               10,
			Tolerance:       1e-6,
			Shrinking:       shrinking,
			ShrinkingPeriod: 4,
		})
		require.NoError(t, e.Run(context.Background()))
		m, err := model.Extract(e.Solution(), dense)
		require.NoError(t, err)
		return e, m
	}

	eOn, on := run(true)
	eOff, off := run(false)

	assert.True(t, on.SupportSet().Equals(off.SupportSet()))
	onCoef, offCoef := coefficientsByIndex(on), coefficientsByIndex(off)
	for idx, c := range offCoef {
		assert.InDelta(t, c, onCoef[idx], 1e-3, "coefficient of sample %d", idx)
	}
	assert.InDelta(t, off.Bias, on.Bias, 1e-3)
	assert.InDelta(t, eOff.Objective(), eOn.Objective(), 1e-6)
}

func TestEngine_BiasWithoutFreeVectors(t *testing.T) {
	rng := testutil.NewRNG(21)
	dense, _ := rng.Blobs(40, 2, 0.2).Tables()
	cfg := Config{C: 1e-4, Tolerance: 1e-3, Shrinking: true}

	e := newEngine(t, dense, kernel.RBF{Gamma: 0.5}, cfg)
	require.NoError(t, e.Run(context.Background()))
	require.Equal(t, StateConverged, e.State())

	sol := e.Solution()
	ub, lb := math.Inf(1), math.Inf(-1)
	free := 0
	for p, a := range sol.Alpha {
		if a > 0 && a < cfg.C {
			free++
		}
		y, yg := sol.Labels[p], sol.Labels[p]*sol.Grad[p]
		if (y > 0 && a < cfg.C) || (y < 0 && a > 0) {
			ub = math.Min(ub, yg)
		}
		if (y > 0 && a > 0) || (y < 0 && a < cfg.C) {
			lb = math.Max(lb, yg)
		}
	}
	require.Zero(t, free, "every alpha should sit at a bound")

	m, err := model.Extract(sol, dense)
	require.NoError(t, err)
	assert.Equal(t, 40, m.NumSV())
	assert.InDelta(t, -(ub+lb)/2, m.Bias, 1e-12)
}

func TestEngine_IterationLimit(t *testing.T) {
	rng := testutil.NewRNG(5)
	dense, _ := rng.Blobs(40, 2, 0.5).Tables()

	e := newEngine(t, dense, kernel.RBF{Gamma: 1}, Config{C: 1, Tolerance: 1e-6, MaxIterations: 3, Shrinking: true, ShrinkingPeriod: 1})
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, 3, e.Iterations())
	assert.Equal(t, StateIterationLimit, e.State())
	assert.Equal(t, e.n, e.Active(), "shrunk samples are restored before extraction")
	assert.Greater(t, e.Violation(), 1e-6)
}

func TestEngine_NumericalBreakdown(t *testing.T) {
	tbl, err := table.NewDenseFromRows([][]float64{{1}, {-1}, {2}}, []float64{1, -1, 1})
	require.NoError(t, err)

	nan := kernel.Func(func(a, b table.Row) float64 { return math.NaN() })
	e := newEngine(t, tbl, nan, Config{C: 1, Tolerance: 1e-3})

	err = e.Run(context.Background())
	assert.ErrorIs(t, err, ErrNumericalBreakdown)
	assert.Equal(t, StateFailed, e.State())
}

func TestEngine_NonFiniteOffPairKernel(t *testing.T) {
	tbl, err := table.NewDenseFromRows([][]float64{{1, 0}, {-1, 0}, {5, 5}, {-2, 0}}, []float64{1, -1, 1, -1})
	require.NoError(t, err)

	// Only kernel values between (5, 5) and another sample are NaN, so the
	// first working pair (0, 1) is finite and the breakdown shows up in the
	// gradient of sample 2.
	isOutlier := func(r table.Row) bool { return r.Dense[0] == 5 && r.Dense[1] == 5 }
	k := kernel.Func(func(a, b table.Row) float64 {
		if isOutlier(a) != isOutlier(b) {
			return math.NaN()
		}
		return kernel.Dot(a, b)
	})

	for _, workers := range []int{1, 4} {
		e := newEngine(t, tbl, k, Config{C: 1, Tolerance: 1e-3, Workers: workers})
		err = e.Run(context.Background())
		require.ErrorIs(t, err, ErrNumericalBreakdown)
		assert.Contains(t, err.Error(), "sample 2")
		assert.Equal(t, StateFailed, e.State())
	}
}

func TestEngine_ContextCanceled(t *testing.T) {
	rng := testutil.NewRNG(9)
	dense, _ := rng.Blobs(20, 2, 1).Tables()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEngine(t, dense, kernel.Linear{}, Config{C: 1, Tolerance: 1e-3})
	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, e.State())
	assert.Equal(t, 0, e.Iterations())
}

func TestEngine_InvalidConfig(t *testing.T) {
	good, err := table.NewDenseFromRows([][]float64{{0}, {1}}, []float64{1, -1})
	require.NoError(t, err)
	badLabel, err := table.NewDenseFromRows([][]float64{{0}, {1}}, []float64{1, 0})
	require.NoError(t, err)

	tests := []struct {
		name string
		tbl  table.Table
		k    kernel.Kernel
		cfg  Config
	}{
		{"zero C", good, kernel.Linear{}, Config{C: 0, Tolerance: 1e-3}},
		{"NaN tolerance", good, kernel.Linear{}, Config{C: 1, Tolerance: math.NaN()}},
		{"nil kernel", good, nil, Config{C: 1, Tolerance: 1e-3}},
		{"label", badLabel, kernel.Linear{}, Config{C: 1, Tolerance: 1e-3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.tbl, tt.k, tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestEngine_CacheAllocationFailure(t *testing.T) {
	rng := testutil.NewRNG(1)
	dense, _ := rng.Blobs(16, 2, 1).Tables()

	// One row of 16 values needs 128 bytes.
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	_, err := New(dense, kernel.Linear{}, Config{C: 1, Tolerance: 1e-3}, WithResourceController(rc))
	assert.ErrorIs(t, err, cache.ErrAllocation)

	_, err = New(dense, kernel.Linear{}, Config{C: 1, Tolerance: 1e-3, CacheBytes: 64})
	assert.ErrorIs(t, err, cache.ErrAllocation)
}

func TestEngine_DenseAndCSRAgree(t *testing.T) {
	rng := testutil.NewRNG(21)
	dense, csr := rng.SparseBlobs(50, 6, 2, 0.4).Tables()
	k := kernel.RBF{Gamma: 0.2}
	cfg := Config{C: 1, Tolerance: 1e-5, Shrinking: true}

	a := newEngine(t, dense, k, cfg)
	require.NoError(t, a.Run(context.Background()))
	b := newEngine(t, csr, k, cfg)
	require.NoError(t, b.Run(context.Background()))

	ma, err := model.Extract(a.Solution(), dense)
	require.NoError(t, err)
	mb, err := model.Extract(b.Solution(), csr)
	require.NoError(t, err)

	assert.True(t, ma.SupportSet().Equals(mb.SupportSet()))
	assert.InDelta(t, ma.Bias, mb.Bias, 1e-6)
	ca, cb := coefficientsByIndex(ma), coefficientsByIndex(mb)
	for idx, c := range ca {
		assert.InDelta(t, c, cb[idx], 1e-6)
	}
}

func TestParallelFor(t *testing.T) {
	n := 5000
	seen := make([]int32, n)

	err := parallelFor(4, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
		return nil
	})
	require.NoError(t, err)
	for i, v := range seen {
		require.Equal(t, int32(1), v, "index %d", i)
	}

	boom := errors.New("boom")
	err = parallelFor(4, n, func(lo, hi int) error {
		if lo == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	calls := 0
	require.NoError(t, parallelFor(8, 10, func(lo, hi int) error {
		calls++
		assert.Equal(t, 0, lo)
		assert.Equal(t, 10, hi)
		return nil
	}))
	assert.Equal(t, 1, calls, "short ranges run inline")
}

func TestKernelMatrix_FollowsPositions(t *testing.T) {
	rng := testutil.NewRNG(2)
	_, csr := rng.SparseBlobs(10, 3, 1, 0.3).Tables()
	k := kernel.RBF{Gamma: 0.7}

	index := []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	km, err := newKernelMatrix(k, csr, index, 2)
	require.NoError(t, err)

	dst := make([]float64, 10)
	require.NoError(t, km.ComputeRow(3, dst, 0, 10))
	for p, orig := range index {
		assert.Equal(t, k.Evaluate(csr.Row(3), csr.Row(orig)), dst[p])
	}

	diag := km.diagonal()
	for p := range diag {
		assert.InDelta(t, 1, diag[p], 1e-15)
	}
}
