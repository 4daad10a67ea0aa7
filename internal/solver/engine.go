package solver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/time/rate"

	"github.com/hupe1980/gosmo/internal/cache"
	"github.com/hupe1980/gosmo/kernel"
	"github.com/hupe1980/gosmo/model"
	"github.com/hupe1980/gosmo/resource"
	"github.com/hupe1980/gosmo/table"
)

// State is the lifecycle state of an Engine.
type State uint8

const (
	// StateRunning is the state of a fresh or iterating engine.
	StateRunning State = iota
	// StateConverged means the KKT conditions hold within the tolerance.
	StateConverged
	// StateIterationLimit means the iteration limit was hit first.
	StateIterationLimit
	// StateFailed means Run returned an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateConverged:
		return "converged"
	case StateIterationLimit:
		return "iteration-limit"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

const (
	defaultTau          = 1e-12
	defaultMaxIter      = 10_000_000
	defaultShrinkPeriod = 1000
)

// Config holds solver parameters. Zero values select defaults, except for C
// and Tolerance which must be positive.
type Config struct {
	C         float64
	Tolerance float64
	Tau       float64

	// CacheCapacity is the number of cached kernel rows. If 0, the capacity is
	// derived from CacheBytes; if both are 0 every row may be cached.
	CacheCapacity int
	CacheBytes    int64

	MaxIterations   int
	Shrinking       bool
	ShrinkingPeriod int
	Workers         int
}

func (c Config) withDefaults(n int) Config {
	if c.Tau <= 0 {
		c.Tau = defaultTau
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = max(defaultMaxIter, 100*n)
	}
	if c.ShrinkingPeriod <= 0 {
		c.ShrinkingPeriod = min(n, defaultShrinkPeriod)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.CacheCapacity <= 0 && c.CacheBytes <= 0 {
		c.CacheCapacity = n
	}
	return c
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for progress and shrinking events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithResourceController reserves cache memory with rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(e *Engine) {
		e.rc = rc
	}
}

// Engine runs SMO on one training table.
//
// All per-sample arrays are indexed by working position. Positions
// [0, active) form the active set; the remaining positions are shrunk.
// index maps a position to its original sample and where is the inverse.
type Engine struct {
	cfg    Config
	tbl    table.Table
	logger *slog.Logger
	rc     *resource.Controller

	km    *kernelMatrix
	cache *cache.RowCache
	sel   selector

	n       int
	y       []float64
	alpha   []float64
	grad    []float64
	gradBar []float64
	diag    []float64
	status  []status
	index   []int
	where   []int

	active   int
	unshrunk bool
	scratch  []float64

	iter      int
	violation float64
	state     State

	progress rate.Sometimes

	// observe is called after every coordinate step.
	observe func(e *Engine)
}

// New prepares an engine for tbl. Labels must be +1 or -1.
func New(tbl table.Table, k kernel.Kernel, cfg Config, opts ...Option) (*Engine, error) {
	n := tbl.Len()
	if n == 0 || k == nil {
		return nil, fmt.Errorf("%w: need samples and a kernel", ErrInvalidConfig)
	}
	if !(cfg.C > 0) || !(cfg.Tolerance > 0) {
		return nil, fmt.Errorf("%w: C=%v tolerance=%v", ErrInvalidConfig, cfg.C, cfg.Tolerance)
	}
	cfg = cfg.withDefaults(n)

	e := &Engine{
		cfg:      cfg,
		tbl:      tbl,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		sel:      selector{tolerance: cfg.Tolerance, tau: cfg.Tau},
		n:        n,
		y:        make([]float64, n),
		alpha:    make([]float64, n),
		grad:     make([]float64, n),
		gradBar:  make([]float64, n),
		status:   make([]status, n),
		index:    make([]int, n),
		where:    make([]int, n),
		active:   n,
		progress: rate.Sometimes{Interval: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}

	for t := range n {
		y := tbl.Label(t)
		if y != 1 && y != -1 {
			return nil, fmt.Errorf("%w: label %v at sample %d", ErrInvalidConfig, y, t)
		}
		e.y[t] = y
		e.grad[t] = -1
		e.index[t] = t
		e.where[t] = t
	}

	km, err := newKernelMatrix(k, tbl, e.index, cfg.Workers)
	if err != nil {
		return nil, err
	}
	e.km = km
	e.diag = km.diagonal()

	rows, err := cache.New(cache.Config{
		Keys:     n,
		Width:    n,
		Capacity: cfg.CacheCapacity,
		Budget:   cfg.CacheBytes,
	}, km, e.rc)
	if err != nil {
		return nil, err
	}
	e.cache = rows
	if rows.Capacity() < 2 {
		e.scratch = make([]float64, n)
	}

	return e, nil
}

// Run iterates until convergence, the iteration limit or an error. Hitting
// the iteration limit is not an error.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.run(ctx); err != nil {
		e.state = StateFailed
		return err
	}
	return nil
}

func (e *Engine) run(ctx context.Context) error {
	counter := min(e.n, e.cfg.ShrinkingPeriod) + 1

	for e.iter < e.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return err
		}

		if e.cfg.Shrinking {
			counter--
			if counter == 0 {
				counter = min(e.n, e.cfg.ShrinkingPeriod)
				if err := e.shrink(); err != nil {
					return err
				}
			}
		}

		sel, converged, err := e.sel.pick(e.workingSet(), e)
		if err != nil {
			return err
		}
		if converged {
			e.violation = max(sel.gap, 0)
			if e.active == e.n {
				e.state = StateConverged
				break
			}
			if err := e.unshrink(); err != nil {
				return err
			}
			sel, converged, err = e.sel.pick(e.workingSet(), e)
			if err != nil {
				return err
			}
			if converged {
				e.violation = max(sel.gap, 0)
				e.state = StateConverged
				break
			}
			counter = 1
		}

		if err := e.step(sel.i, sel.j); err != nil {
			return err
		}
		e.iter++
		e.violation = sel.gap

		if e.observe != nil {
			e.observe(e)
		}
		e.progress.Do(func() {
			e.logger.Info("smo progress",
				"iteration", e.iter,
				"violation", e.violation,
				"active", e.active,
				"cached_rows", e.cache.Len())
		})
	}

	if e.state != StateConverged {
		e.state = StateIterationLimit
		e.logger.Warn("smo reached iteration limit", "iterations", e.iter, "violation", e.violation)
	}
	if e.active < e.n {
		return e.unshrink()
	}
	return nil
}

// unshrink restores the full active set.
func (e *Engine) unshrink() error {
	if err := e.reconstructGradient(); err != nil {
		return err
	}
	e.active = e.n
	e.logger.Debug("smo unshrink", "iteration", e.iter)
	return nil
}

func (e *Engine) workingSet() *workingSet {
	return &workingSet{
		y:      e.y,
		grad:   e.grad,
		status: e.status,
		diag:   e.diag,
		active: e.active,
	}
}

// row implements rowProvider.
func (e *Engine) row(pos, length int) ([]float64, error) {
	return e.cache.Get(e.index[pos], length)
}

// step moves alpha[i] and alpha[j] analytically and refreshes the gradient.
func (e *Engine) step(i, j int) error {
	qi, err := e.row(i, e.active)
	if err != nil {
		return err
	}
	if e.scratch != nil {
		qi = e.scratch[:copy(e.scratch, qi)]
	}
	qj, err := e.row(j, e.active)
	if err != nil {
		return err
	}

	c := e.cfg.C
	yi, yj := e.y[i], e.y[j]
	oldAi, oldAj := e.alpha[i], e.alpha[j]
	ai, aj := oldAi, oldAj
	quad := max(e.diag[i]+e.diag[j]-2*qi[j], e.cfg.Tau)

	if yi != yj {
		delta := (-e.grad[i] - e.grad[j]) / quad
		diff := ai - aj
		ai += delta
		aj += delta
		if diff > 0 {
			if aj < 0 {
				aj, ai = 0, diff
			}
		} else if ai < 0 {
			ai, aj = 0, -diff
		}
		if diff > 0 {
			if ai > c {
				ai, aj = c, c-diff
			}
		} else if aj > c {
			aj, ai = c, c+diff
		}
	} else {
		delta := (e.grad[i] - e.grad[j]) / quad
		sum := ai + aj
		ai -= delta
		aj += delta
		if sum > c {
			if ai > c {
				ai, aj = c, sum-c
			}
		} else if aj < 0 {
			aj, ai = 0, sum
		}
		if sum > c {
			if aj > c {
				aj, ai = c, sum-c
			}
		} else if ai < 0 {
			ai, aj = 0, sum
		}
	}

	if !finite(ai) || !finite(aj) {
		return fmt.Errorf("%w: iteration %d pair (%d, %d)", ErrNumericalBreakdown, e.iter, e.index[i], e.index[j])
	}

	e.alpha[i], e.alpha[j] = ai, aj
	dai, daj := (ai-oldAi)*yi, (aj-oldAj)*yj

	y, grad := e.y, e.grad
	if err := parallelFor(e.cfg.Workers, e.active, func(lo, hi int) error {
		for k := lo; k < hi; k++ {
			grad[k] += y[k] * (dai*qi[k] + daj*qj[k])
			if !finite(grad[k]) {
				return fmt.Errorf("%w: iteration %d gradient of sample %d", ErrNumericalBreakdown, e.iter, e.index[k])
			}
		}
		return nil
	}); err != nil {
		return err
	}

	wasUpperI, wasUpperJ := e.status[i] == statusUpper, e.status[j] == statusUpper
	e.status[i] = statusOf(ai, c)
	e.status[j] = statusOf(aj, c)

	if err := e.updateGradBar(i, wasUpperI); err != nil {
		return err
	}
	return e.updateGradBar(j, wasUpperJ)
}

// updateGradBar adds or removes the contribution C·Q_pk of position p when it
// entered or left the upper bound.
func (e *Engine) updateGradBar(p int, wasUpper bool) error {
	isUpper := e.status[p] == statusUpper
	if wasUpper == isUpper {
		return nil
	}
	q, err := e.row(p, e.n)
	if err != nil {
		return err
	}
	scale := e.cfg.C * e.y[p]
	if wasUpper {
		scale = -scale
	}
	for k := range e.n {
		e.gradBar[k] += scale * e.y[k] * q[k]
	}
	return nil
}

// Solution returns the solver state for model extraction. The returned
// slices alias the engine's state.
func (e *Engine) Solution() model.Solution {
	return model.Solution{
		Alpha:  e.alpha,
		Grad:   e.grad,
		Labels: e.y,
		Index:  e.index,
		C:      e.cfg.C,
	}
}

// Iterations returns the number of coordinate steps taken.
func (e *Engine) Iterations() int { return e.iter }

// Violation returns the last observed maximal KKT gap.
func (e *Engine) Violation() float64 { return e.violation }

// State returns the engine state.
func (e *Engine) State() State { return e.state }

// Active returns the size of the active set.
func (e *Engine) Active() int { return e.active }

// Objective returns the dual objective ½ Σ alpha_i (grad_i - 1).
func (e *Engine) Objective() float64 {
	var v float64
	for t, a := range e.alpha {
		v += a * (e.grad[t] - 1)
	}
	return v / 2
}

// CacheStats returns kernel row cache hits and misses.
func (e *Engine) CacheStats() (hits, misses int64) {
	return e.cache.Stats()
}

// ShrunkSet returns the original indices of the currently shrunk samples.
func (e *Engine) ShrunkSet() *roaring.Bitmap {
	bm := roaring.New()
	for p := e.active; p < e.n; p++ {
		bm.Add(uint32(e.index[p]))
	}
	return bm
}

// Close releases the cache memory reservation.
func (e *Engine) Close() error {
	if e.cache == nil {
		return nil
	}
	err := e.cache.Close()
	e.cache = nil
	return err
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
