package gosmo

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/gosmo/internal/solver"
	"github.com/hupe1980/gosmo/kernel"
	"github.com/hupe1980/gosmo/model"
	"github.com/hupe1980/gosmo/table"
)

// Result is the outcome of a training run.
type Result struct {
	// Model is the trained classifier.
	Model *model.Model
	// Iterations is the number of coordinate steps taken.
	Iterations int
	// Violation is the final maximal KKT gap.
	Violation float64
	// Objective is the dual objective ½ αᵀQα − Σα at the solution.
	Objective float64
	// Converged is false if MaxIterations was reached first.
	Converged bool

	CacheHits   int64
	CacheMisses int64
}

// Train fits a two-class SVM on tbl with kernel k. Labels must be +1 or -1
// and both classes must be present.
//
// Parameter errors are reported before the optimizer starts. Reaching
// MaxIterations is not an error; the result then has Converged == false.
// Failures are returned as *TrainingError and match ErrInvalidParameter,
// ErrAllocation or ErrNumericalBreakdown with errors.Is. Cancelling ctx
// aborts training.
func Train(ctx context.Context, tbl table.Table, k kernel.Kernel, cfg Config, optFns ...Option) (*Result, error) {
	o := applyOptions(optFns)

	start := time.Now()
	res, err := train(ctx, tbl, k, cfg, o)
	elapsed := time.Since(start)

	o.metricsCollector.RecordTraining(elapsed, err)
	o.logger.LogTrainDone(ctx, res, elapsed, err)
	if err != nil {
		return nil, err
	}

	o.metricsCollector.RecordIterations(res.Iterations, res.Converged)
	o.metricsCollector.RecordCache(res.CacheHits, res.CacheMisses)
	o.metricsCollector.RecordSupportVectors(res.Model.NumSV())
	return res, nil
}

func train(ctx context.Context, tbl table.Table, k kernel.Kernel, cfg Config, o options) (*Result, error) {
	if err := checkInputs(tbl, k, cfg); err != nil {
		return nil, translateError(err, 0)
	}

	rc := o.resourceController
	if err := rc.AcquireTraining(ctx); err != nil {
		return nil, translateError(err, 0)
	}
	defer rc.ReleaseTraining()

	logger := o.logger.WithSamples(tbl.Len())
	logger.LogTrainStart(ctx, tbl.Len(), tbl.Cols(), k, cfg)

	e, err := solver.New(tbl, k, solver.Config{
		C:               cfg.C,
		Tolerance:       cfg.Tolerance,
		Tau:             cfg.Tau,
		CacheCapacity:   cfg.CacheCapacity,
		CacheBytes:      cfg.CacheBytes,
		MaxIterations:   cfg.MaxIterations,
		Shrinking:       cfg.Shrinking,
		ShrinkingPeriod: cfg.ShrinkingPeriod,
		Workers:         cfg.Workers,
	}, solver.WithLogger(logger.Logger), solver.WithResourceController(rc))
	if err != nil {
		return nil, translateError(err, 0)
	}
	defer e.Close()

	if err := e.Run(ctx); err != nil {
		return nil, translateError(err, e.Iterations())
	}

	m, err := model.Extract(e.Solution(), tbl)
	if err != nil {
		return nil, err
	}

	hits, misses := e.CacheStats()
	return &Result{
		Model:       m,
		Iterations:  e.Iterations(),
		Violation:   e.Violation(),
		Objective:   e.Objective(),
		Converged:   e.State() == solver.StateConverged,
		CacheHits:   hits,
		CacheMisses: misses,
	}, nil
}

func checkInputs(tbl table.Table, k kernel.Kernel, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if k == nil {
		return fmt.Errorf("%w: nil kernel", ErrInvalidParameter)
	}
	if tbl == nil || tbl.Len() == 0 {
		return fmt.Errorf("%w: empty training table", ErrInvalidParameter)
	}

	var pos, neg int
	for i := range tbl.Len() {
		switch tbl.Label(i) {
		case 1:
			pos++
		case -1:
			neg++
		default:
			return fmt.Errorf("%w: label %v at sample %d is not ±1", ErrInvalidParameter, tbl.Label(i), i)
		}
	}
	if pos == 0 || neg == 0 {
		return fmt.Errorf("%w: need both classes, got %d positive and %d negative", ErrInvalidParameter, pos, neg)
	}
	return nil
}
