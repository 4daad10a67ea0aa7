// Package gosmo trains two-class support vector machines with Sequential
// Minimal Optimization.
//
// Train solves the SVM dual
//
//	min_α  ½ αᵀQα − Σα   s.t.  Σ y_i α_i = 0,  0 ≤ α_i ≤ C
//
// on a dense or CSR sample table with any kernel.Kernel. The optimizer picks
// a maximal-violating pair with second-order gain each iteration, keeps
// recently used kernel rows in a bounded LRU cache and, optionally, shrinks
// the active set to samples that can still move.
//
// # Quick Start
//
//	tbl, _ := table.NewDenseFromRows(rows, labels) // labels are +1 / -1
//	res, err := gosmo.Train(ctx, tbl, kernel.RBF{Gamma: 0.5}, gosmo.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	label := res.Model.Predict(kernel.RBF{Gamma: 0.5}, x)
//
// # Configuration
//
// Config can be built in code or loaded from YAML with LoadConfig. It is
// validated before training; invalid values yield ErrInvalidParameter.
//
// # Errors
//
// Failed runs return a *TrainingError that matches ErrInvalidParameter,
// ErrAllocation or ErrNumericalBreakdown. Reaching MaxIterations is not a
// failure: Result.Converged reports it.
//
// # Resources
//
// Concurrent trainings may share a resource.Controller (WithResourceController)
// which bounds kernel cache memory and the number of simultaneous runs.
//
// # Persistence
//
// The persistence package writes and reads models as checksummed, optionally
// compressed binary snapshots.
package gosmo
