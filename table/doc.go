// Package table provides the read-only sample store used during training.
//
// A Table holds labels and feature rows for a training set. Two layouts are
// supported:
//
//   - Dense: row-major storage backed by gonum's mat.Dense
//   - CSR: compressed sparse rows (values, column indices, row offsets)
//
// Both layouts implement the same row contract. Gather copies an arbitrary
// subset of rows into a self-contained Block so that the solver can hand a
// contiguous buffer to the kernel evaluator regardless of storage format:
//
//	blk, err := tbl.Gather([]int{4, 0, 7})
//	row := blk.Row(1) // features of original row 0
//
// For CSR tables the gathered block carries its own, recomputed row offsets.
// A dense and a CSR encoding of the same matrix yield identical Row values
// for every logically identical row (modulo the explicit zeros a dense row
// carries).
package table
