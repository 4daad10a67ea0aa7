package table

import (
	"errors"
	"fmt"
)

var (
	// ErrBadShape is returned when a table or block is constructed with an invalid shape.
	ErrBadShape = errors.New("table: invalid shape")

	// ErrOutOfRange is returned when a row index is outside the table.
	ErrOutOfRange = errors.New("table: row index out of range")

	// ErrMalformedCSR is returned when CSR arrays are inconsistent.
	ErrMalformedCSR = errors.New("table: malformed CSR arrays")
)

// Layout identifies the storage format of a table or block.
type Layout uint8

const (
	// LayoutDense stores rows as contiguous float64 slices.
	LayoutDense Layout = iota
	// LayoutCSR stores rows as compressed sparse rows.
	LayoutCSR
)

func (l Layout) String() string {
	switch l {
	case LayoutDense:
		return "dense"
	case LayoutCSR:
		return "csr"
	default:
		return fmt.Sprintf("Unknown(%d)", l)
	}
}

// Row is a read-only view of one sample's features.
//
// Dense rows set Dense. Sparse rows set Sparse and carry strictly increasing
// column indices in Index with the matching values in Value.
// A Row aliases table memory and must not be modified.
type Row struct {
	Dense  []float64
	Index  []int
	Value  []float64
	Sparse bool
}

// DenseRow wraps a dense feature slice.
func DenseRow(x []float64) Row {
	return Row{Dense: x}
}

// SparseRow wraps sparse (index, value) pairs.
func SparseRow(index []int, value []float64) Row {
	return Row{Index: index, Value: value, Sparse: true}
}

// Table is the sample store consumed by the solver.
type Table interface {
	// Len returns the number of samples.
	Len() int
	// Cols returns the number of features.
	Cols() int
	// Label returns the label of sample i (expected to be -1 or +1).
	Label(i int) float64
	// Layout reports the storage format.
	Layout() Layout
	// Row returns a view of the features of sample i.
	Row(i int) Row
	// Gather copies the rows at indices, in order, into a new Block.
	Gather(indices []int) (*Block, error)
}

func checkIndices(indices []int, n int) error {
	for _, i := range indices {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, n)
		}
	}
	return nil
}
