package table

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CSR is a compressed-sparse-row sample store.
type CSR struct {
	rows   int
	cols   int
	values []float64
	colIdx []int
	rowPtr []int
	y      []float64
}

var _ Table = (*CSR)(nil)

// NewCSR validates and wraps CSR arrays and their labels. The arrays are not copied.
func NewCSR(rows, cols int, values []float64, colIdx, rowPtr []int, labels []float64) (*CSR, error) {
	if err := validateCSR(rows, cols, values, colIdx, rowPtr); err != nil {
		return nil, err
	}
	if len(labels) != rows {
		return nil, fmt.Errorf("%w: %d rows, %d labels", ErrBadShape, rows, len(labels))
	}
	return &CSR{
		rows:   rows,
		cols:   cols,
		values: values,
		colIdx: colIdx,
		rowPtr: rowPtr,
		y:      labels,
	}, nil
}

// CSRFromDense encodes the non-zero entries of x as a CSR table.
func CSRFromDense(x *mat.Dense, labels []float64) (*CSR, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrBadShape)
	}
	r, c := x.Dims()
	rowPtr := make([]int, r+1)
	var (
		values []float64
		colIdx []int
	)
	for i := 0; i < r; i++ {
		for j, v := range x.RawRowView(i) {
			if v != 0 {
				values = append(values, v)
				colIdx = append(colIdx, j)
			}
		}
		rowPtr[i+1] = len(values)
	}
	return NewCSR(r, c, values, colIdx, rowPtr, labels)
}

// Len returns the number of samples.
func (s *CSR) Len() int { return s.rows }

// Cols returns the number of features.
func (s *CSR) Cols() int { return s.cols }

// Label returns the label of sample i.
func (s *CSR) Label(i int) float64 { return s.y[i] }

// Layout returns LayoutCSR.
func (s *CSR) Layout() Layout { return LayoutCSR }

// Row returns a view of sample i.
func (s *CSR) Row(i int) Row {
	lo, hi := s.rowPtr[i], s.rowPtr[i+1]
	return SparseRow(s.colIdx[lo:hi], s.values[lo:hi])
}

// NNZ returns the number of stored entries.
func (s *CSR) NNZ() int { return len(s.values) }

// Gather copies the requested rows into a new CSR block.
//
// Source offsets are not contiguous after gathering, so the block gets a
// freshly computed offset array.
func (s *CSR) Gather(indices []int) (*Block, error) {
	if err := checkIndices(indices, s.rows); err != nil {
		return nil, err
	}

	rowPtr := make([]int, len(indices)+1)
	for r, i := range indices {
		rowPtr[r+1] = rowPtr[r] + (s.rowPtr[i+1] - s.rowPtr[i])
	}

	nnz := rowPtr[len(indices)]
	values := make([]float64, nnz)
	colIdx := make([]int, nnz)
	for r, i := range indices {
		lo, hi := s.rowPtr[i], s.rowPtr[i+1]
		copy(values[rowPtr[r]:rowPtr[r+1]], s.values[lo:hi])
		copy(colIdx[rowPtr[r]:rowPtr[r+1]], s.colIdx[lo:hi])
	}

	return &Block{
		layout: LayoutCSR,
		rows:   len(indices),
		cols:   s.cols,
		values: values,
		colIdx: colIdx,
		rowPtr: rowPtr,
	}, nil
}
