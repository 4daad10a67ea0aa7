package table

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Block is a contiguous, self-contained set of rows produced by Gather.
//
// Dense blocks are row-major (a mat.Dense); CSR blocks own their values,
// column indices and row offsets (len(RowPtr) == Rows()+1, RowPtr[0] == 0).
type Block struct {
	layout Layout
	rows   int
	cols   int

	dense *mat.Dense

	values []float64
	colIdx []int
	rowPtr []int
}

// NewDenseBlock wraps a row-major matrix. A nil matrix yields an empty block
// with the given column count.
func NewDenseBlock(m *mat.Dense, cols int) *Block {
	if m == nil {
		return &Block{layout: LayoutDense, cols: cols}
	}
	r, c := m.Dims()
	return &Block{layout: LayoutDense, rows: r, cols: c, dense: m}
}

// NewCSRBlock validates and wraps CSR arrays.
func NewCSRBlock(rows, cols int, values []float64, colIdx, rowPtr []int) (*Block, error) {
	if err := validateCSR(rows, cols, values, colIdx, rowPtr); err != nil {
		return nil, err
	}
	return &Block{
		layout: LayoutCSR,
		rows:   rows,
		cols:   cols,
		values: values,
		colIdx: colIdx,
		rowPtr: rowPtr,
	}, nil
}

// Layout reports the storage format.
func (b *Block) Layout() Layout { return b.layout }

// Rows returns the number of rows in the block.
func (b *Block) Rows() int { return b.rows }

// Cols returns the number of feature columns.
func (b *Block) Cols() int { return b.cols }

// Row returns a view of row r.
func (b *Block) Row(r int) Row {
	if b.layout == LayoutCSR {
		lo, hi := b.rowPtr[r], b.rowPtr[r+1]
		return SparseRow(b.colIdx[lo:hi], b.values[lo:hi])
	}
	return DenseRow(b.dense.RawRowView(r))
}

// Dense returns the backing matrix of a dense block, or nil.
func (b *Block) Dense() *mat.Dense { return b.dense }

// CSR returns the backing arrays of a CSR block. The slices must not be modified.
func (b *Block) CSR() (values []float64, colIdx, rowPtr []int) {
	return b.values, b.colIdx, b.rowPtr
}

// NNZ returns the number of stored entries.
func (b *Block) NNZ() int {
	if b.layout == LayoutCSR {
		return len(b.values)
	}
	return b.rows * b.cols
}

// Bytes estimates the memory held by the block.
func (b *Block) Bytes() int64 {
	if b.layout == LayoutCSR {
		return int64(len(b.values))*8 + int64(len(b.colIdx))*8 + int64(len(b.rowPtr))*8
	}
	return int64(b.rows) * int64(b.cols) * 8
}

func validateCSR(rows, cols int, values []float64, colIdx, rowPtr []int) error {
	if rows < 0 || cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadShape, rows, cols)
	}
	if len(rowPtr) != rows+1 {
		return fmt.Errorf("%w: len(rowPtr)=%d, want %d", ErrMalformedCSR, len(rowPtr), rows+1)
	}
	if len(values) != len(colIdx) {
		return fmt.Errorf("%w: %d values, %d column indices", ErrMalformedCSR, len(values), len(colIdx))
	}
	if rowPtr[0] != 0 || rowPtr[rows] != len(values) {
		return fmt.Errorf("%w: row offsets must span [0, %d]", ErrMalformedCSR, len(values))
	}
	for r := 0; r < rows; r++ {
		if lo, hi := rowPtr[r], rowPtr[r+1]; hi < lo || hi > len(values) {
			return fmt.Errorf("%w: row %d offsets [%d, %d) outside [0, %d]", ErrMalformedCSR, r, lo, hi, len(values))
		}
	}
	for r := 0; r < rows; r++ {
		lo, hi := rowPtr[r], rowPtr[r+1]
		prev := -1
		for _, c := range colIdx[lo:hi] {
			if c <= prev || c >= cols {
				return fmt.Errorf("%w: row %d column %d out of order or range", ErrMalformedCSR, r, c)
			}
			prev = c
		}
	}
	return nil
}
