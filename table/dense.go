package table

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dense is a row-major sample store.
type Dense struct {
	x *mat.Dense
	y []float64
}

var _ Table = (*Dense)(nil)

// NewDense wraps x (samples in rows) and its labels. x is not copied.
func NewDense(x *mat.Dense, labels []float64) (*Dense, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrBadShape)
	}
	r, _ := x.Dims()
	if len(labels) != r {
		return nil, fmt.Errorf("%w: %d rows, %d labels", ErrBadShape, r, len(labels))
	}
	return &Dense{x: x, y: labels}, nil
}

// NewDenseFromRows copies rows into a new dense table.
func NewDenseFromRows(rows [][]float64, labels []float64) (*Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty rows", ErrBadShape)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrBadShape, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return NewDense(mat.NewDense(len(rows), cols, data), labels)
}

// Len returns the number of samples.
func (d *Dense) Len() int { return len(d.y) }

// Cols returns the number of features.
func (d *Dense) Cols() int {
	_, c := d.x.Dims()
	return c
}

// Label returns the label of sample i.
func (d *Dense) Label(i int) float64 { return d.y[i] }

// Layout returns LayoutDense.
func (d *Dense) Layout() Layout { return LayoutDense }

// Row returns a view of sample i.
func (d *Dense) Row(i int) Row { return DenseRow(d.x.RawRowView(i)) }

// Matrix returns the backing matrix.
func (d *Dense) Matrix() *mat.Dense { return d.x }

// Gather copies the requested rows into a new row-major block.
func (d *Dense) Gather(indices []int) (*Block, error) {
	if err := checkIndices(indices, d.Len()); err != nil {
		return nil, err
	}
	cols := d.Cols()
	if len(indices) == 0 {
		return NewDenseBlock(nil, cols), nil
	}
	out := mat.NewDense(len(indices), cols, nil)
	for r, i := range indices {
		copy(out.RawRowView(r), d.x.RawRowView(i))
	}
	return NewDenseBlock(out, cols), nil
}
