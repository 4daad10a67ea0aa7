package solver

import (
	"github.com/hupe1980/gosmo/kernel"
	"github.com/hupe1980/gosmo/table"
)

// kernelMatrix computes kernel rows for the row cache. Columns follow the
// current working-position order, which is why the block is regathered after
// positions are swapped.
type kernelMatrix struct {
	k       kernel.Kernel
	tbl     table.Table
	block   *table.Block
	workers int
}

func newKernelMatrix(k kernel.Kernel, tbl table.Table, index []int, workers int) (*kernelMatrix, error) {
	m := &kernelMatrix{k: k, tbl: tbl, workers: workers}
	if err := m.regather(index); err != nil {
		return nil, err
	}
	return m, nil
}

// regather rebuilds the block so that block row p is sample index[p].
func (m *kernelMatrix) regather(index []int) error {
	blk, err := m.tbl.Gather(index)
	if err != nil {
		return err
	}
	m.block = blk
	return nil
}

// ComputeRow implements cache.RowSource.
func (m *kernelMatrix) ComputeRow(key int, dst []float64, from, to int) error {
	x := m.tbl.Row(key)
	return parallelFor(m.workers, to-from, func(lo, hi int) error {
		kernel.FillRow(m.k, x, m.block, from+lo, from+hi, dst)
		return nil
	})
}

// diagonal returns K(x_t, x_t) for every position of the block.
func (m *kernelMatrix) diagonal() []float64 {
	d := make([]float64, m.block.Rows())
	for p := range d {
		r := m.block.Row(p)
		d[p] = m.k.Evaluate(r, r)
	}
	return d
}
