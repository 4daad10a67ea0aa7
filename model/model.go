package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/gosmo/kernel"
	"github.com/hupe1980/gosmo/table"
)

// ErrInvalidModel is returned by Validate for inconsistent models.
var ErrInvalidModel = errors.New("model: invalid model")

// Model is a trained two-class SVM.
type Model struct {
	// Layout is the layout of the training table and of SupportVectors.
	Layout table.Layout
	// Features is the number of feature columns.
	Features int
	// SupportVectors holds one row per support vector.
	SupportVectors *table.Block
	// Coefficients holds y_i·alpha_i per support vector.
	Coefficients []float64
	// Indices holds the original sample index per support vector.
	Indices []int
	// Bias is the intercept of the decision function.
	Bias float64
}

// NumSV returns the number of support vectors.
func (m *Model) NumSV() int { return len(m.Coefficients) }

// SupportSet returns the original indices of the support vectors as a bitmap.
func (m *Model) SupportSet() *roaring.Bitmap {
	bm := roaring.New()
	for _, idx := range m.Indices {
		bm.Add(uint32(idx))
	}
	return bm
}

// Decision evaluates f(x) with the kernel the model was trained with.
func (m *Model) Decision(k kernel.Kernel, x table.Row) float64 {
	sum := m.Bias
	for r, c := range m.Coefficients {
		sum += c * k.Evaluate(m.SupportVectors.Row(r), x)
	}
	return sum
}

// Predict returns +1 if f(x) > 0 and -1 otherwise.
func (m *Model) Predict(k kernel.Kernel, x table.Row) float64 {
	if m.Decision(k, x) > 0 {
		return 1
	}
	return -1
}

// Validate checks that the model fields are mutually consistent.
func (m *Model) Validate() error {
	if m.SupportVectors == nil {
		return fmt.Errorf("%w: missing support vectors", ErrInvalidModel)
	}
	n := len(m.Coefficients)
	if len(m.Indices) != n || m.SupportVectors.Rows() != n {
		return fmt.Errorf("%w: %d coefficients, %d indices, %d rows",
			ErrInvalidModel, n, len(m.Indices), m.SupportVectors.Rows())
	}
	if m.SupportVectors.Layout() != m.Layout {
		return fmt.Errorf("%w: layout %s, support vectors %s", ErrInvalidModel, m.Layout, m.SupportVectors.Layout())
	}
	if m.SupportVectors.Cols() != m.Features {
		return fmt.Errorf("%w: %d features, support vectors have %d", ErrInvalidModel, m.Features, m.SupportVectors.Cols())
	}
	if math.IsNaN(m.Bias) || math.IsInf(m.Bias, 0) {
		return fmt.Errorf("%w: bias %v", ErrInvalidModel, m.Bias)
	}
	for r, c := range m.Coefficients {
		if c == 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: coefficient %d is %v", ErrInvalidModel, r, c)
		}
	}
	return nil
}
