package kernel

import (
	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/gosmo/table"
)

// Dot returns <a, b> for any combination of dense and sparse rows.
// Dense rows must have equal length.
func Dot(a, b table.Row) float64 {
	switch {
	case !a.Sparse && !b.Sparse:
		return floats.Dot(a.Dense, b.Dense)
	case a.Sparse && b.Sparse:
		return sparseDot(a.Index, a.Value, b.Index, b.Value)
	case a.Sparse:
		return mixedDot(a.Index, a.Value, b.Dense)
	default:
		return mixedDot(b.Index, b.Value, a.Dense)
	}
}

// SquaredDistance returns |a - b|² for any combination of dense and sparse rows.
func SquaredDistance(a, b table.Row) float64 {
	switch {
	case !a.Sparse && !b.Sparse:
		var sum float64
		for i, v := range a.Dense {
			d := v - b.Dense[i]
			sum += d * d
		}
		return sum
	case a.Sparse && b.Sparse:
		return sparseSquaredDistance(a.Index, a.Value, b.Index, b.Value)
	case a.Sparse:
		return mixedSquaredDistance(a.Index, a.Value, b.Dense)
	default:
		return mixedSquaredDistance(b.Index, b.Value, a.Dense)
	}
}

func sparseDot(ai []int, av []float64, bi []int, bv []float64) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(ai) && j < len(bi) {
		switch {
		case ai[i] == bi[j]:
			sum += av[i] * bv[j]
			i++
			j++
		case ai[i] < bi[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

func mixedDot(idx []int, val []float64, dense []float64) float64 {
	var sum float64
	for k, c := range idx {
		sum += val[k] * dense[c]
	}
	return sum
}

func sparseSquaredDistance(ai []int, av []float64, bi []int, bv []float64) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(ai) || j < len(bi) {
		var d float64
		switch {
		case j >= len(bi) || (i < len(ai) && ai[i] < bi[j]):
			d = av[i]
			i++
		case i >= len(ai) || bi[j] < ai[i]:
			d = bv[j]
			j++
		default:
			d = av[i] - bv[j]
			i++
			j++
		}
		sum += d * d
	}
	return sum
}

func mixedSquaredDistance(idx []int, val []float64, dense []float64) float64 {
	var sum float64
	k := 0
	for c, v := range dense {
		d := v
		if k < len(idx) && idx[k] == c {
			d -= val[k]
			k++
		}
		sum += d * d
	}
	return sum
}
