package testutil

import (
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/gosmo/table"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Dataset is a labeled two-class sample set stored row-major.
type Dataset struct {
	Rows   [][]float64
	Labels []float64
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Rows) }

// Matrix copies the rows into a new dense matrix.
func (d *Dataset) Matrix() *mat.Dense {
	if len(d.Rows) == 0 {
		return nil
	}
	cols := len(d.Rows[0])
	m := mat.NewDense(len(d.Rows), cols, nil)
	for i, row := range d.Rows {
		m.SetRow(i, row)
	}
	return m
}

// Tables returns the dataset as a dense and as a CSR table.
// It panics on malformed datasets, which only generators produce.
func (d *Dataset) Tables() (*table.Dense, *table.CSR) {
	m := d.Matrix()
	dense, err := table.NewDense(m, d.Labels)
	if err != nil {
		panic(err)
	}
	csr, err := table.CSRFromDense(m, d.Labels)
	if err != nil {
		panic(err)
	}
	return dense, csr
}

// Blobs generates n samples in dim dimensions drawn from two isotropic unit
// Gaussians centered at ±sep/2 along every axis. Labels alternate between +1
// and -1 so both classes are always present.
func (r *RNG) Blobs(n, dim int, sep float64) *Dataset {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, n*dim)
	ds := &Dataset{
		Rows:   make([][]float64, n),
		Labels: make([]float64, n),
	}
	for i := range n {
		y := 1.0
		if i%2 == 1 {
			y = -1
		}
		row := data[i*dim : (i+1)*dim]
		for j := range row {
			row[j] = y*sep/2 + r.rand.NormFloat64()
		}
		ds.Rows[i] = row
		ds.Labels[i] = y
	}
	return ds
}

// SparseBlobs is Blobs with every feature independently set to zero with
// probability zeroRate.
func (r *RNG) SparseBlobs(n, dim int, sep, zeroRate float64) *Dataset {
	ds := r.Blobs(n, dim, sep)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range ds.Rows {
		for j := range row {
			if r.rand.Float64() < zeroRate {
				row[j] = 0
			}
		}
	}
	return ds
}
