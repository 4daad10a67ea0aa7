// Package testutil provides testing utilities for gosmo.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG and generators for labeled
// two-class datasets in both dense and CSR layout.
//
// # Datasets
//
//	rng := testutil.NewRNG(seed)
//	ds := rng.Blobs(200, 4, 1.5)   // two Gaussian blobs, labels ±1
//	dense, csr := ds.Tables()      // same samples in both layouts
//
// SparseBlobs zeroes a fraction of the features so that the CSR view stores
// fewer entries than the dense one.
package testutil
