// Package model holds the trained two-class SVM and the extractor that builds
// it from a finished solver state.
//
// A Model stores the support vectors in the layout of the training table
// (dense or CSR), the coefficients y_i·alpha_i, the original sample indices
// and the bias. The decision function is
//
//	f(x) = Σ coef_i · K(sv_i, x) + bias
//
// Models are built once by Extract and never mutated afterwards.
package model
