// Package solver implements the SMO optimizer for the two-class SVM dual
//
//	min_α  ½ αᵀQα − eᵀα   s.t.  yᵀα = 0,  0 ≤ α_i ≤ C,   Q_ij = y_i y_j K(x_i, x_j)
//
// The Engine keeps alpha, the gradient G = Qα − e and a status tag per working
// position. Each iteration the selector picks a maximal-violating pair with
// second-order gain, the engine moves the pair analytically inside the box and
// along the equality line, and the gradient sweep refreshes G over the active
// positions in parallel.
//
// Shrinking moves clearly bound samples behind the active boundary so that
// kernel rows and sweeps only span the active prefix. The gradient of shrunk
// samples is reconstructed from gradBar, the gradient contribution of
// upper-bound variables, before the full set is reconsidered.
//
// Kernel rows are served by a cache.RowCache keyed by original sample index;
// on a miss the kernel matrix fills the row from a Block gathered in
// working-position order.
package solver
