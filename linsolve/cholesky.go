// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import (
	"math"
	"sort"
)

// cholFactor is a sparse lower-triangular Cholesky factor L (S = L*L^T),
// stored column-by-column in the same (row, value) shape as Sparse.
type cholFactor struct {
	n    int
	cols [][]rowVal // strictly-below-diagonal entries of column j
	diag []float64  // L[j][j]
}

// factorizeCholesky attempts a right-looking sparse Cholesky factorisation of
// s in natural (unpermuted) column order — acceptable fill-in at
// bundle-adjustment scale, where the normal-equation system is small
// relative to the meshes gofem's own sparse solver targets. Returns
// (factor, false) the moment a non-positive pivot is encountered, which the
// caller (SolveSPD) treats as a signal to fall back to CG, matching
// spec.md §4.A's "on failure ... fall back to an iterative solver".
func factorizeCholesky(s *Sparse) (*cholFactor, bool) {
	n := s.N
	f := &cholFactor{n: n, cols: make([][]rowVal, n), diag: make([]float64, n)}

	// column[j] accumulates the (still-to-be-eliminated) lower-triangle
	// entries of S below the diagonal, as a dense-keyed map for simplicity;
	// bundle-adjustment systems are small enough that this is not a
	// performance concern, and the API still only ever visits the nonzero
	// structure of S plus whatever fill-in a given row actually needs.
	work := make([]map[int]float64, n)
	for j := 0; j < n; j++ {
		work[j] = make(map[int]float64, len(s.cols[j])+1)
		for _, rv := range s.cols[j] {
			work[j][rv.row] = rv.val
		}
	}
	workDiag := make([]float64, n)
	copy(workDiag, s.diag)

	for j := 0; j < n; j++ {
		djj := workDiag[j]
		if djj <= 0 || math.IsNaN(djj) {
			return nil, false
		}
		ljj := math.Sqrt(djj)
		f.diag[j] = ljj

		// column j's below-diagonal entries of L
		rows := make([]int, 0, len(work[j]))
		for r := range work[j] {
			rows = append(rows, r)
		}
		sort.Ints(rows)
		col := make([]rowVal, 0, len(rows))
		for _, i := range rows {
			lij := work[j][i] / ljj
			col = append(col, rowVal{row: i, val: lij})
		}
		f.cols[j] = col

		// update the trailing submatrix: for every pair (i,k) with i,k > j
		// both connected to j, subtract L[i][j]*L[k][j] from S[i][k].
		for a := 0; a < len(col); a++ {
			i := col[a].row
			lij := col[a].val
			workDiag[i] -= lij * lij
			for b := a + 1; b < len(col); b++ {
				k := col[b].row
				lik := col[b].val
				// row >= col convention: the larger index is the row
				row, cc := i, k
				if row < cc {
					row, cc = cc, row
				}
				work[cc][row] -= lij * lik
			}
		}
	}
	return f, true
}

// solve solves L*L^T*x = rhs given an already-computed factor.
func (f *cholFactor) solve(rhs []float64) []float64 {
	n := f.n
	y := make([]float64, n)
	copy(y, rhs)
	// forward substitution: L*y' = rhs
	for j := 0; j < n; j++ {
		y[j] /= f.diag[j]
		for _, rv := range f.cols[j] {
			y[rv.row] -= rv.val * y[j]
		}
	}
	// backward substitution: L^T*x = y'
	x := y
	for j := n - 1; j >= 0; j-- {
		for _, rv := range f.cols[j] {
			x[j] -= rv.val * x[rv.row]
		}
		x[j] /= f.diag[j]
	}
	return x
}
