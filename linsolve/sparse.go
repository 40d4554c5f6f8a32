// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import "sort"

// Sparse is a symmetric n x n matrix built by summing a Triplet's entries,
// stored as sorted column lists (one map-free slice of (row, value) pairs
// per column) so the Cholesky/CG kernels below can walk neighbors without
// per-access map lookups.
type Sparse struct {
	N    int
	cols [][]rowVal // cols[j] = sorted (row, value) pairs for column j, rows strictly below the diagonal (row > j)
	diag []float64
}

type rowVal struct {
	row int
	val float64
}

// Build sums duplicate (i,j) triplet entries and returns the assembled
// symmetric matrix. Only the lower triangle (row >= col) is retained
// internally; callers are expected (per bundle.Accumulator, spec.md §4.D)
// to have emitted both (i,j) and (j,i), so every off-diagonal value is
// available from either triangle and we keep just one copy: entries with
// row < col are skipped.
func Build(t *Triplet) *Sparse {
	n := t.n
	sums := make(map[int64]float64, len(t.entries))
	for _, e := range t.entries {
		i, j := e.i, e.j
		if i < j {
			continue // the mirrored (j,i) entry carries the same value
		}
		key := int64(i)*int64(n) + int64(j)
		sums[key] += e.v
	}
	s := &Sparse{N: n, cols: make([][]rowVal, n), diag: make([]float64, n)}
	perCol := make(map[int][]rowVal, n)
	for key, v := range sums {
		i := int(key / int64(n))
		j := int(key % int64(n))
		if i == j {
			s.diag[i] = v
			continue
		}
		perCol[j] = append(perCol[j], rowVal{row: i, val: v})
	}
	for j := 0; j < n; j++ {
		list := perCol[j]
		sort.Slice(list, func(a, b int) bool { return list[a].row < list[b].row })
		s.cols[j] = list
	}
	return s
}

// AddDiagonal adds lambda[i] to the i-th diagonal entry of every row,
// implementing Marquardt scaling (LM damping).
func (s *Sparse) AddDiagonal(lambda []float64) {
	for i := 0; i < s.N; i++ {
		s.diag[i] += lambda[i]
	}
}

// Diag returns a copy of the diagonal, used by the LM driver to compute
// Marquardt-scaled damping (lambda_i = damping * diag[i]).
func (s *Sparse) Diag() []float64 {
	out := make([]float64, s.N)
	copy(out, s.diag)
	return out
}

// Get returns the (i,j) entry (symmetric: Get(i,j) == Get(j,i)).
func (s *Sparse) Get(i, j int) float64 {
	if i == j {
		return s.diag[i]
	}
	row, col := i, j
	if row < col {
		row, col = col, row
	}
	for _, rv := range s.cols[col] {
		if rv.row == row {
			return rv.val
		}
	}
	return 0
}

// MulVec computes y = S*x for the full symmetric matrix.
func (s *Sparse) MulVec(x []float64) []float64 {
	y := make([]float64, s.N)
	for i := 0; i < s.N; i++ {
		y[i] = s.diag[i] * x[i]
	}
	for col, list := range s.cols {
		for _, rv := range list {
			y[rv.row] += rv.val * x[col]
			y[col] += rv.val * x[rv.row]
		}
	}
	return y
}
