// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

// SolveSPD attempts a sparse Cholesky factorisation of s and solves
// s*x = rhs; on a non-positive pivot (s is not SPD, e.g. rank-deficient
// under-constrained gauge freedom) it falls back to Jacobi-preconditioned
// CG. Returns (nil, false) if neither solver converges, which the LM
// driver (component E) treats as a solve failure: damping is increased
// and the step retried.
func SolveSPD(s *Sparse, rhs []float64) ([]float64, bool) {
	if f, ok := factorizeCholesky(s); ok {
		return f.solve(rhs), true
	}
	if x, ok := solveCG(s, rhs); ok {
		return x, true
	}
	return nil, false
}
