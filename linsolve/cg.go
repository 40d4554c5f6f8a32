// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import "math"

// solveCG runs Jacobi-preconditioned conjugate gradients for S*x = rhs,
// tolerance and iteration cap per spec.md §4.A ("tolerance 1e-8, iteration
// cap 10*n"). Returns (x, converged).
func solveCG(s *Sparse, rhs []float64) ([]float64, bool) {
	n := s.N
	x := make([]float64, n)
	precond := make([]float64, n)
	for i := 0; i < n; i++ {
		if s.diag[i] > 0 {
			precond[i] = 1 / s.diag[i]
		} else {
			precond[i] = 1
		}
	}

	r := make([]float64, n)
	copy(r, rhs) // r = rhs - S*x0, x0 = 0
	z := applyPrecond(precond, r)
	p := make([]float64, n)
	copy(p, z)
	rz := dot(r, z)

	rhsNorm := norm(rhs)
	if rhsNorm == 0 {
		return x, true
	}

	maxIter := 10 * n
	if maxIter < 1 {
		maxIter = 1
	}
	for iter := 0; iter < maxIter; iter++ {
		ap := s.MulVec(p)
		pap := dot(p, ap)
		if pap == 0 || math.IsNaN(pap) {
			return x, false
		}
		alpha := rz / pap
		for i := 0; i < n; i++ {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
		}
		if norm(r)/rhsNorm < 1e-8 {
			return x, true
		}
		z = applyPrecond(precond, r)
		rzNew := dot(r, z)
		beta := rzNew / rz
		for i := 0; i < n; i++ {
			p[i] = z[i] + beta*p[i]
		}
		rz = rzNew
	}
	return x, norm(r)/rhsNorm < 1e-8
}

func applyPrecond(precond, r []float64) []float64 {
	z := make([]float64, len(r))
	for i := range r {
		z[i] = precond[i] * r[i]
	}
	return z
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 { return math.Sqrt(dot(a, a)) }
