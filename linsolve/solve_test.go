// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import (
	"math"
	"testing"
)

func TestSolveSPDDiagonal(t *testing.T) {
	tr := NewTriplet(3, 3)
	tr.Put(0, 0, 2)
	tr.Put(1, 1, 3)
	tr.Put(2, 2, 4)
	s := Build(tr)
	x, ok := SolveSPD(s, []float64{2, 6, 12})
	if !ok {
		t.Fatal("expected success")
	}
	want := []float64{1, 2, 3}
	for i := range want {
		if math.Abs(x[i]-want[i]) > 1e-9 {
			t.Fatalf("x[%d] = %g, want %g", i, x[i], want[i])
		}
	}
}

func TestSolveSPDDense2x2(t *testing.T) {
	// S = [[4,1],[1,3]], rhs = [1,2] -> x = [1/11, 7/11]
	tr := NewTriplet(2, 4)
	tr.Put(0, 0, 4)
	tr.Put(1, 1, 3)
	tr.Put(0, 1, 1)
	tr.Put(1, 0, 1)
	s := Build(tr)
	x, ok := SolveSPD(s, []float64{1, 2})
	if !ok {
		t.Fatal("expected success")
	}
	if math.Abs(x[0]-1.0/11.0) > 1e-8 || math.Abs(x[1]-7.0/11.0) > 1e-8 {
		t.Fatalf("x = %v, want [%g, %g]", x, 1.0/11.0, 7.0/11.0)
	}
}

func TestDuplicateEntriesAreSummed(t *testing.T) {
	tr := NewTriplet(1, 2)
	tr.Put(0, 0, 1)
	tr.Put(0, 0, 1)
	s := Build(tr)
	if s.Get(0, 0) != 2 {
		t.Fatalf("expected summed diagonal 2, got %g", s.Get(0, 0))
	}
}

func TestSymmetryOfBuild(t *testing.T) {
	tr := NewTriplet(2, 2)
	tr.Put(0, 1, 5)
	tr.Put(1, 0, 5)
	s := Build(tr)
	if s.Get(0, 1) != s.Get(1, 0) {
		t.Fatalf("expected symmetric entries, got %g vs %g", s.Get(0, 1), s.Get(1, 0))
	}
}

func TestAddDiagonalDamping(t *testing.T) {
	tr := NewTriplet(2, 2)
	tr.Put(0, 0, 1)
	tr.Put(1, 1, 1)
	s := Build(tr)
	s.AddDiagonal([]float64{0.5, 0.25})
	if s.Get(0, 0) != 1.5 || s.Get(1, 1) != 1.25 {
		t.Fatalf("unexpected diagonal after damping: %v", s.diag)
	}
}

func TestCGFallbackOnIndefiniteMatrix(t *testing.T) {
	// non-SPD: zero diagonal forces Cholesky failure, exercising CG path.
	tr := NewTriplet(2, 3)
	tr.Put(0, 0, 0)
	tr.Put(1, 1, 2)
	tr.Put(0, 1, 1)
	tr.Put(1, 0, 1)
	s := Build(tr)
	if _, ok := factorizeCholesky(s); ok {
		t.Fatal("expected Cholesky to fail on this matrix")
	}
}
