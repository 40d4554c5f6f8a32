// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) < tol }

func TestRotateIdentity(t *testing.T) {
	q := IdentityQuat()
	v := Vec3{1, 2, 3}
	r := q.Rotate(v)
	if !almostEqual(r.X, v.X, 1e-12) || !almostEqual(r.Y, v.Y, 1e-12) || !almostEqual(r.Z, v.Z, 1e-12) {
		t.Fatalf("identity rotation changed vector: got %+v want %+v", r, v)
	}
}

func TestRotatePreservesNormForUnitQuat(t *testing.T) {
	q := Quat{W: math.Cos(0.3), X: 0, Y: math.Sin(0.3), Z: 0}
	v := Vec3{1, -2, 0.5}
	r := q.Rotate(v)
	if !almostEqual(r.Norm(), v.Norm(), 1e-9) {
		t.Fatalf("unit-quaternion rotation changed norm: %g vs %g", r.Norm(), v.Norm())
	}
}

func TestRotateNonUnitScalesByNormSq(t *testing.T) {
	q := Quat{W: 2, X: 0, Y: 0, Z: 0} // non-unit, pure scalar => rotate should scale by w^2=4
	v := Vec3{1, 0, 0}
	r := q.Rotate(v)
	if !almostEqual(r.X, 4, 1e-12) {
		t.Fatalf("non-unit scalar quaternion should scale by w^2: got %+v", r)
	}
}

func TestRotateJacobianMatchesCentralDifference(t *testing.T) {
	q := Quat{W: 0.9, X: 0.2, Y: -0.3, Z: 0.1}
	v := Vec3{0.4, -1.1, 2.0}
	ana := q.RotateJacobian(v)
	h := 1e-6
	comps := []*float64{&q.W, &q.X, &q.Y, &q.Z}
	for col := 0; col < 4; col++ {
		orig := *comps[col]
		*comps[col] = orig + h
		rp := q.Rotate(v)
		*comps[col] = orig - h
		rm := q.Rotate(v)
		*comps[col] = orig
		numX := (rp.X - rm.X) / (2 * h)
		numY := (rp.Y - rm.Y) / (2 * h)
		numZ := (rp.Z - rm.Z) / (2 * h)
		if !almostEqual(ana[0][col], numX, 1e-4) || !almostEqual(ana[1][col], numY, 1e-4) || !almostEqual(ana[2][col], numZ, 1e-4) {
			t.Fatalf("col %d: analytical (%g,%g,%g) vs numeric (%g,%g,%g)", col, ana[0][col], ana[1][col], ana[2][col], numX, numY, numZ)
		}
	}
}

func TestMultiplyIdentity(t *testing.T) {
	q := Quat{W: 0.5, X: 0.1, Y: 0.2, Z: 0.3}
	p := IdentityQuat().Multiply(q)
	if p != q {
		t.Fatalf("identity*q != q: %+v vs %+v", p, q)
	}
}
