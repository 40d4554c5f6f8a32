// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import (
	"math"
	"testing"

	"github.com/cpmech/bundleadj/geom"
)

func TestAccumulateSingleFixedPoint(t *testing.T) {
	_, l := newTestProject()
	p := NewFixedPointProvider(l, "p0", geom.Vec3{X: 1, Y: 2, Z: 3})
	normal := Accumulate([]Provider{p}, l.N, l.X)

	pos := PointPosition(l, l.X, "p0")
	wantCost := (pos.X-1)*(pos.X-1) + (pos.Y-2)*(pos.Y-2) + (pos.Z-3)*(pos.Z-3)
	if math.Abs(normal.Cost-wantCost) > 1e-9 {
		t.Fatalf("cost = %g, want %g", normal.Cost, wantCost)
	}

	idx := l.WorldPointIdx("p0")
	if math.Abs(normal.JtJ.Get(idx[0], idx[0])-1) > 1e-9 {
		t.Fatalf("JtJ diagonal for unit-gradient residual should be 1")
	}
	if math.Abs(normal.JtJ.Get(idx[0], idx[1])) > 1e-9 {
		t.Fatalf("independent axes should have zero off-diagonal coupling")
	}
	wantNegJtr := -(pos.X - 1)
	if math.Abs(normal.NegJtr[idx[0]]-wantNegJtr) > 1e-9 {
		t.Fatalf("negJtr[x] = %g, want %g", normal.NegJtr[idx[0]], wantNegJtr)
	}
}

func TestAccumulateSumsDuplicateVariableContributions(t *testing.T) {
	_, l := newTestProject()
	// Two providers touching the same point axis should have their JtJ
	// contributions summed, not overwritten.
	p1 := NewFixedPointProvider(l, "p0", geom.Vec3{})
	p2 := NewFixedPointProvider(l, "p0", geom.Vec3{X: 5})
	normal := Accumulate([]Provider{p1, p2}, l.N, l.X)
	idx := l.WorldPointIdx("p0")
	if math.Abs(normal.JtJ.Get(idx[0], idx[0])-2) > 1e-9 {
		t.Fatalf("JtJ diagonal should accumulate both providers' unit gradients: got %g", normal.JtJ.Get(idx[0], idx[0]))
	}
}
