// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"math"
	"testing"

	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

func TestAlignToAxesRotatesLineOntoAxis(t *testing.T) {
	proj := scene.NewMemProject()
	rx, ry, rz := 0.0, 0.0, 0.0
	proj.Points = []*scene.WorldPoint{
		{ID: "root", LockedXYZ: [3]*float64{&rx, &ry, &rz}},
		{ID: "tip"},
	}
	proj.Points[1].OptimizedXYZ = &geom.Vec3{X: 2, Y: 2, Z: 0} // off-axis direction, length 2*sqrt(2)
	proj.LinesList = []*scene.Line{{ID: "rod", P1: "root", P2: "tip", Direction: scene.DirX}}

	ok, reason := AlignToAxes(proj)
	if !ok {
		t.Fatalf("AlignToAxes failed: %s", reason)
	}
	got := *proj.Points[1].OptimizedXYZ
	wantLen := math.Hypot(2, 2)
	if math.Abs(got.X-wantLen) > 1e-6 || math.Abs(got.Y) > 1e-6 || math.Abs(got.Z) > 1e-6 {
		t.Fatalf("tip = %+v, want (%g,0,0)", got, wantLen)
	}
}

func TestAlignToAxesReportsNoConstraints(t *testing.T) {
	proj := scene.NewMemProject()
	proj.Points = []*scene.WorldPoint{{ID: "p0"}}
	ok, reason := AlignToAxes(proj)
	if ok || reason == "" {
		t.Fatalf("expected failure with no axis-constrained lines")
	}
}
