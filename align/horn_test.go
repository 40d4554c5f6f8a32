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

// syntheticCorrespondences builds 4 non-collinear points, applies a known
// rotation+scale+translation to get "current" (triangulated-frame)
// positions, and reports the "target" (locked-frame) positions as the
// originals — the inverse of the transform AlignSimilarity must recover.
func syntheticCorrespondences() (corr []Correspondence, targets []geom.Vec3) {
	targets = []geom.Vec3{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1},
	}
	theta := 0.6
	q := geom.Quat{W: math.Cos(theta / 2), Y: math.Sin(theta / 2)}
	scale := 2.5
	translate := geom.Vec3{X: 3, Y: -1, Z: 0.5}
	for i, tgt := range targets {
		cur := q.Rotate(tgt).Scale(scale).Add(translate)
		corr = append(corr, Correspondence{PointID: "p" + string(rune('0'+i)), CurrentPosition: cur, TargetPosition: tgt})
	}
	return
}

func TestAlignSimilarityRecoversKnownTransform(t *testing.T) {
	corr, targets := syntheticCorrespondences()
	proj := scene.NewMemProject()
	for i, c := range corr {
		v := c.CurrentPosition
		proj.Points = append(proj.Points, &scene.WorldPoint{ID: c.PointID, OptimizedXYZ: &v})
		_ = targets[i]
	}

	ok, reason := AlignSimilarity(proj, corr)
	if !ok {
		t.Fatalf("AlignSimilarity failed: %s", reason)
	}
	for i, p := range proj.Points {
		got := *p.OptimizedXYZ
		want := targets[i]
		if math.Hypot(got.X-want.X, math.Hypot(got.Y-want.Y, got.Z-want.Z)) > 1e-6 {
			t.Fatalf("point %d = %+v, want %+v", i, got, want)
		}
	}
}

// TestAlignSimilarityIdempotent checks that re-running AlignSimilarity once
// the scene is already aligned to its targets leaves it unchanged (the
// recovered transform should be close to identity/unit scale).
func TestAlignSimilarityIdempotent(t *testing.T) {
	corr, targets := syntheticCorrespondences()
	proj := scene.NewMemProject()
	for _, c := range corr {
		v := c.CurrentPosition
		proj.Points = append(proj.Points, &scene.WorldPoint{ID: c.PointID, OptimizedXYZ: &v})
	}
	if ok, reason := AlignSimilarity(proj, corr); !ok {
		t.Fatalf("first AlignSimilarity failed: %s", reason)
	}

	var corr2 []Correspondence
	for i, p := range proj.Points {
		corr2 = append(corr2, Correspondence{PointID: p.ID, CurrentPosition: *p.OptimizedXYZ, TargetPosition: targets[i]})
	}
	if ok, reason := AlignSimilarity(proj, corr2); !ok {
		t.Fatalf("second AlignSimilarity failed: %s", reason)
	}
	for i, p := range proj.Points {
		got := *p.OptimizedXYZ
		want := targets[i]
		if math.Hypot(got.X-want.X, math.Hypot(got.Y-want.Y, got.Z-want.Z)) > 1e-6 {
			t.Fatalf("after second alignment point %d = %+v, want %+v (should be idempotent)", i, got, want)
		}
	}
}
