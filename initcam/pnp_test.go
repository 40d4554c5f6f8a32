// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package initcam

import (
	"fmt"
	"math"
	"testing"

	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

func testIntrinsics() geom.Intrinsics {
	return geom.Intrinsics{FocalLength: 700, AspectRatio: 1, Cx: 400, Cy: 300}
}

func normalizeQuat(q geom.Quat) geom.Quat {
	n := math.Sqrt(q.NormSq())
	return geom.Quat{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

func TestTryPnPRecoversKnownPose(t *testing.T) {
	intr := testIntrinsics()
	truePos := geom.Vec3{X: 1.5, Y: -0.5, Z: -9}
	trueQuat := normalizeQuat(geom.Quat{W: 1, X: 0.05, Y: 0.15, Z: -0.05})

	worldPts := []geom.Vec3{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}, {-1, 0.5, 0.5}, {0.5, -1, 1.5},
	}
	proj := scene.NewMemProject()
	for i, w := range worldPts {
		ww := w
		proj.Points = append(proj.Points, &scene.WorldPoint{
			ID:        fmt.Sprintf("p%d", i),
			LockedXYZ: [3]*float64{&ww.X, &ww.Y, &ww.Z},
		})
	}
	view := &scene.Viewpoint{ID: "cam0", Width: 800, Height: 600, Intrinsics: intr}
	proj.Views = []*scene.Viewpoint{view}
	for i, w := range worldPts {
		cam := trueQuat.Rotate(w.Sub(truePos))
		if cam.Z <= 0 {
			t.Fatalf("fixture point %d not in front of the synthetic camera", i)
		}
		p := geom.Project(intr, cam)
		proj.Images = append(proj.Images, &scene.ImagePoint{
			WorldPointID: fmt.Sprintf("p%d", i), ViewpointID: "cam0", ObservedU: p.U, ObservedV: p.V,
		})
	}

	lookup := scene.BuildLookup(proj)
	pose, ok, reason := TryPnP(lookup, view)
	if !ok {
		t.Fatalf("TryPnP failed: %s", reason)
	}

	for i, w := range worldPts {
		cam := pose.Quat.Rotate(w.Sub(pose.Position))
		p := geom.Project(intr, cam)
		want := proj.Images[i]
		if math.Hypot(p.U-want.ObservedU, p.V-want.ObservedV) > 1.0 {
			t.Fatalf("point %d: reprojection (%g,%g) too far from observed (%g,%g)", i, p.U, p.V, want.ObservedU, want.ObservedV)
		}
	}
}

func TestTryPnPRejectsTooFewPoints(t *testing.T) {
	intr := testIntrinsics()
	proj := scene.NewMemProject()
	w0 := geom.Vec3{X: 0, Y: 0, Z: 0}
	w1 := geom.Vec3{X: 1, Y: 0, Z: 0}
	proj.Points = []*scene.WorldPoint{
		{ID: "p0", LockedXYZ: [3]*float64{&w0.X, &w0.Y, &w0.Z}},
		{ID: "p1", LockedXYZ: [3]*float64{&w1.X, &w1.Y, &w1.Z}},
	}
	view := &scene.Viewpoint{ID: "cam0", Width: 800, Height: 600, Intrinsics: intr}
	proj.Views = []*scene.Viewpoint{view}
	proj.Images = []*scene.ImagePoint{
		{WorldPointID: "p0", ViewpointID: "cam0", ObservedU: 400, ObservedV: 300},
		{WorldPointID: "p1", ViewpointID: "cam0", ObservedU: 450, ObservedV: 300},
	}

	lookup := scene.BuildLookup(proj)
	_, ok, reason := TryPnP(lookup, view)
	if ok {
		t.Fatalf("expected TryPnP to fail with only 2 points")
	}
	if reason == "" {
		t.Fatalf("expected a non-empty failure reason")
	}
}
