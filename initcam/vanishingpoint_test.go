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

// pixelForRay returns the pixel a camera-space ray direction (unnormalized,
// z taken as the forward component) backprojects from under in, the exact
// inverse of geom.Unproject (ignoring distortion, as Unproject itself does).
func pixelForRay(in geom.Intrinsics, dir geom.Vec3) (u, v float64) {
	xu, yu := dir.X/dir.Z, dir.Y/dir.Z
	u = in.Cx + in.FocalLength*xu
	v = in.Cy - in.Fy()*yu
	return
}

func TestTryVanishingPointRecoversOrientation(t *testing.T) {
	intr := testIntrinsics()
	// Rotation by -40 degrees about world Y: rotated X and Z axes both land
	// with positive camera-space depth (Y stays put with z=0, so it is
	// deliberately left unannotated and must be recovered via cross product).
	theta := -40.0 * math.Pi / 180
	trueQuat := geom.Quat{W: math.Cos(theta / 2), Y: math.Sin(theta / 2)}
	truePos := geom.Vec3{X: 0, Y: 0, Z: -8}

	dirX := trueQuat.Rotate(geom.AxisUnit(0))
	dirZ := trueQuat.Rotate(geom.AxisUnit(2))
	if dirX.Z <= 0 || dirZ.Z <= 0 {
		t.Fatalf("fixture directions not forward-facing: dirX=%+v dirZ=%+v", dirX, dirZ)
	}
	uX, vX := pixelForRay(intr, dirX)
	uZ, vZ := pixelForRay(intr, dirZ)

	worldPts := []geom.Vec3{{0, 0, 0}, {2, 0, 3}, {-1, 2, 4}}
	proj := scene.NewMemProject()
	for i, w := range worldPts {
		ww := w
		proj.Points = append(proj.Points, &scene.WorldPoint{
			ID:        fmt.Sprintf("p%d", i),
			LockedXYZ: [3]*float64{&ww.X, &ww.Y, &ww.Z},
		})
	}
	view := &scene.Viewpoint{
		ID: "cam0", Width: 800, Height: 600, Intrinsics: intr,
		VanishingLines: []scene.VanishingLineObs{
			{Axis: 0, P1: [2]float64{uX, vX}, P2: [2]float64{uX, vX}},
			{Axis: 2, P1: [2]float64{uZ, vZ}, P2: [2]float64{uZ, vZ}},
		},
	}
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
	pose, ok, reason := TryVanishingPoint(lookup, view)
	if !ok {
		t.Fatalf("TryVanishingPoint failed: %s", reason)
	}

	for k := 0; k < 3; k++ {
		got := pose.Quat.Rotate(geom.AxisUnit(k))
		want := trueQuat.Rotate(geom.AxisUnit(k))
		if math.Hypot(got.X-want.X, math.Hypot(got.Y-want.Y, got.Z-want.Z)) > 0.02 {
			t.Fatalf("axis %d direction = %+v, want %+v", k, got, want)
		}
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

func TestTryVanishingPointRejectsSingleAxis(t *testing.T) {
	view := &scene.Viewpoint{
		ID: "cam0", Width: 800, Height: 600, Intrinsics: testIntrinsics(),
		VanishingLines: []scene.VanishingLineObs{{Axis: 0, P1: [2]float64{500, 300}, P2: [2]float64{600, 300}}},
	}
	proj := scene.NewMemProject()
	proj.Views = []*scene.Viewpoint{view}
	lookup := scene.BuildLookup(proj)

	_, ok, reason := TryVanishingPoint(lookup, view)
	if ok {
		t.Fatalf("expected failure with only 1 annotated axis")
	}
	if reason == "" {
		t.Fatalf("expected a non-empty failure reason")
	}
}
