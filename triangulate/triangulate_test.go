// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package triangulate

import (
	"math"
	"testing"

	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

func testIntrinsics() geom.Intrinsics {
	return geom.Intrinsics{FocalLength: 700, AspectRatio: 1, Cx: 400, Cy: 300}
}

func TestInitializePointsMultiView(t *testing.T) {
	intr := testIntrinsics()
	truePoint := geom.Vec3{X: 0.3, Y: -0.2, Z: 2.0}

	camA := &scene.Viewpoint{ID: "camA", Intrinsics: intr, Initialized: true,
		Pose: scene.Pose{Position: geom.Vec3{X: -1, Y: 0, Z: 0}, Quat: geom.IdentityQuat()}}
	camB := &scene.Viewpoint{ID: "camB", Intrinsics: intr, Initialized: true,
		Pose: scene.Pose{Position: geom.Vec3{X: 1, Y: 0, Z: 0}, Quat: geom.IdentityQuat()}}

	proj := scene.NewMemProject()
	proj.Views = []*scene.Viewpoint{camA, camB}
	proj.Points = []*scene.WorldPoint{{ID: "p0"}}

	for _, cam := range proj.Views {
		camPt := cam.Pose.Quat.Rotate(truePoint.Sub(cam.Pose.Position))
		p := geom.Project(intr, camPt)
		proj.Images = append(proj.Images, &scene.ImagePoint{WorldPointID: "p0", ViewpointID: cam.ID, ObservedU: p.U, ObservedV: p.V})
	}

	outcomes := InitializePoints(proj)
	if len(outcomes) != 1 || !outcomes[0].Initialized || outcomes[0].Method != "multi-view" {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	got := *proj.Points[0].OptimizedXYZ
	if math.Hypot(got.X-truePoint.X, math.Hypot(got.Y-truePoint.Y, got.Z-truePoint.Z)) > 1e-3 {
		t.Fatalf("triangulated point %+v too far from true %+v", got, truePoint)
	}
}

func TestInitializePointsSingleViewDepthFallback(t *testing.T) {
	intr := testIntrinsics()
	cam := &scene.Viewpoint{ID: "cam0", Intrinsics: intr, Initialized: true,
		Pose: scene.Pose{Position: geom.Vec3{}, Quat: geom.IdentityQuat()}}

	anchor := geom.Vec3{X: 0, Y: 0, Z: 5}
	proj := scene.NewMemProject()
	proj.Views = []*scene.Viewpoint{cam}
	ax, ay, az := anchor.X, anchor.Y, anchor.Z
	proj.Points = []*scene.WorldPoint{
		{ID: "anchor", LockedXYZ: [3]*float64{&ax, &ay, &az}},
		{ID: "target"},
	}
	for _, id := range []string{"anchor", "target"} {
		wp := proj.Points[0]
		if id == "target" {
			wp = proj.Points[1]
		}
		pos, _ := wp.EffectiveVec3()
		if id == "target" {
			pos = geom.Vec3{X: 1, Y: 0.5, Z: 5} // same rough depth, different ray
		}
		camPt := cam.Pose.Quat.Rotate(pos.Sub(cam.Pose.Position))
		p := geom.Project(intr, camPt)
		proj.Images = append(proj.Images, &scene.ImagePoint{WorldPointID: id, ViewpointID: cam.ID, ObservedU: p.U, ObservedV: p.V})
	}

	outcomes := InitializePoints(proj)
	var targetOutcome *Outcome
	for i := range outcomes {
		if outcomes[i].PointID == "target" {
			targetOutcome = &outcomes[i]
		}
	}
	if targetOutcome == nil || !targetOutcome.Initialized || targetOutcome.Method != "single-view-depth" {
		t.Fatalf("expected single-view-depth outcome for target, got %+v", outcomes)
	}
	got := *proj.Points[1].OptimizedXYZ
	if math.Abs(got.Sub(cam.Pose.Position).Norm()-5) > 0.5 {
		t.Fatalf("back-projected depth %+v not near expected 5", got)
	}
}

func TestPropagateConstraintChainsAlongAxisLine(t *testing.T) {
	proj := scene.NewMemProject()
	rx, ry, rz := 0.0, 0.0, 0.0
	proj.Points = []*scene.WorldPoint{
		{ID: "root", LockedXYZ: [3]*float64{&rx, &ry, &rz}},
		{ID: "tip"},
	}
	length := 3.0
	proj.LinesList = []*scene.Line{
		{ID: "rod", P1: "root", P2: "tip", Direction: scene.DirX, TargetLength: &length},
	}

	PropagateConstraintChains(proj)

	tip := proj.Points[1]
	v, ok := tip.EffectiveVec3()
	if !ok {
		t.Fatalf("expected tip to be resolved via propagation")
	}
	if math.Abs(v.X-3) > 1e-9 || math.Abs(v.Y) > 1e-9 || math.Abs(v.Z) > 1e-9 {
		t.Fatalf("propagated tip position = %+v, want (3,0,0)", v)
	}
}
