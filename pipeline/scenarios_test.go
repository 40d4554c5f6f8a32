// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"math"
	"testing"

	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

func cubeCorners() []geom.Vec3 {
	var out []geom.Vec3
	for _, x := range []float64{-1, 1} {
		for _, y := range []float64{-1, 1} {
			for _, z := range []float64{4, 6} {
				out = append(out, geom.Vec3{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}

func lockedPoint(id string, v geom.Vec3) *scene.WorldPoint {
	x, y, z := v.X, v.Y, v.Z
	return &scene.WorldPoint{ID: id, LockedXYZ: [3]*float64{&x, &y, &z}}
}

func observe(proj *scene.MemProject, pointID, viewID string, intr geom.Intrinsics, pose scene.Pose, world geom.Vec3) {
	camPoint := pose.Quat.Rotate(world.Sub(pose.Position))
	res := geom.Project(intr, camPoint)
	proj.Images = append(proj.Images, &scene.ImagePoint{
		WorldPointID: pointID,
		ViewpointID:  viewID,
		ObservedU:    res.U,
		ObservedV:    res.V,
	})
}

// buildPnPScene locks every cube corner and leaves one camera fully
// uninitialized, so Initialize must recover its pose via TryPnP from the
// locked correspondences alone (spec.md §8 "Simple PnP").
func buildPnPScene() *scene.MemProject {
	proj := scene.NewMemProject()
	intr := geom.Intrinsics{FocalLength: 1000, AspectRatio: 1, Cx: 320, Cy: 240}
	pose := scene.Pose{Position: geom.Vec3{X: 0, Y: 0, Z: -3}, Quat: geom.IdentityQuat()}
	view := &scene.Viewpoint{ID: "cam1", Width: 640, Height: 480, Intrinsics: intr}
	proj.Views = append(proj.Views, view)

	for i, c := range cubeCorners() {
		id := "p" + string(rune('0'+i))
		proj.Points = append(proj.Points, lockedPoint(id, c))
		observe(proj, id, "cam1", intr, pose, c)
	}
	return proj
}

// buildTwoViewScene poses both cameras from scratch via a shared wide
// baseline and plenty of correspondences, forcing Initialize onto the
// essential-matrix path (spec.md §8 "Essential matrix").
func buildTwoViewScene() (*scene.MemProject, geom.Intrinsics, scene.Pose, scene.Pose) {
	proj := scene.NewMemProject()
	intr := geom.Intrinsics{FocalLength: 1000, AspectRatio: 1, Cx: 320, Cy: 240}
	poseA := scene.Pose{Position: geom.Vec3{X: -1, Y: 0, Z: -4}, Quat: geom.IdentityQuat()}
	poseB := scene.Pose{Position: geom.Vec3{X: 1, Y: 0, Z: -4}, Quat: geom.IdentityQuat()}
	proj.Views = append(proj.Views,
		&scene.Viewpoint{ID: "camA", Width: 640, Height: 480, Intrinsics: intr},
		&scene.Viewpoint{ID: "camB", Width: 640, Height: 480, Intrinsics: intr},
	)

	corners := cubeCorners()
	// one locked axis-aligned pair anchors world scale/orientation so the
	// two-view reconstruction has something to align against.
	proj.Points = append(proj.Points, lockedPoint("anchor0", corners[0]), lockedPoint("anchor1", corners[1]))
	observe(proj, "anchor0", "camA", intr, poseA, corners[0])
	observe(proj, "anchor0", "camB", intr, poseB, corners[0])
	observe(proj, "anchor1", "camA", intr, poseA, corners[1])
	observe(proj, "anchor1", "camB", intr, poseB, corners[1])

	for i, c := range corners[2:] {
		id := "q" + string(rune('0'+i))
		proj.Points = append(proj.Points, &scene.WorldPoint{ID: id})
		observe(proj, id, "camA", intr, poseA, c)
		observe(proj, id, "camB", intr, poseB, c)
	}
	return proj, intr, poseA, poseB
}

func TestOptimizeSimplePnPScenario(t *testing.T) {
	proj := buildPnPScene()
	res, err := Optimize(proj, DefaultOptions())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence, got %+v", res)
	}
	if res.State != StateDone {
		t.Fatalf("expected final state Done, got %s", res.State)
	}
	foundPnP := false
	for _, o := range res.CamerasInitialized {
		if o.ViewpointID == "cam1" && o.Initialized && o.Method == "pnp" {
			foundPnP = true
		}
	}
	if !foundPnP {
		t.Fatalf("expected cam1 initialized via pnp, got %+v", res.CamerasInitialized)
	}
	if res.Residual > 1e-6 {
		t.Fatalf("expected near-zero residual for noiseless correspondences, got %v", res.Residual)
	}
}

func TestOptimizeEssentialMatrixScenario(t *testing.T) {
	proj, _, _, _ := buildTwoViewScene()
	res, err := Optimize(proj, DefaultOptions())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence, got %+v", res)
	}
	methods := map[string]bool{}
	for _, o := range res.CamerasInitialized {
		methods[o.Method] = true
	}
	if !methods["essential-matrix"] {
		t.Fatalf("expected an essential-matrix initialization, got %+v", res.CamerasInitialized)
	}
}

func TestOptimizeOutlierCascade(t *testing.T) {
	proj := buildPnPScene()
	// corrupt one observation far beyond any plausible reprojection error.
	proj.Images[0].ObservedU += 500
	proj.Images[0].ObservedV += 500

	res, err := Optimize(proj, DefaultOptions())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	found := false
	for _, o := range res.Outliers {
		if o.WorldPointID == proj.Images[0].WorldPointID && o.ViewpointID == "cam1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the corrupted observation to be flagged, got %+v", res.Outliers)
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	run := func() Result {
		proj := buildPnPScene()
		res, err := Optimize(proj, DefaultOptions())
		if err != nil {
			t.Fatalf("Optimize: %v", err)
		}
		return res
	}
	a, b := run(), run()
	if a.Converged != b.Converged || a.Iterations != b.Iterations {
		t.Fatalf("expected identical convergence behavior across runs, got %+v vs %+v", a, b)
	}
	if math.Abs(a.Residual-b.Residual) > 1e-12 {
		t.Fatalf("expected identical residual across runs, got %v vs %v", a.Residual, b.Residual)
	}
}

func TestOptimizeNoCameraCanInitialize(t *testing.T) {
	proj := scene.NewMemProject()
	proj.Views = append(proj.Views, &scene.Viewpoint{ID: "lonely", Width: 640, Height: 480})
	proj.Points = append(proj.Points, &scene.WorldPoint{ID: "p0"})
	proj.Images = append(proj.Images, &scene.ImagePoint{WorldPointID: "p0", ViewpointID: "lonely", ObservedU: 100, ObservedV: 100})

	_, err := Optimize(proj, DefaultOptions())
	if err == nil {
		t.Fatal("expected a precondition error when no camera can be posed")
	}
	if _, ok := err.(*PreconditionFailedError); !ok {
		t.Fatalf("expected *PreconditionFailedError, got %T: %v", err, err)
	}
}

func TestOptimizeFailedStateOnPrecondition(t *testing.T) {
	proj := scene.NewMemProject()
	proj.Views = append(proj.Views, &scene.Viewpoint{ID: "lonely", Width: 640, Height: 480})

	res, err := Optimize(proj, DefaultOptions())
	if err == nil {
		t.Fatal("expected a precondition error")
	}
	if res.State != StateFailed {
		t.Fatalf("expected State=Failed on a precondition error, got %s", res.State)
	}
}
