// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// This binary is an ambient demo, not a project-file tool: parsing a
// project file format, reading images, and the interactive editor are
// all out of scope for this module (spec.md §1). It builds a small
// in-memory scene.MemProject by hand and runs it through pipeline.Optimize,
// the way a caller embedding this module as a library would.
package main

import (
	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/pipeline"
	"github.com/cpmech/bundleadj/scene"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			chk.Verbose = true
			io.Pfred("ERROR: %v\n", err)
		}
	}()

	verbose := io.ArgToBool(0, true)

	io.Pfwhite("\nbundleadj -- a small bundle-adjustment demo\n\n")
	io.Pf("%v\n", io.ArgsTable(
		"show progress messages", "verbose", verbose,
	))

	proj := buildDemoScene()

	opts := pipeline.DefaultOptions()
	opts.Verbose = verbose

	result, err := pipeline.Optimize(proj, opts)
	if err != nil {
		chk.Panic("optimize failed: %v", err)
	}

	io.Pf("\nconverged=%v  iterations=%d  residual=%.6g  medianReprojectionError=%.4gpx\n",
		result.Converged, result.Iterations, result.Residual, result.MedianReprojectionError)
	for _, c := range result.CamerasInitialized {
		io.Pf("  camera %-8s method=%-20s initialized=%v\n", c.ViewpointID, c.Method, c.Initialized)
	}
	if len(result.Outliers) > 0 {
		io.Pfyel("flagged %d outlier observation(s)\n", len(result.Outliers))
	}
	for _, p := range proj.WorldPoints() {
		if p.OptimizedXYZ != nil {
			io.Pf("  point %-8s -> (%.3f, %.3f, %.3f)\n", p.ID, p.OptimizedXYZ.X, p.OptimizedXYZ.Y, p.OptimizedXYZ.Z)
		}
	}
}

// buildDemoScene describes a single camera viewing four locked corners of
// a 2x2 square (corners at +-1), enough for TryPnP (initcam), which needs
// at least three locked points, to recover a pose without any
// vanishing-point annotation.
func buildDemoScene() *scene.MemProject {
	proj := scene.NewMemProject()

	intr := geom.Intrinsics{FocalLength: 1200, AspectRatio: 1, Cx: 320, Cy: 240}
	proj.Views = append(proj.Views, &scene.Viewpoint{ID: "cam0", Width: 640, Height: 480, Intrinsics: intr})

	pose := scene.Pose{Position: geom.Vec3{X: 0, Y: 0, Z: -4}, Quat: geom.IdentityQuat()}
	corners := []geom.Vec3{
		{X: -1, Y: -1, Z: 0},
		{X: 1, Y: -1, Z: 0},
		{X: 1, Y: 1, Z: 0},
		{X: -1, Y: 1, Z: 0},
	}
	for i, c := range corners {
		x, y, z := c.X, c.Y, c.Z
		id := string(rune('A' + i))
		proj.Points = append(proj.Points, &scene.WorldPoint{ID: id, LockedXYZ: [3]*float64{&x, &y, &z}})

		camPoint := pose.Quat.Rotate(c.Sub(pose.Position))
		res := geom.Project(intr, camPoint)
		proj.Images = append(proj.Images, &scene.ImagePoint{
			WorldPointID: id,
			ViewpointID:  "cam0",
			ObservedU:    res.U,
			ObservedV:    res.V,
		})
	}
	return proj
}
