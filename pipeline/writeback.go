// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"github.com/cpmech/bundleadj/bundle"
	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

// writeBackPoses pushes a solved variable vector back onto every
// non-locked, non-fully-constrained point and every non-locked camera
// Layout assigned slots to (spec.md §4.J step 9 "write final poses, focal
// lengths, and optimizedXyz back to entities").
func writeBackPoses(l *bundle.Layout, x []float64, proj scene.Project) {
	for _, p := range proj.WorldPoints() {
		if p.FullyConstrained() {
			continue
		}
		idx := l.WorldPointIdx(p.ID)
		if idx[0] < 0 && idx[1] < 0 && idx[2] < 0 {
			continue
		}
		proj.SetOptimizedXYZ(p.ID, bundle.PointPosition(l, x, p.ID))
	}
	for _, v := range proj.Viewpoints() {
		if v.IsPoseLocked {
			continue
		}
		proj.SetPose(v.ID, scene.Pose{Position: bundle.CameraPosition(l, x, v.ID), Quat: bundle.CameraQuat(l, x, v.ID)})
		if l.CameraIdx(v.ID).Focal >= 0 {
			proj.SetFocalLength(v.ID, bundle.CameraFocal(l, x, v.ID, v.Intrinsics.FocalLength))
		}
	}
}

// writeBackResiduals recomputes and stores every observation's pixel
// residual from a solved variable vector, the same expression
// bundle.ReprojectionProvider.Residuals uses, so outlier.Detect reads
// exactly what the solver last converged to.
func writeBackResiduals(l *bundle.Layout, x []float64, proj scene.Project) {
	lookup := scene.BuildLookup(proj)
	for _, ip := range proj.ImagePoints() {
		cam := lookup.Viewpoints[ip.ViewpointID]
		if cam == nil {
			continue
		}
		world := bundle.PointPosition(l, x, ip.WorldPointID)
		camPos := bundle.CameraPosition(l, x, ip.ViewpointID)
		q := bundle.CameraQuat(l, x, ip.ViewpointID)
		f := bundle.CameraFocal(l, x, ip.ViewpointID, cam.Intrinsics.FocalLength)
		in := cam.Intrinsics
		in.FocalLength = f
		camPoint := q.Rotate(world.Sub(camPos))
		res := geom.Project(in, camPoint)
		proj.SetImagePointResidual(ip.WorldPointID, ip.ViewpointID, res.U-ip.ObservedU, res.V-ip.ObservedV)
	}
}
