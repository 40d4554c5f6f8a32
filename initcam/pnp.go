// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package initcam

import (
	"math"
	"sort"

	"github.com/cpmech/bundleadj/bundle"
	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/lm"
	"github.com/cpmech/bundleadj/scene"
)

const (
	pnpMedianThresholdPx = 50.0
	pnpRefineIterations  = 25
)

type pnpCorr struct {
	id    string
	world geom.Vec3
	ray   geom.Vec3
	u, v  float64
}

// TryPnP recovers a camera's pose from >=3 observed world points whose
// position is already resolvable — locked, inferred, or (on the "late
// PnP" pass) freshly triangulated, all covered by WorldPoint.EffectiveVec3
// — per spec.md §4.F "PnP". An EPnP-style direct linear formulation (solve
// the 12-parameter [R|t] system by DLT, project the rotation block onto
// the nearest proper rotation) gives the initial estimate; it is then
// refined by a few Levenberg-Marquardt steps that reuse lm.Run and
// bundle.ReprojectionProvider directly, so the refinement's normal
// equations are never duplicated outside the solver.
func TryPnP(lookup *scene.Lookup, v *scene.Viewpoint) (scene.Pose, bool, string) {
	var corrs []pnpCorr
	for _, ip := range lookup.ImagePointsForCamera(v.ID) {
		wp := lookup.Points[ip.WorldPointID]
		if wp == nil {
			continue
		}
		world, ok := wp.EffectiveVec3()
		if !ok {
			continue
		}
		ray := geom.Unproject(v.Intrinsics, ip.ObservedU, ip.ObservedV)
		corrs = append(corrs, pnpCorr{id: ip.WorldPointID, world: world, ray: ray, u: ip.ObservedU, v: ip.ObservedV})
	}
	if len(corrs) < 3 {
		return scene.Pose{}, false, "fewer than 3 points with a resolvable position observed"
	}

	m := solvePnPDLT(corrs)

	frontCount := 0
	for _, c := range corrs {
		z := m[8]*c.world.X + m[9]*c.world.Y + m[10]*c.world.Z + m[11]
		if z > 0 {
			frontCount++
		}
	}
	if frontCount*2 < len(corrs) {
		for i := range m {
			m[i] = -m[i]
		}
	}

	var r0 mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r0[i][j] = m[i*4+j]
		}
	}
	t0 := geom.Vec3{X: m[3], Y: m[7], Z: m[11]}

	r, scale := nearestRotation(r0)
	if scale < 1e-9 {
		return scene.Pose{}, false, "degenerate DLT solution"
	}
	t := t0.Scale(1 / scale)
	camPos := r.transpose().mulVec(t).Scale(-1)
	q := quatFromMat3(r)

	pose, medianErr := refinePoseByReprojection(corrs, v.Intrinsics, scene.Pose{Position: camPos, Quat: q})

	var centroid geom.Vec3
	for _, c := range corrs {
		centroid = centroid.Add(c.world)
	}
	centroid = centroid.Scale(1 / float64(len(corrs)))
	if pose.Quat.Rotate(centroid.Sub(pose.Position)).Z <= 0 {
		return scene.Pose{}, false, "camera placed behind the point centroid"
	}
	if medianErr > pnpMedianThresholdPx {
		return scene.Pose{}, false, "PnP refinement left a high median reprojection error"
	}
	return pose, true, ""
}

// solvePnPDLT builds the 12-unknown homogeneous system for M=[R|t] from
// d_i x (M * [W_i;1]) = 0 (two independent rows per correspondence; the
// third is a linear combination of the first two) and returns its
// nullspace solution, flattened row-major as M1(4),M2(4),M3(4).
func solvePnPDLT(corrs []pnpCorr) []float64 {
	rows := make([][]float64, 0, 2*len(corrs))
	for _, c := range corrs {
		wh := [4]float64{c.world.X, c.world.Y, c.world.Z, 1}
		row1 := make([]float64, 12)
		row2 := make([]float64, 12)
		for i := 0; i < 4; i++ {
			row1[4+i] = -c.ray.Z * wh[i]
			row1[8+i] = c.ray.Y * wh[i]
			row2[0+i] = c.ray.Z * wh[i]
			row2[8+i] = -c.ray.X * wh[i]
		}
		rows = append(rows, row1, row2)
	}
	return smallestRightSingularVector(rows)
}

// refinePoseByReprojection runs a handful of Levenberg-Marquardt steps
// over a throwaway one-camera project holding the correspondences locked,
// returning the refined pose and the median reprojection error (pixels)
// used to validate the PnP outcome.
func refinePoseByReprojection(corrs []pnpCorr, intr geom.Intrinsics, initial scene.Pose) (scene.Pose, float64) {
	const camID = "_pnp"
	proj := scene.NewMemProject()
	for _, c := range corrs {
		w := c.world
		proj.Points = append(proj.Points, &scene.WorldPoint{
			ID:        c.id,
			LockedXYZ: [3]*float64{ptr(w.X), ptr(w.Y), ptr(w.Z)},
		})
	}
	proj.Views = []*scene.Viewpoint{{ID: camID, Intrinsics: intr, Pose: initial}}
	for _, c := range corrs {
		proj.Images = append(proj.Images, &scene.ImagePoint{WorldPointID: c.id, ViewpointID: camID, ObservedU: c.u, ObservedV: c.v})
	}

	l := bundle.NewLayout(proj, bundle.IntrinsicsFixed)
	var providers []bundle.Provider
	for _, c := range corrs {
		providers = append(providers, bundle.NewReprojectionProvider(l, c.id, camID, intr, c.u, c.v))
	}
	providers = append(providers, bundle.NewQuatNormProvider(l, camID))

	opts := lm.DefaultOptions()
	opts.MaxIterations = pnpRefineIterations
	_, _ = lm.Run(providers, l.X, opts)

	pos := bundle.CameraPosition(l, l.X, camID)
	q := bundle.CameraQuat(l, l.X, camID)
	refined := scene.Pose{Position: pos, Quat: q}

	errs := make([]float64, 0, len(corrs))
	for _, c := range corrs {
		cam := refined.Quat.Rotate(c.world.Sub(refined.Position))
		p := geom.Project(intr, cam)
		errs = append(errs, math.Hypot(p.U-c.u, p.V-c.v))
	}
	sort.Float64s(errs)
	return refined, errs[len(errs)/2]
}
