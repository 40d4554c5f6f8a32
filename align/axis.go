// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
	"gonum.org/v1/gonum/mat"
)

// AlignToAxes rotates the reconstructed scene so that every axis-aligned
// Line (Direction DirX/DirY/DirZ, both endpoints currently resolvable)
// points along its nominal world axis, via least-squares orthogonal
// Procrustes over the observed/nominal direction pairs (spec.md §4.H
// "Axis alignment"). Reports false if no axis-constrained line currently
// resolves on both ends.
func AlignToAxes(proj scene.Project) (bool, string) {
	byID := pointIndex(proj)

	type pair struct {
		nominal, observed geom.Vec3
	}
	var pairs []pair
	for _, ln := range proj.Lines() {
		axis := axisOf(ln.Direction)
		if axis < 0 {
			continue
		}
		p1 := byID[ln.P1]
		p2 := byID[ln.P2]
		if p1 == nil || p2 == nil {
			continue
		}
		v1, ok1 := p1.EffectiveVec3()
		v2, ok2 := p2.EffectiveVec3()
		if !ok1 || !ok2 {
			continue
		}
		dir := v2.Sub(v1)
		if dir.Norm() < 1e-9 {
			continue
		}
		pairs = append(pairs, pair{nominal: geom.AxisUnit(axis), observed: dir.Unit()})
	}
	if len(pairs) == 0 {
		return false, "no axis-constrained line currently resolves on both ends"
	}

	h := mat.NewDense(3, 3, nil)
	for _, p := range pairs {
		n := vec3ToDense(p.nominal)
		o := vec3ToDense(p.observed)
		var term mat.Dense
		term.Mul(n, o.T())
		h.Add(h, &term)
	}
	r := nearestRotation(h)

	applyRigidTransform(proj, r, geom.Vec3{}, 1)
	return true, ""
}

func axisOf(dir scene.LineDirection) int {
	switch dir {
	case scene.DirX:
		return 0
	case scene.DirY:
		return 1
	case scene.DirZ:
		return 2
	}
	return -1
}

func pointIndex(proj scene.Project) map[string]*scene.WorldPoint {
	byID := map[string]*scene.WorldPoint{}
	for _, p := range proj.WorldPoints() {
		byID[p.ID] = p
	}
	return byID
}

// applyRigidTransform applies X' = scale*R*X + t to every world point whose
// position comes from triangulation (OptimizedXYZ; locked/inferred points
// are the alignment's fixed reference and are left untouched), and
// rotates/repositions every non-pose-locked camera so reprojection is
// unaffected: camPos' = scale*R*camPos + t, and the camera's own rotation
// composes with R's inverse (its transpose) so that R_cam' * (world' -
// camPos') is exactly scale times the original camPoint.
func applyRigidTransform(proj scene.Project, r *mat.Dense, t geom.Vec3, scale float64) {
	for _, p := range proj.WorldPoints() {
		if p.OptimizedXYZ == nil {
			continue
		}
		rotated := matVec(r, *p.OptimizedXYZ).Scale(scale)
		proj.SetOptimizedXYZ(p.ID, rotated.Add(t))
	}
	var rt mat.Dense
	rt.CloneFrom(r.T())
	for _, v := range proj.Viewpoints() {
		if v.IsPoseLocked || !v.Initialized {
			continue
		}
		newPos := matVec(r, v.Pose.Position).Scale(scale).Add(t)
		camR := quatToRotationDense(v.Pose.Quat)
		var newCamR mat.Dense
		newCamR.Mul(camR, &rt)
		newQuat := quatFromRotationDense(&newCamR)
		proj.SetPose(v.ID, scene.Pose{Position: newPos, Quat: newQuat})
	}
}
