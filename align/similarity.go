// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
	"gonum.org/v1/gonum/mat"
)

// Correspondence pairs a fully-constrained point's locked target with its
// position from a preliminary solve (before locks are reapplied) — the
// pipeline orchestrator supplies these from the "free solve" step of
// spec.md §4.J.5 when an essential-matrix initialization left the scene in
// an arbitrary-scale, arbitrary-frame state.
type Correspondence struct {
	PointID         string
	CurrentPosition geom.Vec3
	TargetPosition  geom.Vec3
}

// AlignSimilarity computes the 7-DoF similarity (rotation + translation +
// isotropic scale) mapping corr's CurrentPosition set onto its
// TargetPosition set — Horn's closed-form method when >=3 non-collinear
// correspondences are given, translation/scale-only otherwise — and applies
// it to every triangulated world point and non-locked camera pose (spec.md
// §4.H "Similarity alignment to locked points").
func AlignSimilarity(proj scene.Project, corr []Correspondence) (bool, string) {
	if len(corr) == 0 {
		return false, "no fully-constrained correspondences available for similarity alignment"
	}

	var srcCentroid, dstCentroid geom.Vec3
	for _, c := range corr {
		srcCentroid = srcCentroid.Add(c.CurrentPosition)
		dstCentroid = dstCentroid.Add(c.TargetPosition)
	}
	n := float64(len(corr))
	srcCentroid = srcCentroid.Scale(1 / n)
	dstCentroid = dstCentroid.Scale(1 / n)

	if len(corr) < 3 || collinear(corr) {
		scale := 1.0
		if len(corr) >= 2 {
			scale = meanPairwiseDistanceRatio(corr)
		}
		t := dstCentroid.Sub(srcCentroid.Scale(scale))
		applyRigidTransform(proj, identity3(), t, scale)
		return true, ""
	}

	h := mat.NewDense(3, 3, nil)
	var srcVar float64
	for _, c := range corr {
		s := c.CurrentPosition.Sub(srcCentroid)
		d := c.TargetPosition.Sub(dstCentroid)
		srcVar += s.Dot(s)
		term := mat.NewDense(3, 3, nil)
		term.Mul(vec3ToDense(d), vec3ToDense(s).T())
		h.Add(h, term)
	}
	r := nearestRotation(h)

	var num float64
	for _, c := range corr {
		s := c.CurrentPosition.Sub(srcCentroid)
		d := c.TargetPosition.Sub(dstCentroid)
		num += d.Dot(matVec(r, s))
	}
	scale := 1.0
	if srcVar > 1e-12 {
		scale = num / srcVar
	}
	t := dstCentroid.Sub(matVec(r, srcCentroid).Scale(scale))
	applyRigidTransform(proj, r, t, scale)
	return true, ""
}

// ScaleOnlyCorrection uniformly scales the scene (world points and camera
// positions, about the origin) by the mean ratio of each correspondence
// pair's locked pairwise distance to its current triangulated pairwise
// distance, per spec.md §4.H's PnP-path scale correction. Requires >=2
// correspondences to form at least one pair.
func ScaleOnlyCorrection(proj scene.Project, corr []Correspondence) (bool, string) {
	if len(corr) < 2 {
		return false, "fewer than 2 fully-constrained triangulated points for scale correction"
	}
	scale := meanPairwiseDistanceRatio(corr)
	applyRigidTransform(proj, identity3(), geom.Vec3{}, scale)
	return true, ""
}

func meanPairwiseDistanceRatio(corr []Correspondence) float64 {
	var sum float64
	count := 0
	for i := 0; i < len(corr); i++ {
		for j := i + 1; j < len(corr); j++ {
			cur := corr[i].CurrentPosition.Sub(corr[j].CurrentPosition).Norm()
			target := corr[i].TargetPosition.Sub(corr[j].TargetPosition).Norm()
			if cur < 1e-9 {
				continue
			}
			sum += target / cur
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return sum / float64(count)
}

func collinear(corr []Correspondence) bool {
	if len(corr) < 3 {
		return true
	}
	base := corr[0].CurrentPosition
	d1 := corr[1].CurrentPosition.Sub(base)
	for _, c := range corr[2:] {
		d2 := c.CurrentPosition.Sub(base)
		if d1.Cross(d2).Norm() > 1e-9 {
			return false
		}
	}
	return true
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}
