// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package initcam

import (
	"math"

	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
	"gonum.org/v1/gonum/mat"
)

// DefaultBaseline is the nominal unit-baseline scale spec.md §4.F assigns
// the essential-matrix initializer; align's similarity/scale-only step
// corrects it once real-scale locked points or axis constraints exist.
const DefaultBaseline = 10.0

// EssentialMatrixResult is the relative pose recovered for two cameras
// sharing >=7 observations (spec.md §4.F "Two-view essential matrix").
type EssentialMatrixResult struct {
	PoseA, PoseB scene.Pose
	InliersUsed  int
}

type poseCandidate struct {
	r mat3
	t geom.Vec3
}

// TryEssentialMatrix recovers camB's pose relative to camA from paired
// image observations (obsA[i] and obsB[i] the same world point, both
// cameras): the 7-point algorithm when exactly 7 correspondences are
// given, the normalized 8-point algorithm otherwise, followed by
// cheirality selection among the 4 (R,t) candidates the essential matrix
// decomposes into. camA's returned pose is its existing pose if already
// initialized, else the identity (the pair's frame becomes world frame
// until alignment runs).
func TryEssentialMatrix(camA, camB *scene.Viewpoint, obsA, obsB [][2]float64, baseline float64) (EssentialMatrixResult, bool, string) {
	n := len(obsA)
	if n != len(obsB) || n < 7 {
		return EssentialMatrixResult{}, false, "fewer than 7 shared observations"
	}

	toRays := func(cam *scene.Viewpoint, obs [][2]float64) []geom.Vec3 {
		out := make([]geom.Vec3, len(obs))
		for i, o := range obs {
			out[i] = geom.Unproject(cam.Intrinsics, o[0], o[1])
		}
		return out
	}
	raysA, raysB := toRays(camA, obsA), toRays(camB, obsB)

	var eRaw mat3
	if n == 7 {
		eRaw = solveSevenPoint(raysA, raysB)
	} else {
		eRaw = solveEightPoint(raysA, raysB)
	}

	e, ok := projectToEssentialManifold(eRaw)
	if !ok {
		return EssentialMatrixResult{}, false, "essential matrix degenerate"
	}

	bestCount := -1
	var bestR mat3
	var bestT geom.Vec3
	for _, c := range decomposeEssential(e) {
		count := 0
		for i := range raysA {
			p, ok := triangulateTwoView(raysA[i], raysB[i], c.r, c.t)
			if !ok {
				continue
			}
			camPointB := c.r.mulVec(p).Add(c.t)
			if p.Z > 0 && camPointB.Z > 0 {
				count++
			}
		}
		if count > bestCount {
			bestCount, bestR, bestT = count, c.r, c.t
		}
	}
	if bestCount*2 < n {
		return EssentialMatrixResult{}, false, "cheirality check failed for every candidate pose"
	}

	scaledT := bestT.Unit().Scale(baseline)

	poseA := scene.Pose{Quat: geom.IdentityQuat()}
	if camA.Initialized {
		poseA = camA.Pose
	}
	rCamA := quatToMat3(poseA.Quat)
	rB := bestR.mul(rCamA)
	qB := quatFromMat3(rB)
	posB := poseA.Position.Sub(rB.transpose().mulVec(scaledT))

	return EssentialMatrixResult{
		PoseA:       poseA,
		PoseB:       scene.Pose{Position: posB, Quat: qB},
		InliersUsed: bestCount,
	}, true, ""
}

func solveEightPoint(raysA, raysB []geom.Vec3) mat3 {
	rows := make([][]float64, len(raysA))
	for i := range raysA {
		x, y := raysA[i].X, raysA[i].Y
		xp, yp := raysB[i].X, raysB[i].Y
		rows[i] = []float64{xp * x, xp * y, xp, yp * x, yp * y, yp, x, y, 1}
	}
	return vecToMat3(smallestRightSingularVector(rows))
}

// solveSevenPoint mixes the two null-space generators f1,f2 with a coarse
// grid search over alpha minimizing |det(alpha*f1+(1-alpha)*f2)|, a
// pragmatic stand-in for the textbook cubic-root disambiguation (the exact
// root only matters for picking among up to 3 real solutions via an outer
// RANSAC loop, which this orchestrator does not run).
func solveSevenPoint(raysA, raysB []geom.Vec3) mat3 {
	rows := make([][]float64, len(raysA))
	for i := range raysA {
		x, y := raysA[i].X, raysA[i].Y
		xp, yp := raysB[i].X, raysB[i].Y
		rows[i] = []float64{xp * x, xp * y, xp, yp * x, yp * y, yp, x, y, 1}
	}
	f1, f2 := twoSmallestRightSingularVectors(rows)

	const samples = 401
	bestScore := math.Inf(1)
	var bestF mat3
	for i := 0; i < samples; i++ {
		alpha := float64(i) / float64(samples-1)
		mix := make([]float64, 9)
		for k := range mix {
			mix[k] = alpha*f1[k] + (1-alpha)*f2[k]
		}
		m := vecToMat3(mix)
		if d := math.Abs(m.det()); d < bestScore {
			bestScore, bestF = d, m
		}
	}
	return bestF
}

// projectToEssentialManifold replaces raw's singular values with (1,1,0),
// the defining property of a valid essential matrix.
func projectToEssentialManifold(raw mat3) (mat3, bool) {
	d := mat.NewDense(3, 3, flatten3x3(raw))
	var svd mat.SVD
	if !svd.Factorize(d, mat.SVDFullU|mat.SVDFullV) {
		return mat3{}, false
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 0})
	var tmp, e mat.Dense
	tmp.Mul(&u, sigma)
	e.Mul(&tmp, v.T())
	return denseToMat3(&e), true
}

// decomposeEssential returns the 4 candidate (R,t) pairs a valid essential
// matrix decomposes into (Hartley & Zisserman's standard construction).
func decomposeEssential(e mat3) []poseCandidate {
	d := mat.NewDense(3, 3, flatten3x3(e))
	var svd mat.SVD
	svd.Factorize(d, mat.SVDFullU|mat.SVDFullV)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	w := mat.NewDense(3, 3, []float64{0, -1, 0, 1, 0, 0, 0, 0, 1})
	var tmp1, r1m, tmp2, r2m mat.Dense
	tmp1.Mul(&u, w)
	r1m.Mul(&tmp1, v.T())
	tmp2.Mul(&u, w.T())
	r2m.Mul(&tmp2, v.T())

	fixDet := func(m *mat.Dense) mat3 {
		out := denseToMat3(m)
		if out.det() < 0 {
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					out[i][j] = -out[i][j]
				}
			}
		}
		return out
	}
	r1, r2 := fixDet(&r1m), fixDet(&r2m)
	t := geom.Vec3{X: u.At(0, 2), Y: u.At(1, 2), Z: u.At(2, 2)}.Unit()

	return []poseCandidate{
		{r1, t}, {r1, t.Scale(-1)},
		{r2, t}, {r2, t.Scale(-1)},
	}
}

func flatten3x3(m mat3) []float64 {
	out := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		out = append(out, m[i][0], m[i][1], m[i][2])
	}
	return out
}

func denseToMat3(m *mat.Dense) mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}
