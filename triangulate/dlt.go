// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package triangulate resolves world-point positions once cameras are
// initialised: multi-view DLT triangulation, single-view back-projection
// onto a constraint-derived plane or median depth, and propagation of
// positions through direction/length-constrained chains (registered with
// scene as the default inference propagator). New component; no teacher
// analogue.
package triangulate

import (
	"math"
	"sort"

	"github.com/cpmech/bundleadj/geom"
	"gonum.org/v1/gonum/mat"
)

const parallaxThresholdCos = 0.9998 // ~1.1 degrees between ray directions

// observation is one camera's view of a world point, already resolved to
// world-space quantities (camera position and a unit ray direction).
type observation struct {
	camPos geom.Vec3
	rayDir geom.Vec3 // world-space unit direction from camPos through the point
}

// worldRay converts a camera-frame back-projected ray to a world-space unit
// direction, using the inverse of the non-unit-safe Quat.Rotate convention
// camPoint = q.Rotate(world - camPos).
func worldRay(pose geom.Quat, camDir geom.Vec3) geom.Vec3 {
	n := pose.NormSq()
	if n == 0 {
		n = 1
	}
	return pose.Conjugate().Rotate(camDir).Scale(1 / n).Unit()
}

// sufficientParallax reports whether at least one pair of observations has
// ray directions separated by more than a shallow grazing angle; degenerate
// (near-parallel) ray sets produce poorly conditioned triangulation.
func sufficientParallax(obs []observation) bool {
	for i := 0; i < len(obs); i++ {
		for j := i + 1; j < len(obs); j++ {
			if obs[i].rayDir.Dot(obs[j].rayDir) < parallaxThresholdCos {
				return true
			}
		}
	}
	return false
}

// multiViewTriangulate solves for the world point X minimizing the DLT
// residual of ray_i x (X - camPos_i) = 0 over all observations, via the
// null space of the homogeneous system [A | -b]*[X;1] = 0 (gonum SVD,
// smallest right singular vector), mirroring the same two-row-per-
// observation construction initcam's PnP DLT uses for the analogous
// [R|t] unknowns.
func multiViewTriangulate(obs []observation) (geom.Vec3, bool) {
	rows := make([][]float64, 0, 2*len(obs))
	for _, o := range obs {
		d := o.rayDir
		c := o.camPos
		// d x (X - c) = 0 => two independent rows in X (homogeneous, 4th col = 1).
		row1 := []float64{0, -d.Z, d.Y, d.Z*c.Y - d.Y*c.Z}
		row2 := []float64{d.Z, 0, -d.X, -d.Z*c.X + d.X*c.Z}
		rows = append(rows, row1, row2)
	}
	v := smallestRightSingularVector(rows)
	if math.Abs(v[3]) < 1e-9 {
		return geom.Vec3{}, false
	}
	return geom.Vec3{X: v[0] / v[3], Y: v[1] / v[3], Z: v[2] / v[3]}, true
}

// smallestRightSingularVector returns the right singular vector associated
// with the smallest singular value of the matrix whose rows are given,
// i.e. a least-squares null space solution.
func smallestRightSingularVector(rows [][]float64) []float64 {
	r, c := len(rows), len(rows[0])
	flat := make([]float64, 0, r*c)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	a := mat.NewDense(r, c, flat)
	var svd mat.SVD
	svd.Factorize(a, mat.SVDFullV)
	var v mat.Dense
	svd.VTo(&v)
	out := make([]float64, c)
	for i := 0; i < c; i++ {
		out[i] = v.At(i, c-1)
	}
	return out
}

// fitPlane returns the centroid and unit normal of the least-squares plane
// through pts (>=3 points), via SVD of the centered point matrix.
func fitPlane(pts []geom.Vec3) (centroid, normal geom.Vec3, ok bool) {
	if len(pts) < 3 {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	for _, p := range pts {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1 / float64(len(pts)))

	rows := make([]float64, 0, len(pts)*3)
	for _, p := range pts {
		d := p.Sub(centroid)
		rows = append(rows, d.X, d.Y, d.Z)
	}
	a := mat.NewDense(len(pts), 3, rows)
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFullV) {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	var v mat.Dense
	svd.VTo(&v)
	normal = geom.Vec3{X: v.At(0, 2), Y: v.At(1, 2), Z: v.At(2, 2)}.Unit()
	return centroid, normal, true
}

// intersectRayPlane solves for t in (camPos + t*rayDir - centroid).normal = 0.
func intersectRayPlane(camPos, rayDir, centroid, normal geom.Vec3) (geom.Vec3, bool) {
	denom := rayDir.Dot(normal)
	if math.Abs(denom) < 1e-9 {
		return geom.Vec3{}, false
	}
	t := centroid.Sub(camPos).Dot(normal) / denom
	if t <= 0 {
		return geom.Vec3{}, false
	}
	return camPos.Add(rayDir.Scale(t)), true
}

// medianDepth returns the median distance from camPos to pts.
func medianDepth(camPos geom.Vec3, pts []geom.Vec3) float64 {
	depths := make([]float64, len(pts))
	for i, p := range pts {
		depths[i] = p.Sub(camPos).Norm()
	}
	sort.Float64s(depths)
	return depths[len(depths)/2]
}
