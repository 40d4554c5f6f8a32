// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package initcam

import (
	"sort"

	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

// TryVanishingPoint recovers a camera's orientation from >=2 distinct-axis
// vanishing-line annotations, then its position from any fully-constrained
// world points observed in it (spec.md §4.F "Vanishing-point init"). Each
// annotated line's vanishing direction is approximated by the camera-space
// ray through its midpoint (the same simplification
// bundle.VanishingLineProvider documents — an exact VP needs the
// intersection of >=2 lines sharing an axis, which a single line's two
// endpoints cannot supply on their own).
func TryVanishingPoint(lookup *scene.Lookup, v *scene.Viewpoint) (scene.Pose, bool, string) {
	dirs := averageAxisDirections(v)
	if len(dirs) < 2 {
		return scene.Pose{}, false, "fewer than 2 distinct vanishing-point axes annotated"
	}

	r, ok := orthonormalAxesFromDirections(dirs)
	if !ok {
		return scene.Pose{}, false, "degenerate vanishing-point directions"
	}
	q := quatFromMat3(r)

	pos, hasPoints := solvePositionFromRays(lookup, v, r)
	if !hasPoints {
		pos = r.transpose().mulVec(geom.Vec3{Z: -10})
	}
	pose := scene.Pose{Position: pos, Quat: q}

	if !validateInFront(lookup, v, pose) {
		return scene.Pose{}, false, "majority of observed points not in front of camera"
	}
	return pose, true, ""
}

// averageAxisDirections groups a camera's vanishing-line annotations by
// world axis and averages each group's midpoint-backprojected direction.
func averageAxisDirections(v *scene.Viewpoint) map[int]geom.Vec3 {
	sums := map[int]geom.Vec3{}
	counts := map[int]int{}
	for _, line := range v.VanishingLines {
		mid := [2]float64{(line.P1[0] + line.P2[0]) / 2, (line.P1[1] + line.P2[1]) / 2}
		dir := geom.Unproject(v.Intrinsics, mid[0], mid[1]).Unit()
		sums[line.Axis] = sums[line.Axis].Add(dir)
		counts[line.Axis]++
	}
	out := map[int]geom.Vec3{}
	for axis, sum := range sums {
		out[axis] = sum.Scale(1 / float64(counts[axis])).Unit()
	}
	return out
}

// orthonormalAxesFromDirections builds a rotation matrix whose columns are
// the recovered world-axis directions: the first two annotated axes anchor
// a Gram-Schmidt pair and the third (annotated or not) is re-derived as
// their cross product, guaranteeing a right-handed orthonormal basis even
// when the raw annotations are slightly noisy.
func orthonormalAxesFromDirections(dirs map[int]geom.Vec3) (mat3, bool) {
	var axes []int
	for a := range dirs {
		axes = append(axes, a)
	}
	sort.Ints(axes)
	first, second := axes[0], axes[1]

	d0 := dirs[first].Unit()
	d1raw := dirs[second]
	d1 := d1raw.Sub(d0.Scale(d0.Dot(d1raw)))
	if d0.Norm() < 1e-9 || d1.Norm() < 1e-9 {
		return mat3{}, false
	}
	d1 = d1.Unit()

	var cols [3]geom.Vec3
	cols[first] = d0
	cols[second] = d1
	third := 3 - first - second
	cols[third] = cols[(third+1)%3].Cross(cols[(third+2)%3])
	return columnsToMat3(cols[0], cols[1], cols[2]), true
}

// solvePositionFromRays solves for the camera center C minimizing, over
// every fully-constrained observed point, the perpendicular distance from
// C to the line through the point along its backprojected ray direction:
// for unit world-frame ray direction d, (I - d*d^T)(C - W) = 0 is linear in
// C, so the least-squares solution stacks into a single 3x3 normal-
// equation system.
func solvePositionFromRays(lookup *scene.Lookup, v *scene.Viewpoint, r mat3) (geom.Vec3, bool) {
	var ata mat3
	var atb geom.Vec3
	count := 0
	for _, ip := range lookup.ImagePointsForCamera(v.ID) {
		wp := lookup.Points[ip.WorldPointID]
		if wp == nil || !wp.FullyConstrained() {
			continue
		}
		world, ok := wp.EffectiveVec3()
		if !ok {
			continue
		}
		ray := geom.Unproject(v.Intrinsics, ip.ObservedU, ip.ObservedV)
		worldRay := r.transpose().mulVec(ray).Unit()
		proj := identityMat3().sub(outer(worldRay, worldRay))
		ata = ata.add(proj)
		atb = atb.Add(proj.mulVec(world))
		count++
	}
	if count == 0 {
		return geom.Vec3{}, false
	}
	return solve3x3(ata, atb)
}

// validateInFront reports whether the majority of this camera's observed,
// resolvable world points project to positive camera-space depth.
func validateInFront(lookup *scene.Lookup, v *scene.Viewpoint, pose scene.Pose) bool {
	total, front := 0, 0
	for _, ip := range lookup.ImagePointsForCamera(v.ID) {
		wp := lookup.Points[ip.WorldPointID]
		if wp == nil {
			continue
		}
		world, ok := wp.EffectiveVec3()
		if !ok {
			continue
		}
		cam := pose.Quat.Rotate(world.Sub(pose.Position))
		total++
		if cam.Z > 0 {
			front++
		}
	}
	if total == 0 {
		return true
	}
	return front*2 >= total
}
