// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package triangulate

import (
	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

// Outcome reports one world point's initialization attempt, surfaced by
// the pipeline orchestrator alongside initcam.Outcome.
type Outcome struct {
	PointID     string
	Method      string // "multi-view", "single-view-plane", "single-view-depth"
	Initialized bool
	Reason      string
}

// InitializePoints implements spec.md §4.G's per-point attempt order for
// every point not already fully constrained (locked or already resolved by
// PropagateConstraintChains, which runs earlier as part of
// Project.PropagateInferences and is therefore not repeated here):
//  1. multi-view DLT triangulation from every initialised, observing camera
//     with sufficient parallax;
//  2. else single-view back-projection onto a coplanar-constraint plane, or
//     to the median depth of this camera's other resolved (locked or
//     multi-view) points;
//  3. else leave unset (the regularization residual is simply omitted).
func InitializePoints(proj scene.Project) []Outcome {
	lookup := scene.BuildLookup(proj)
	var outcomes []Outcome

	// multi-view pass first, since single-view fallback depth statistics
	// depend on multi-view results already being written back.
	var pending []*scene.WorldPoint
	for _, wp := range proj.WorldPoints() {
		if wp.FullyConstrained() {
			continue
		}
		obs, cams := observationsFor(lookup, wp.ID)
		if len(cams) >= 2 && sufficientParallax(obs) {
			if pos, ok := multiViewTriangulate(obs); ok {
				proj.SetOptimizedXYZ(wp.ID, pos)
				outcomes = append(outcomes, Outcome{PointID: wp.ID, Method: "multi-view", Initialized: true})
				continue
			}
		}
		pending = append(pending, wp)
	}

	for _, wp := range pending {
		obs, cams := observationsFor(lookup, wp.ID)
		if len(cams) == 0 {
			outcomes = append(outcomes, Outcome{PointID: wp.ID, Method: "none", Initialized: false, Reason: "not observed by any initialised camera"})
			continue
		}
		cam := cams[0]
		ray := obs[0]
		if pos, ok := backProjectToPlane(proj, wp.ID, ray); ok {
			proj.SetOptimizedXYZ(wp.ID, pos)
			outcomes = append(outcomes, Outcome{PointID: wp.ID, Method: "single-view-plane", Initialized: true})
			continue
		}
		if pos, ok := backProjectToMedianDepth(lookup, cam, ray); ok {
			proj.SetOptimizedXYZ(wp.ID, pos)
			outcomes = append(outcomes, Outcome{PointID: wp.ID, Method: "single-view-depth", Initialized: true})
			continue
		}
		outcomes = append(outcomes, Outcome{PointID: wp.ID, Method: "none", Initialized: false, Reason: "no plane constraint or other multi-view points to back-project against"})
	}

	return outcomes
}

// observationsFor gathers the world-space ray observations of a point from
// every initialised camera, alongside the matching camera list (same
// indexing) for back-projection fallbacks.
func observationsFor(lookup *scene.Lookup, pointID string) ([]observation, []*scene.Viewpoint) {
	var obs []observation
	var cams []*scene.Viewpoint
	for _, ip := range lookup.ImagePointsForPoint(pointID) {
		cam := lookup.Viewpoints[ip.ViewpointID]
		if cam == nil || !cam.Initialized {
			continue
		}
		camDir := geom.Unproject(cam.Intrinsics, ip.ObservedU, ip.ObservedV)
		obs = append(obs, observation{camPos: cam.Pose.Position, rayDir: worldRay(cam.Pose.Quat, camDir)})
		cams = append(cams, cam)
	}
	return obs, cams
}

// backProjectToPlane intersects the ray with the least-squares plane through
// the other already-resolved members of a Coplanar constraint that also
// names this point, if one exists.
func backProjectToPlane(proj scene.Project, pointID string, ray observation) (geom.Vec3, bool) {
	byID := map[string]*scene.WorldPoint{}
	for _, p := range proj.WorldPoints() {
		byID[p.ID] = p
	}
	for _, c := range proj.Constraints() {
		if c.Kind != scene.KindCoplanar {
			continue
		}
		member := false
		var others []geom.Vec3
		for _, id := range c.Points {
			if id == pointID {
				member = true
				continue
			}
			wp := byID[id]
			if wp == nil {
				continue
			}
			if pos, ok := wp.EffectiveVec3(); ok {
				others = append(others, pos)
			}
		}
		if !member || len(others) < 3 {
			continue
		}
		centroid, normal, ok := fitPlane(others)
		if !ok {
			continue
		}
		if pos, ok := intersectRayPlane(ray.camPos, ray.rayDir, centroid, normal); ok {
			return pos, true
		}
	}
	return geom.Vec3{}, false
}

// backProjectToMedianDepth places the point along its ray at the median
// distance of this camera's already-resolved points (either locked or
// previously triangulated multi-view).
func backProjectToMedianDepth(lookup *scene.Lookup, cam *scene.Viewpoint, ray observation) (geom.Vec3, bool) {
	var others []geom.Vec3
	for _, ip := range lookup.ImagePointsForCamera(cam.ID) {
		wp := lookup.Points[ip.WorldPointID]
		if wp == nil {
			continue
		}
		if pos, ok := wp.EffectiveVec3(); ok {
			others = append(others, pos)
		}
	}
	if len(others) == 0 {
		return geom.Vec3{}, false
	}
	depth := medianDepth(cam.Pose.Position, others)
	return ray.camPos.Add(ray.rayDir.Scale(depth)), true
}
