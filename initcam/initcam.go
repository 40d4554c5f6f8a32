// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package initcam

import (
	"sort"

	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

// Outcome reports one camera's initialization attempt, surfaced by the
// pipeline orchestrator's camerasInitialized/camerasExcluded reporting
// (spec.md §4.J).
type Outcome struct {
	ViewpointID string
	Method      string // "vanishing-point", "pnp", "essential-matrix", "late-pnp"
	Initialized bool
	Reason      string // non-empty iff !Initialized
}

// SanitizeIntrinsics resets every viewpoint's intrinsics to the safe
// ranges spec.md §4.F's closing paragraph requires, before any
// initialization attempt runs.
func SanitizeIntrinsics(proj scene.Project) {
	for _, v := range proj.Viewpoints() {
		v.Intrinsics = geom.Sanitize(v.Intrinsics, v.Width, v.Height)
	}
}

// Initialize runs the top-level attempt order of spec.md §4.F: per camera
// try vanishing-point then PnP; if nothing was initialized and >=2 cameras
// remain uninitialized, try the essential matrix on the pair sharing the
// most observations. "Late PnP" — using world points triangulated from
// this first pass — is a separate step (LatePnP below), run by the
// pipeline only after triangulate.InitializePoints produces new geometry,
// since it depends on component G's output.
func Initialize(proj scene.Project, baseline float64) []Outcome {
	lookup := scene.BuildLookup(proj)
	var outcomes []Outcome
	anyInitialized := false

	for _, v := range proj.Viewpoints() {
		if v.IsPoseLocked || v.Initialized {
			continue
		}
		if pose, ok, _ := TryVanishingPoint(lookup, v); ok {
			v.Pose, v.Initialized = pose, true
			anyInitialized = true
			outcomes = append(outcomes, Outcome{ViewpointID: v.ID, Method: "vanishing-point", Initialized: true})
			continue
		}
		pose, ok, reason := TryPnP(lookup, v)
		if ok {
			v.Pose, v.Initialized = pose, true
			anyInitialized = true
			outcomes = append(outcomes, Outcome{ViewpointID: v.ID, Method: "pnp", Initialized: true})
			continue
		}
		outcomes = append(outcomes, Outcome{ViewpointID: v.ID, Method: "vanishing-point/pnp", Initialized: false, Reason: reason})
	}

	if !anyInitialized {
		uninit := uninitializedCameras(proj)
		if len(uninit) >= 2 {
			a, b, obsA, obsB := bestSharedPair(lookup, uninit)
			if a != nil {
				result, ok, reason := TryEssentialMatrix(a, b, obsA, obsB, baseline)
				if ok {
					a.Pose, a.Initialized = result.PoseA, true
					b.Pose, b.Initialized = result.PoseB, true
					outcomes = append(outcomes,
						Outcome{ViewpointID: a.ID, Method: "essential-matrix", Initialized: true},
						Outcome{ViewpointID: b.ID, Method: "essential-matrix", Initialized: true})
				} else {
					outcomes = append(outcomes, Outcome{ViewpointID: a.ID + "," + b.ID, Method: "essential-matrix", Initialized: false, Reason: reason})
				}
			}
		}
	}

	return outcomes
}

// LatePnP retries PnP for every still-uninitialized camera, called by the
// pipeline after triangulate.InitializePoints has given newly reconstructed
// points an OptimizedXYZ (spec.md §4.F "late PnP").
func LatePnP(proj scene.Project) []Outcome {
	lookup := scene.BuildLookup(proj)
	var outcomes []Outcome
	for _, v := range proj.Viewpoints() {
		if v.IsPoseLocked || v.Initialized {
			continue
		}
		if pose, ok, reason := TryPnP(lookup, v); ok {
			v.Pose, v.Initialized = pose, true
			outcomes = append(outcomes, Outcome{ViewpointID: v.ID, Method: "late-pnp", Initialized: true})
		} else {
			outcomes = append(outcomes, Outcome{ViewpointID: v.ID, Method: "late-pnp", Initialized: false, Reason: reason})
		}
	}
	return outcomes
}

func uninitializedCameras(proj scene.Project) []*scene.Viewpoint {
	var out []*scene.Viewpoint
	for _, v := range proj.Viewpoints() {
		if !v.Initialized && !v.IsPoseLocked {
			out = append(out, v)
		}
	}
	return out
}

// bestSharedPair finds the pair of cameras sharing the most observed world
// points and returns their paired observation lists, aligned by point ID.
func bestSharedPair(lookup *scene.Lookup, cams []*scene.Viewpoint) (a, b *scene.Viewpoint, obsA, obsB [][2]float64) {
	bestCount := -1
	for i := 0; i < len(cams); i++ {
		for j := i + 1; j < len(cams); j++ {
			sa, sb := sharedObservations(lookup, cams[i], cams[j])
			if len(sa) > bestCount {
				bestCount = len(sa)
				a, b, obsA, obsB = cams[i], cams[j], sa, sb
			}
		}
	}
	return
}

func sharedObservations(lookup *scene.Lookup, camA, camB *scene.Viewpoint) (obsA, obsB [][2]float64) {
	byPointB := map[string][2]float64{}
	for _, ip := range lookup.ImagePointsForCamera(camB.ID) {
		byPointB[ip.WorldPointID] = [2]float64{ip.ObservedU, ip.ObservedV}
	}
	byPointA := map[string][2]float64{}
	var sharedIDs []string
	for _, ip := range lookup.ImagePointsForCamera(camA.ID) {
		byPointA[ip.WorldPointID] = [2]float64{ip.ObservedU, ip.ObservedV}
		if _, ok := byPointB[ip.WorldPointID]; ok {
			sharedIDs = append(sharedIDs, ip.WorldPointID)
		}
	}
	sort.Strings(sharedIDs)
	for _, id := range sharedIDs {
		obsA = append(obsA, byPointA[id])
		obsB = append(obsB, byPointB[id])
	}
	return
}
