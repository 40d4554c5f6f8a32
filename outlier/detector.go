// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package outlier flags observations whose reprojection error is far from
// the median after a solve, and reports the cascade-exclusion candidates
// the pipeline orchestrator acts on. New component; no teacher analogue.
package outlier

import (
	"math"
	"sort"

	"github.com/cpmech/bundleadj/scene"
	"gonum.org/v1/gonum/stat"
)

// DefaultK is the default threshold multiplier of spec.md §4.I.
const DefaultK = 3.0

// Flagged is one observation whose reprojection error exceeded Result's
// threshold, in descending-error order.
type Flagged struct {
	WorldPointID string
	ViewpointID  string
	Error        float64
}

// Result summarizes one outlier-detection pass.
type Result struct {
	Median    float64
	Threshold float64
	Outliers  []Flagged
}

// Detect computes each observation's reprojection error from its last
// solved residual (ImagePoint.LastResidualU/V, written back by the solver
// between iterations), derives the median-relative threshold of spec.md
// §4.I, writes IsOutlier back onto every observation, and returns the
// sorted outlier list.
//
//	threshold = max(k*median, 50px) if median <  20px
//	threshold = min(k*median, 80px) if median >= 20px
func Detect(proj scene.Project, k float64) Result {
	all := proj.ImagePoints()
	if len(all) == 0 {
		return Result{}
	}

	errs := make([]float64, len(all))
	for i, ip := range all {
		errs[i] = math.Hypot(ip.LastResidualU, ip.LastResidualV)
	}
	sorted := append([]float64(nil), errs...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.LinInterp, sorted, nil)

	var threshold float64
	if median < 20 {
		threshold = math.Max(k*median, 50)
	} else {
		threshold = math.Min(k*median, 80)
	}

	var flagged []Flagged
	for i, ip := range all {
		isOutlier := errs[i] > threshold
		proj.SetIsOutlier(ip.WorldPointID, ip.ViewpointID, isOutlier)
		if isOutlier {
			flagged = append(flagged, Flagged{WorldPointID: ip.WorldPointID, ViewpointID: ip.ViewpointID, Error: errs[i]})
		}
	}
	sort.Slice(flagged, func(a, b int) bool { return flagged[a].Error > flagged[b].Error })

	return Result{Median: median, Threshold: threshold, Outliers: flagged}
}

// CameraOutlierFraction returns the fraction of viewpointID's observations
// currently flagged IsOutlier, and the total observation count.
func CameraOutlierFraction(lookup *scene.Lookup, viewpointID string) (fraction float64, total int) {
	obs := lookup.ImagePointsForCamera(viewpointID)
	if len(obs) == 0 {
		return 0, 0
	}
	n := 0
	for _, ip := range obs {
		if ip.IsOutlier {
			n++
		}
	}
	return float64(n) / float64(len(obs)), len(obs)
}

// FullyOutlierCameras returns, in sorted order, every camera with at least
// one observation where all of them are flagged IsOutlier — the condition
// spec.md §4.I's cascade policy checks before excluding a "late PnP"
// camera and re-solving once.
func FullyOutlierCameras(proj scene.Project) []string {
	lookup := scene.BuildLookup(proj)
	var out []string
	for _, v := range proj.Viewpoints() {
		frac, total := CameraOutlierFraction(lookup, v.ID)
		if total > 0 && frac >= 1.0 {
			out = append(out, v.ID)
		}
	}
	sort.Strings(out)
	return out
}
