// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package outlier

import (
	"testing"

	"github.com/cpmech/bundleadj/scene"
)

func TestDetectFlagsFarOutliers(t *testing.T) {
	proj := scene.NewMemProject()
	proj.Views = []*scene.Viewpoint{{ID: "cam0"}}
	proj.Points = []*scene.WorldPoint{{ID: "p0"}, {ID: "p1"}, {ID: "p2"}, {ID: "p3"}}
	proj.Images = []*scene.ImagePoint{
		{WorldPointID: "p0", ViewpointID: "cam0", LastResidualU: 1, LastResidualV: 0},
		{WorldPointID: "p1", ViewpointID: "cam0", LastResidualU: 1.5, LastResidualV: 0},
		{WorldPointID: "p2", ViewpointID: "cam0", LastResidualU: 2, LastResidualV: 0},
		{WorldPointID: "p3", ViewpointID: "cam0", LastResidualU: 200, LastResidualV: 0},
	}

	result := Detect(proj, DefaultK)
	if len(result.Outliers) != 1 || result.Outliers[0].WorldPointID != "p3" {
		t.Fatalf("expected exactly p3 flagged as outlier, got %+v", result.Outliers)
	}
	for _, ip := range proj.Images {
		want := ip.WorldPointID == "p3"
		if ip.IsOutlier != want {
			t.Fatalf("IsOutlier for %s = %v, want %v", ip.WorldPointID, ip.IsOutlier, want)
		}
	}
}

func TestFullyOutlierCameras(t *testing.T) {
	proj := scene.NewMemProject()
	proj.Views = []*scene.Viewpoint{{ID: "cam0"}, {ID: "cam1"}}
	proj.Images = []*scene.ImagePoint{
		{WorldPointID: "p0", ViewpointID: "cam0", IsOutlier: true},
		{WorldPointID: "p1", ViewpointID: "cam0", IsOutlier: true},
		{WorldPointID: "p0", ViewpointID: "cam1", IsOutlier: true},
		{WorldPointID: "p1", ViewpointID: "cam1", IsOutlier: false},
	}

	got := FullyOutlierCameras(proj)
	if len(got) != 1 || got[0] != "cam0" {
		t.Fatalf("FullyOutlierCameras = %v, want [cam0]", got)
	}
}
