// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lm

import (
	"math"
	"testing"

	"github.com/cpmech/bundleadj/bundle"
	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

func TestRunConvergesOnFixedPointOnly(t *testing.T) {
	proj := scene.NewMemProject()
	proj.Points = []*scene.WorldPoint{
		{ID: "p0", OptimizedXYZ: &geom.Vec3{X: 0, Y: 0, Z: 0}},
	}
	l := bundle.NewLayout(proj, bundle.IntrinsicsFixed)
	target := geom.Vec3{X: 3, Y: -2, Z: 5}
	providers := []bundle.Provider{bundle.NewFixedPointProvider(l, "p0", target)}

	result, err := Run(providers, l.X, DefaultOptions())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !result.Converged {
		t.Fatalf("expected convergence, got %+v", result)
	}
	pos := bundle.PointPosition(l, l.X, "p0")
	if math.Abs(pos.X-target.X) > 1e-6 || math.Abs(pos.Y-target.Y) > 1e-6 || math.Abs(pos.Z-target.Z) > 1e-6 {
		t.Fatalf("final position = %+v, want %+v", pos, target)
	}
	if result.Residual > 1e-12 {
		t.Fatalf("final residual = %g, want ~0", result.Residual)
	}
}

func TestRunRespectsMaxIterations(t *testing.T) {
	proj := scene.NewMemProject()
	proj.Points = []*scene.WorldPoint{
		{ID: "p0", OptimizedXYZ: &geom.Vec3{X: 0, Y: 0, Z: 0}},
	}
	l := bundle.NewLayout(proj, bundle.IntrinsicsFixed)
	providers := []bundle.Provider{bundle.NewFixedPointProvider(l, "p0", geom.Vec3{X: 1, Y: 1, Z: 1})}

	opts := DefaultOptions()
	opts.MaxIterations = 1
	opts.Tolerance = 0 // never satisfy the early-stop criteria
	result, err := Run(providers, l.X, opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Converged {
		t.Fatalf("did not expect convergence within a single iteration and zero tolerance")
	}
	if result.Iterations != 1 {
		t.Fatalf("iterations = %d, want 1", result.Iterations)
	}
}
