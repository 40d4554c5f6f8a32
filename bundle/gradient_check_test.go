// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import (
	"math"
	"testing"

	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

// checkGradient central-differences every residual row of p at x and
// compares against p.Gradients, enforcing spec.md §4.C's correctness
// contract (1% relative error over smooth regions).
func checkGradient(t *testing.T, name string, p Provider, x []float64) {
	t.Helper()
	n := p.NumResiduals()
	vars := p.VarIndices()
	got := make([][]float64, n)
	for r := range got {
		got[r] = make([]float64, len(vars))
	}
	p.Gradients(x, got)

	r0 := make([]float64, n)
	p.Residuals(x, r0)

	const h = 1e-6
	for k, gi := range vars {
		xp := append([]float64(nil), x...)
		xm := append([]float64(nil), x...)
		xp[gi] += h
		xm[gi] -= h
		rp := make([]float64, n)
		rm := make([]float64, n)
		p.Residuals(xp, rp)
		p.Residuals(xm, rm)
		for row := 0; row < n; row++ {
			numeric := (rp[row] - rm[row]) / (2 * h)
			analytic := got[row][k]
			diff := math.Abs(numeric - analytic)
			scale := math.Max(1, math.Max(math.Abs(numeric), math.Abs(analytic)))
			if diff/scale > 1e-2 {
				t.Errorf("%s: row %d var %d (global idx %d): analytic=%g numeric=%g", name, row, k, gi, analytic, numeric)
			}
		}
	}
}

func newTestProject() (*scene.MemProject, *Layout) {
	proj := scene.NewMemProject()
	proj.Points = []*scene.WorldPoint{
		{ID: "p0", OptimizedXYZ: &geom.Vec3{X: 0, Y: 0, Z: 0}},
		{ID: "p1", OptimizedXYZ: &geom.Vec3{X: 3, Y: 0, Z: 0}},
		{ID: "p2", OptimizedXYZ: &geom.Vec3{X: 0, Y: 2, Z: 0}},
		{ID: "p3", OptimizedXYZ: &geom.Vec3{X: 1, Y: 1, Z: 1}},
		{ID: "p4", OptimizedXYZ: &geom.Vec3{X: -2, Y: 1, Z: 3}},
		{ID: "p5", OptimizedXYZ: &geom.Vec3{X: 2, Y: -1, Z: 2}},
	}
	proj.Views = []*scene.Viewpoint{
		{
			ID:     "cam0",
			Width:  800,
			Height: 600,
			Intrinsics: geom.Intrinsics{
				FocalLength: 700, AspectRatio: 1, Cx: 400, Cy: 300,
				Radial: [3]float64{0.01, 0, 0},
			},
			Pose: scene.Pose{
				Position: geom.Vec3{X: 0.3, Y: -0.2, Z: -5},
				Quat:     geom.Quat{W: 0.98, X: 0.1, Y: 0.05, Z: -0.02},
			},
		},
	}
	l := NewLayout(proj, IntrinsicsFree)
	return proj, l
}

func TestQuatNormProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewQuatNormProvider(l, "cam0")
	checkGradient(t, "QuatNorm", p, l.X)
}

func TestReprojectionProviderGradient(t *testing.T) {
	_, l := newTestProject()
	in := geom.Intrinsics{FocalLength: 700, AspectRatio: 1, Cx: 400, Cy: 300, Radial: [3]float64{0.01, 0, 0}, Tangential: [2]float64{0.001, -0.002}}
	p := NewReprojectionProvider(l, "p3", "cam0", in, 420, 280)
	checkGradient(t, "Reprojection", p, l.X)
}

func TestFixedPointProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewFixedPointProvider(l, "p0", geom.Vec3{X: 0.1, Y: 0.2, Z: 0.3})
	checkGradient(t, "FixedPoint", p, l.X)
}

func TestFocalRegularizationProviderGradient(t *testing.T) {
	_, l := newTestProject()
	minF, maxF, maxDim := geom.FocalBounds(800, 600)
	// Push focal length above maxF so the upper penalty branch has nonzero
	// gradient throughout the central-difference stencil.
	l.X[l.CameraIdx("cam0").Focal] = maxF + 100
	p := NewFocalRegularizationProvider(l, "cam0", minF, maxF, maxDim)
	checkGradient(t, "FocalRegularization", p, l.X)
}

func TestPointRegularizationProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewPointRegularizationProvider(l, "p3", geom.Vec3{X: 1, Y: 1, Z: 1}, 2.5)
	checkGradient(t, "PointRegularization", p, l.X)
}

func TestYSignProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewYSignProvider(l, "cam0", -0.2, 50)
	l.X[l.CameraIdx("cam0").Pos[1]] = 0.4 // flip sign relative to initial
	checkGradient(t, "YSign", p, l.X)
}

func TestVanishingLineProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewVanishingLineProvider(l, "cam0", geom.Vec3{X: 0.1, Y: 0.05, Z: 0.99}, 2, 10)
	checkGradient(t, "VanishingLine", p, l.X)
}

func TestLineLengthProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewLineLengthProvider(l, "p0", "p1", 3.0)
	checkGradient(t, "LineLength", p, l.X)
}

func TestLineDirectionProviderGradient(t *testing.T) {
	_, l := newTestProject()
	for _, kind := range []LineDirectionKind{DirAxisX, DirAxisY, DirAxisZ, DirPlaneXY, DirPlaneXZ, DirPlaneYZ} {
		p := NewLineDirectionProvider(l, "p0", "p1", kind)
		checkGradient(t, "LineDirection", p, l.X)
	}
}

func TestCollinearProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewCollinearProvider(l, "p0", "p3", "p4")
	checkGradient(t, "Collinear", p, l.X)
}

func TestCoincidentProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewCoincidentProvider(l, "p3", "p0", "p4")
	checkGradient(t, "Coincident", p, l.X)
}

func TestCoplanarProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewCoplanarProvider(l, []string{"p0", "p1", "p2", "p3", "p4", "p5"})
	checkGradient(t, "Coplanar", p, l.X)
}

func TestAngleProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewAngleProvider(l, "p0", "p1", "p2", math.Pi/3)
	checkGradient(t, "Angle", p, l.X)
}

func TestEqualAnglesProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewEqualAnglesProvider(l, "p0", "p1", "p2", "p3", "p4", "p5")
	checkGradient(t, "EqualAngles", p, l.X)
}

func TestEqualDistancesProviderGradient(t *testing.T) {
	_, l := newTestProject()
	p := NewEqualDistancesProvider(l, "p0", "p1", "p3", "p4")
	checkGradient(t, "EqualDistances", p, l.X)
}
