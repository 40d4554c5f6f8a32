// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import "github.com/cpmech/bundleadj/geom"

// VanishingLineProvider softly anchors a camera's rotation (and, jointly
// with other instances, its focal length) to an annotated vanishing-line
// direction (spec.md §4.C "Vanishing line"): weight·(1−cos∠(predicted,
// observed)), predicted = quatRotate(q, e_axis). The observed direction is
// backprojected once, at construction, from the line's midpoint pixel via
// geom.Unproject — a line-slope-based vanishing point needs a second line
// of the same axis to intersect with (component F does that for camera
// initialization); here a single annotation's midpoint is a adequate proxy
// for anchoring purposes.
type VanishingLineProvider struct {
	l           *Layout
	id          string
	axis        int
	weight      float64
	observedDir geom.Vec3 // pre-normalized
	quatIdx     [4]int
}

func NewVanishingLineProvider(l *Layout, viewpointID string, obs geom.Vec3, axis int, weight float64) *VanishingLineProvider {
	return &VanishingLineProvider{
		l: l, id: viewpointID, axis: axis, weight: weight,
		observedDir: obs.Unit(),
		quatIdx:     l.CameraIdx(viewpointID).Quat,
	}
}

// NewVanishingLineProviderFromPixels lifts a raw image-space annotation
// (two pixel points) through the camera's current intrinsics.
func NewVanishingLineProviderFromPixels(l *Layout, viewpointID string, in geom.Intrinsics, p1, p2 [2]float64, axis int, weight float64) *VanishingLineProvider {
	midU := (p1[0] + p2[0]) / 2
	midV := (p1[1] + p2[1]) / 2
	dir := geom.Unproject(in, midU, midV)
	return NewVanishingLineProvider(l, viewpointID, dir, axis, weight)
}

func (p *VanishingLineProvider) VarIndices() []int { return p.quatIdx[:] }
func (p *VanishingLineProvider) NumResiduals() int { return 1 }

func (p *VanishingLineProvider) predicted(x []float64) (geom.Vec3, geom.Quat) {
	q := CameraQuat(p.l, x, p.id)
	return q.Rotate(geom.AxisUnit(p.axis)), q
}

func (p *VanishingLineProvider) Residuals(x []float64, out []float64) {
	raw, _ := p.predicted(x)
	cos := raw.Unit().Dot(p.observedDir)
	out[0] = p.weight * (1 - cos)
}

func (p *VanishingLineProvider) Gradients(x []float64, out [][]float64) {
	raw, q := p.predicted(x)
	n := raw.Norm()
	if n == 0 {
		return
	}
	uhat := raw.Scale(1 / n)
	cos := uhat.Dot(p.observedDir)
	// d(cos)/d(raw_k) = (observed_k - cos*uhat_k) / n
	dCosDraw := geom.Vec3{
		X: (p.observedDir.X - cos*uhat.X) / n,
		Y: (p.observedDir.Y - cos*uhat.Y) / n,
		Z: (p.observedDir.Z - cos*uhat.Z) / n,
	}
	dRawDq := q.RotateJacobian(geom.AxisUnit(p.axis))
	for col := 0; col < 4; col++ {
		dCosDq := dCosDraw.X*dRawDq[0][col] + dCosDraw.Y*dRawDq[1][col] + dCosDraw.Z*dRawDq[2][col]
		out[0][col] = -p.weight * dCosDq
	}
}
