// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import (
	"math"

	"github.com/cpmech/bundleadj/geom"
)

// pointVarLogical concatenates the 3 axis slots of every point id, in
// order, into one logical-slot array for a multi-point constraint.
func pointVarLogical(l *Layout, ids ...string) []int {
	out := make([]int, 0, 3*len(ids))
	for _, id := range ids {
		idx := l.WorldPointIdx(id)
		out = append(out, idx[0], idx[1], idx[2])
	}
	return out
}

// LineLengthProvider penalises a line's length deviating from its target,
// scaled by 1/targetLength (spec.md §4.C "Line length").
type LineLengthProvider struct {
	l          *Layout
	a, b       string
	targetLen  float64
	idx        indexSet
}

func NewLineLengthProvider(l *Layout, pointA, pointB string, targetLen float64) *LineLengthProvider {
	return &LineLengthProvider{l: l, a: pointA, b: pointB, targetLen: targetLen, idx: newIndexSet(pointVarLogical(l, pointA, pointB))}
}

func (p *LineLengthProvider) VarIndices() []int { return p.idx.free }
func (p *LineLengthProvider) NumResiduals() int { return 1 }

func (p *LineLengthProvider) vec(x []float64) geom.Vec3 {
	a := PointPosition(p.l, x, p.a)
	b := PointPosition(p.l, x, p.b)
	return b.Sub(a)
}

func (p *LineLengthProvider) Residuals(x []float64, out []float64) {
	d := p.vec(x)
	scale := 1 / p.targetLen
	out[0] = scale * (d.Norm() - p.targetLen)
}

func (p *LineLengthProvider) Gradients(x []float64, out [][]float64) {
	d := p.vec(x)
	n := d.Norm()
	scale := 1 / p.targetLen
	if n == 0 {
		return
	}
	unit := d.Scale(1 / n)
	addRowVec(p.idx, out[0], 0, unit.Scale(-scale))
	addRowVec(p.idx, out[0], 3, unit.Scale(scale))
}

// LineDirectionProvider constrains a line to a world axis (2 residuals,
// the perpendicular components) or a coordinate plane (1 residual, the
// out-of-plane component) (spec.md §4.C "Line direction").
type LineDirectionProvider struct {
	l         *Layout
	a, b      string
	axes      []int // which components of (b-a) must be zero
	idx       indexSet
}

func NewLineDirectionProvider(l *Layout, pointA, pointB string, dir LineDirectionKind) *LineDirectionProvider {
	return &LineDirectionProvider{
		l: l, a: pointA, b: pointB, axes: dir.zeroAxes(),
		idx: newIndexSet(pointVarLogical(l, pointA, pointB)),
	}
}

// LineDirectionKind mirrors scene.LineDirection without importing scene,
// since bundle must not depend on entity types beyond what Project exposes
// through IDs and values (spec.md §9 "Arena + indices for entities").
type LineDirectionKind int

const (
	DirAxisX LineDirectionKind = iota
	DirAxisY
	DirAxisZ
	DirPlaneXY
	DirPlaneXZ
	DirPlaneYZ
)

func (k LineDirectionKind) zeroAxes() []int {
	switch k {
	case DirAxisX:
		return []int{1, 2}
	case DirAxisY:
		return []int{0, 2}
	case DirAxisZ:
		return []int{0, 1}
	case DirPlaneXY:
		return []int{2}
	case DirPlaneXZ:
		return []int{1}
	case DirPlaneYZ:
		return []int{0}
	}
	return nil
}

func (p *LineDirectionProvider) VarIndices() []int { return p.idx.free }
func (p *LineDirectionProvider) NumResiduals() int { return len(p.axes) }

func (p *LineDirectionProvider) Residuals(x []float64, out []float64) {
	a := PointPosition(p.l, x, p.a)
	b := PointPosition(p.l, x, p.b)
	d := [3]float64{b.X - a.X, b.Y - a.Y, b.Z - a.Z}
	for r, axis := range p.axes {
		out[r] = d[axis]
	}
}

func (p *LineDirectionProvider) Gradients(x []float64, out [][]float64) {
	for r, axis := range p.axes {
		p.idx.add(out[r], axis, -1)
		p.idx.add(out[r], 3+axis, 1)
	}
}

// crossTripleResidual computes (p1-p0)x(p2-p0)/divisor and its Jacobians
// with respect to p0,p1,p2, shared by CollinearProvider and
// CoincidentProvider (spec.md §4.C "Collinear"/"Coincident point").
func crossTripleResidual(p0, p1, p2 geom.Vec3, divisor float64) (cross geom.Vec3, dP0, dP1, dP2 mat3) {
	u := p1.Sub(p0)
	v := p2.Sub(p0)
	cross = u.Cross(v)
	su, sv := skew(u), skew(v)
	dP0 = sv.sub(su).scale(1 / divisor)
	dP1 = sv.scale(-1 / divisor)
	dP2 = su.scale(1 / divisor)
	cross = cross.Scale(1 / divisor)
	return
}

// CollinearProvider forces 3 points onto one line (spec.md §4.C
// "Collinear"): 3 residuals, the components of (p1-p0)x(p2-p0).
type CollinearProvider struct {
	l              *Layout
	p0, p1, p2     string
	idx            indexSet
}

func NewCollinearProvider(l *Layout, p0, p1, p2 string) *CollinearProvider {
	return &CollinearProvider{l: l, p0: p0, p1: p1, p2: p2, idx: newIndexSet(pointVarLogical(l, p0, p1, p2))}
}

func (p *CollinearProvider) VarIndices() []int { return p.idx.free }
func (p *CollinearProvider) NumResiduals() int { return 3 }

func (p *CollinearProvider) Residuals(x []float64, out []float64) {
	a := PointPosition(p.l, x, p.p0)
	b := PointPosition(p.l, x, p.p1)
	c := PointPosition(p.l, x, p.p2)
	cross, _, _, _ := crossTripleResidual(a, b, c, 1)
	out[0], out[1], out[2] = cross.X, cross.Y, cross.Z
}

func (p *CollinearProvider) Gradients(x []float64, out [][]float64) {
	a := PointPosition(p.l, x, p.p0)
	b := PointPosition(p.l, x, p.p1)
	c := PointPosition(p.l, x, p.p2)
	_, dA, dB, dC := crossTripleResidual(a, b, c, 1)
	addMat3Rows(p.idx, out, 0, dA)
	addMat3Rows(p.idx, out, 3, dB)
	addMat3Rows(p.idx, out, 6, dC)
}

// CoincidentProvider forces point P onto the line AB (spec.md §4.C
// "Coincident point"): 3 residuals, (P-A)x(B-A)/||B-A||.
type CoincidentProvider struct {
	l            *Layout
	point, a, b  string
	idx          indexSet
}

func NewCoincidentProvider(l *Layout, pointP, pointA, pointB string) *CoincidentProvider {
	return &CoincidentProvider{l: l, point: pointP, a: pointA, b: pointB, idx: newIndexSet(pointVarLogical(l, pointP, pointA, pointB))}
}

func (p *CoincidentProvider) VarIndices() []int { return p.idx.free }
func (p *CoincidentProvider) NumResiduals() int { return 3 }

func (p *CoincidentProvider) scale(x []float64) float64 {
	a := PointPosition(p.l, x, p.a)
	b := PointPosition(p.l, x, p.b)
	s := b.Sub(a).Norm()
	if s == 0 {
		return 1
	}
	return s
}

func (p *CoincidentProvider) Residuals(x []float64, out []float64) {
	pp := PointPosition(p.l, x, p.point)
	a := PointPosition(p.l, x, p.a)
	b := PointPosition(p.l, x, p.b)
	cross, _, _, _ := crossTripleResidual(a, pp, b, p.scale(x))
	out[0], out[1], out[2] = cross.X, cross.Y, cross.Z
}

func (p *CoincidentProvider) Gradients(x []float64, out [][]float64) {
	pp := PointPosition(p.l, x, p.point)
	a := PointPosition(p.l, x, p.a)
	b := PointPosition(p.l, x, p.b)
	r, dA, dP, dB := crossTripleResidual(a, pp, b, p.scale(x))
	// the divisor s = ||B-A|| depends on A and B too: d(r)/dB += -r*(B-A)^T/s^2,
	// and the opposite for A.
	e := b.Sub(a)
	if s2 := e.Dot(e); s2 > 0 {
		rv, ev := [3]float64{r.X, r.Y, r.Z}, [3]float64{e.X, e.Y, e.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				m := rv[i] * ev[j] / s2
				dA[i][j] += m
				dB[i][j] -= m
			}
		}
	}
	addMat3Rows(p.idx, out, 3, dA) // a is logical point 1 (offset 3)
	addMat3Rows(p.idx, out, 0, dP) // point is logical point 0 (offset 0)
	addMat3Rows(p.idx, out, 6, dB) // b is logical point 2 (offset 6)
}

// CoplanarProvider forces N>=4 points onto a plane using a rotating base
// triangle (spec.md §4.C "Coplanar"): N-3 residuals, each the signed
// distance of point i+3 from the plane of (p_i,p_i+1,p_i+2).
type CoplanarProvider struct {
	l      *Layout
	points []string
	idx    indexSet
}

func NewCoplanarProvider(l *Layout, points []string) *CoplanarProvider {
	return &CoplanarProvider{l: l, points: points, idx: newIndexSet(pointVarLogical(l, points...))}
}

func (p *CoplanarProvider) VarIndices() []int { return p.idx.free }
func (p *CoplanarProvider) NumResiduals() int { return len(p.points) - 3 }

func (p *CoplanarProvider) positions(x []float64) []geom.Vec3 {
	out := make([]geom.Vec3, len(p.points))
	for i, id := range p.points {
		out[i] = PointPosition(p.l, x, id)
	}
	return out
}

func (p *CoplanarProvider) Residuals(x []float64, out []float64) {
	pts := p.positions(x)
	for i := 0; i+3 < len(pts); i++ {
		a, b, c, d := pts[i], pts[i+1], pts[i+2], pts[i+3]
		u, v := b.Sub(a), c.Sub(a)
		raw := u.Cross(v)
		n := raw.Norm()
		if n == 0 {
			out[i] = 0
			continue
		}
		normal := raw.Scale(1 / n)
		out[i] = d.Sub(a).Dot(normal)
	}
}

func (p *CoplanarProvider) Gradients(x []float64, out [][]float64) {
	pts := p.positions(x)
	for i := 0; i+3 < len(pts); i++ {
		a, b, c, d := pts[i], pts[i+1], pts[i+2], pts[i+3]
		u, v := b.Sub(a), c.Sub(a)
		raw := u.Cross(v)
		n := raw.Norm()
		if n == 0 {
			continue
		}
		normal := raw.Scale(1 / n)
		w := d.Sub(a)
		cos := w.Dot(normal)
		r := geom.Vec3{
			X: (w.X - cos*normal.X) / n,
			Y: (w.Y - cos*normal.Y) / n,
			Z: (w.Z - cos*normal.Z) / n,
		}
		su, sv := skew(u), skew(v)
		gradA := rowMatMul(r, sv.sub(su)).Sub(normal)
		gradB := rowMatMul(r, sv.scale(-1))
		gradC := rowMatMul(r, su)
		gradD := normal
		base := 3 * i
		addRowVec(p.idx, out[i], base+0, gradA)
		addRowVec(p.idx, out[i], base+3, gradB)
		addRowVec(p.idx, out[i], base+6, gradC)
		addRowVec(p.idx, out[i], base+9, gradD)
	}
}

// angleAndGrad returns the angle at vertex V between rays to A and B
// (via atan2(|cross|,dot), per spec.md §4.C), plus its gradient with
// respect to V, A, B.
func angleAndGrad(v, a, b geom.Vec3) (angle float64, dV, dA, dB geom.Vec3) {
	u := a.Sub(v)
	w := b.Sub(v)
	cross := u.Cross(w)
	s := cross.Norm()
	c := u.Dot(w)
	angle = math.Atan2(s, c)
	denom := s*s + c*c
	if denom == 0 {
		return angle, geom.Vec3{}, geom.Vec3{}, geom.Vec3{}
	}
	dAngleDs := c / denom
	dAngleDc := -s / denom

	var dsDu, dsDw geom.Vec3
	if s > 1e-12 {
		nHat := cross.Scale(1 / s)
		dsDu = rowMatMul(nHat, skew(w)).Scale(-1)
		dsDw = rowMatMul(nHat, skew(u))
	}
	dcDu, dcDw := w, u

	dAngleDu := dsDu.Scale(dAngleDs).Add(dcDu.Scale(dAngleDc))
	dAngleDw := dsDw.Scale(dAngleDs).Add(dcDw.Scale(dAngleDc))

	dA = dAngleDu
	dB = dAngleDw
	dV = dAngleDu.Add(dAngleDw).Scale(-1)
	return
}

// AngleProvider constrains the angle at a vertex between two rays to a
// target value (spec.md §4.C "Angle").
type AngleProvider struct {
	l                   *Layout
	vertex, rayA, rayB  string
	target              float64
	idx                 indexSet
}

func NewAngleProvider(l *Layout, vertex, rayA, rayB string, targetRadians float64) *AngleProvider {
	return &AngleProvider{l: l, vertex: vertex, rayA: rayA, rayB: rayB, target: targetRadians, idx: newIndexSet(pointVarLogical(l, vertex, rayA, rayB))}
}

func (p *AngleProvider) VarIndices() []int { return p.idx.free }
func (p *AngleProvider) NumResiduals() int { return 1 }

func (p *AngleProvider) angle(x []float64) (float64, geom.Vec3, geom.Vec3, geom.Vec3) {
	v := PointPosition(p.l, x, p.vertex)
	a := PointPosition(p.l, x, p.rayA)
	b := PointPosition(p.l, x, p.rayB)
	return angleAndGrad(v, a, b)
}

func (p *AngleProvider) Residuals(x []float64, out []float64) {
	angle, _, _, _ := p.angle(x)
	out[0] = angle - p.target
}

func (p *AngleProvider) Gradients(x []float64, out [][]float64) {
	_, dV, dA, dB := p.angle(x)
	addRowVec(p.idx, out[0], 0, dV)
	addRowVec(p.idx, out[0], 3, dA)
	addRowVec(p.idx, out[0], 6, dB)
}

// EqualAnglesProvider constrains two angles (at independent vertex/ray
// triples) to be equal (spec.md §4.C "EqualAngles").
type EqualAnglesProvider struct {
	l                     *Layout
	v1, a1, b1            string
	v2, a2, b2            string
	idx                   indexSet
}

func NewEqualAnglesProvider(l *Layout, v1, a1, b1, v2, a2, b2 string) *EqualAnglesProvider {
	return &EqualAnglesProvider{
		l: l, v1: v1, a1: a1, b1: b1, v2: v2, a2: a2, b2: b2,
		idx: newIndexSet(pointVarLogical(l, v1, a1, b1, v2, a2, b2)),
	}
}

func (p *EqualAnglesProvider) VarIndices() []int { return p.idx.free }
func (p *EqualAnglesProvider) NumResiduals() int { return 1 }

func (p *EqualAnglesProvider) angles(x []float64) (ang1, ang2 float64, g [6]geom.Vec3) {
	v1 := PointPosition(p.l, x, p.v1)
	a1 := PointPosition(p.l, x, p.a1)
	b1 := PointPosition(p.l, x, p.b1)
	v2 := PointPosition(p.l, x, p.v2)
	a2 := PointPosition(p.l, x, p.a2)
	b2 := PointPosition(p.l, x, p.b2)
	var dV1, dA1, dB1, dV2, dA2, dB2 geom.Vec3
	ang1, dV1, dA1, dB1 = angleAndGrad(v1, a1, b1)
	ang2, dV2, dA2, dB2 = angleAndGrad(v2, a2, b2)
	g = [6]geom.Vec3{dV1, dA1, dB1, dV2, dA2, dB2}
	return
}

func (p *EqualAnglesProvider) Residuals(x []float64, out []float64) {
	ang1, ang2, _ := p.angles(x)
	out[0] = ang1 - ang2
}

func (p *EqualAnglesProvider) Gradients(x []float64, out [][]float64) {
	_, _, g := p.angles(x)
	for i, v := range g {
		sign := 1.0
		if i >= 3 {
			sign = -1.0
		}
		addRowVec(p.idx, out[0], 3*i, v.Scale(sign))
	}
}

// distAndGrad returns ||b-a|| and its gradient w.r.t a,b.
func distAndGrad(a, b geom.Vec3) (dist float64, dA, dB geom.Vec3) {
	d := b.Sub(a)
	dist = d.Norm()
	if dist == 0 {
		return 0, geom.Vec3{}, geom.Vec3{}
	}
	unit := d.Scale(1 / dist)
	return dist, unit.Scale(-1), unit
}

// EqualDistancesProvider constrains two point-pair distances to be equal
// (spec.md §4.C "EqualDistances").
type EqualDistancesProvider struct {
	l               *Layout
	a1, a2, b1, b2  string
	idx             indexSet
}

func NewEqualDistancesProvider(l *Layout, pairA1, pairA2, pairB1, pairB2 string) *EqualDistancesProvider {
	return &EqualDistancesProvider{
		l: l, a1: pairA1, a2: pairA2, b1: pairB1, b2: pairB2,
		idx: newIndexSet(pointVarLogical(l, pairA1, pairA2, pairB1, pairB2)),
	}
}

func (p *EqualDistancesProvider) VarIndices() []int { return p.idx.free }
func (p *EqualDistancesProvider) NumResiduals() int { return 1 }

func (p *EqualDistancesProvider) Residuals(x []float64, out []float64) {
	a1 := PointPosition(p.l, x, p.a1)
	a2 := PointPosition(p.l, x, p.a2)
	b1 := PointPosition(p.l, x, p.b1)
	b2 := PointPosition(p.l, x, p.b2)
	distA, _, _ := distAndGrad(a1, a2)
	distB, _, _ := distAndGrad(b1, b2)
	out[0] = distA - distB
}

func (p *EqualDistancesProvider) Gradients(x []float64, out [][]float64) {
	a1 := PointPosition(p.l, x, p.a1)
	a2 := PointPosition(p.l, x, p.a2)
	b1 := PointPosition(p.l, x, p.b1)
	b2 := PointPosition(p.l, x, p.b2)
	_, dA1, dA2 := distAndGrad(a1, a2)
	_, dB1, dB2 := distAndGrad(b1, b2)
	addRowVec(p.idx, out[0], 0, dA1)
	addRowVec(p.idx, out[0], 3, dA2)
	addRowVec(p.idx, out[0], 6, dB1.Scale(-1))
	addRowVec(p.idx, out[0], 9, dB2.Scale(-1))
}
