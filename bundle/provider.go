// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import "github.com/cpmech/bundleadj/geom"

// Provider is a pure function of the variable vector, a row-block of the
// Jacobian without ever materialising the full matrix. Every concrete
// provider type is built once, at construction time, from entity IDs and
// captured constants; none of them reference scene entities afterward
// (spec.md §4.C/§5 "Memory").
type Provider interface {
	VarIndices() []int
	NumResiduals() int
	Residuals(x []float64, out []float64)
	Gradients(x []float64, out [][]float64) // out[r] has len(VarIndices())
}

// indexSet maps a fixed number of "logical" slots (e.g. point x,y,z) onto
// the subset that are free variables, dropping locked (-1) slots. Every
// provider below uses it instead of hand-rolling the same filter, the way
// the teacher's fem/element.go elements share a single Ipoints-to-equation
// lookup instead of each re-deriving it.
type indexSet struct {
	free []int // free[k] is the k-th free variable's global index
	slot []int // slot[logical] = k, or -1 if that logical slot is locked
}

func newIndexSet(logical []int) indexSet {
	s := indexSet{slot: make([]int, len(logical))}
	for i, v := range logical {
		if v < 0 {
			s.slot[i] = -1
			continue
		}
		s.slot[i] = len(s.free)
		s.free = append(s.free, v)
	}
	return s
}

// add accumulates deriv into out[r] at the free slot corresponding to
// logical, a no-op when that slot is locked.
func (s indexSet) add(out []float64, logical int, deriv float64) {
	if k := s.slot[logical]; k >= 0 {
		out[k] += deriv
	}
}

// QuatNormProvider softly re-normalizes a camera's quaternion: ‖q‖²−1,
// gradient 2·q (spec.md §4.C "Quaternion normalization"). Only constructed
// for cameras whose pose is a free variable.
type QuatNormProvider struct {
	l    *Layout
	id   string
	vars [4]int
}

func NewQuatNormProvider(l *Layout, viewpointID string) *QuatNormProvider {
	return &QuatNormProvider{l: l, id: viewpointID, vars: l.CameraIdx(viewpointID).Quat}
}

func (p *QuatNormProvider) VarIndices() []int  { return p.vars[:] }
func (p *QuatNormProvider) NumResiduals() int  { return 1 }

func (p *QuatNormProvider) Residuals(x []float64, out []float64) {
	q := CameraQuat(p.l, x, p.id)
	out[0] = q.NormSq() - 1
}

func (p *QuatNormProvider) Gradients(x []float64, out [][]float64) {
	q := CameraQuat(p.l, x, p.id)
	out[0][0], out[0][1], out[0][2], out[0][3] = 2*q.W, 2*q.X, 2*q.Y, 2*q.Z
}

// FixedPointProvider pins a world point's free axes toward a target:
// coord−target per free axis, unit gradient (spec.md §4.C "Fixed point").
// Axes already locked at construction of the point are never emitted.
type FixedPointProvider struct {
	l      *Layout
	id     string
	target geom.Vec3
	idx    indexSet
}

func NewFixedPointProvider(l *Layout, pointID string, target geom.Vec3) *FixedPointProvider {
	logical := l.WorldPointIdx(pointID)
	return &FixedPointProvider{l: l, id: pointID, target: target, idx: newIndexSet(logical[:])}
}

func (p *FixedPointProvider) VarIndices() []int { return p.idx.free }
func (p *FixedPointProvider) NumResiduals() int { return len(p.idx.free) }

func (p *FixedPointProvider) Residuals(x []float64, out []float64) {
	pos := PointPosition(p.l, x, p.id)
	targets := [3]float64{p.target.X, p.target.Y, p.target.Z}
	vals := [3]float64{pos.X, pos.Y, pos.Z}
	r := 0
	for axis := 0; axis < 3; axis++ {
		if p.idx.slot[axis] < 0 {
			continue
		}
		out[r] = vals[axis] - targets[axis]
		r++
	}
}

func (p *FixedPointProvider) Gradients(x []float64, out [][]float64) {
	r := 0
	for axis := 0; axis < 3; axis++ {
		if p.idx.slot[axis] < 0 {
			continue
		}
		out[r][r] = 1
		r++
	}
}

// FocalRegularizationProvider penalises a free focal length drifting
// outside [minF, maxF] with a one-sided penalty each direction (spec.md
// §4.C "Focal-length regularization").
type FocalRegularizationProvider struct {
	l                  *Layout
	id                 string
	minF, maxF, maxDim float64
	weight             float64
	varIdx             int
}

func NewFocalRegularizationProvider(l *Layout, viewpointID string, minF, maxF, maxDim float64) *FocalRegularizationProvider {
	return &FocalRegularizationProvider{
		l: l, id: viewpointID, minF: minF, maxF: maxF, maxDim: maxDim, weight: 500,
		varIdx: l.CameraIdx(viewpointID).Focal,
	}
}

func (p *FocalRegularizationProvider) VarIndices() []int { return []int{p.varIdx} }
func (p *FocalRegularizationProvider) NumResiduals() int { return 2 }

func (p *FocalRegularizationProvider) Residuals(x []float64, out []float64) {
	f := x[p.varIdx]
	out[0] = p.weight * posPart((p.minF-f)/p.maxDim)
	out[1] = p.weight * posPart((f-p.maxF)/p.maxDim)
}

func (p *FocalRegularizationProvider) Gradients(x []float64, out [][]float64) {
	f := x[p.varIdx]
	if p.minF-f > 0 {
		out[0][0] = -p.weight / p.maxDim
	} else {
		out[0][0] = 0
	}
	if f-p.maxF > 0 {
		out[1][0] = p.weight / p.maxDim
	} else {
		out[1][0] = 0
	}
}

func posPart(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// PointRegularizationProvider pulls a weakly-constrained free world point
// back toward its initial estimate, per free axis (spec.md §4.C
// "Point-position regularization"). Only constructed when the point has a
// valid initial OptimizedXYZ to regularize toward.
type PointRegularizationProvider struct {
	l       *Layout
	id      string
	initial geom.Vec3
	weight  float64
	idx     indexSet
}

func NewPointRegularizationProvider(l *Layout, pointID string, initial geom.Vec3, weight float64) *PointRegularizationProvider {
	logical := l.WorldPointIdx(pointID)
	return &PointRegularizationProvider{l: l, id: pointID, initial: initial, weight: weight, idx: newIndexSet(logical[:])}
}

func (p *PointRegularizationProvider) VarIndices() []int { return p.idx.free }
func (p *PointRegularizationProvider) NumResiduals() int { return len(p.idx.free) }

func (p *PointRegularizationProvider) Residuals(x []float64, out []float64) {
	pos := PointPosition(p.l, x, p.id)
	init := [3]float64{p.initial.X, p.initial.Y, p.initial.Z}
	vals := [3]float64{pos.X, pos.Y, pos.Z}
	r := 0
	for axis := 0; axis < 3; axis++ {
		if p.idx.slot[axis] < 0 {
			continue
		}
		out[r] = p.weight * (vals[axis] - init[axis])
		r++
	}
}

func (p *PointRegularizationProvider) Gradients(x []float64, out [][]float64) {
	r := 0
	for axis := 0; axis < 3; axis++ {
		if p.idx.slot[axis] < 0 {
			continue
		}
		out[r][r] = p.weight
		r++
	}
}

// YSignProvider breaks the reflected-minimum attractor by penalising a
// camera's height crossing zero relative to its initial sign (spec.md
// §4.C "Y-sign preservation"). Disabled by default; the orchestrator only
// constructs this when the camera's initial |y| exceeds a threshold.
type YSignProvider struct {
	l          *Layout
	id         string
	initialSgn float64
	weight     float64
	varIdx     int
}

func NewYSignProvider(l *Layout, viewpointID string, initialY, weight float64) *YSignProvider {
	sgn := 1.0
	if initialY < 0 {
		sgn = -1.0
	}
	return &YSignProvider{l: l, id: viewpointID, initialSgn: sgn, weight: weight, varIdx: l.CameraIdx(viewpointID).Pos[1]}
}

func (p *YSignProvider) VarIndices() []int { return []int{p.varIdx} }
func (p *YSignProvider) NumResiduals() int { return 1 }

func (p *YSignProvider) Residuals(x []float64, out []float64) {
	y := x[p.varIdx]
	if y*p.initialSgn >= 0 {
		out[0] = 0
		return
	}
	out[0] = p.weight * abs(y)
}

func (p *YSignProvider) Gradients(x []float64, out [][]float64) {
	y := x[p.varIdx]
	if y*p.initialSgn >= 0 {
		out[0][0] = 0
		return
	}
	if y >= 0 {
		out[0][0] = p.weight
	} else {
		out[0][0] = -p.weight
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
