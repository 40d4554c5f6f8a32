// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scene defines the entity types and the Project collaborator
// interface the solver (package bundle/pipeline) reads from and writes
// back to. Project file parsing, image I/O, and the interactive editor
// are external to this module (spec.md §1); scene only states the
// contract those collaborators must satisfy.
package scene

import "github.com/cpmech/bundleadj/geom"

// LineDirection constrains a Line to a world axis or coordinate plane.
type LineDirection int

const (
	DirFree LineDirection = iota
	DirX
	DirY
	DirZ
	DirXY
	DirXZ
	DirYZ
)

// WorldPoint is a reconstructed 3D point. EffectiveXYZ implements the
// locked ?? inferred ?? optimized precedence of spec.md §3.
type WorldPoint struct {
	ID           string
	LockedXYZ    [3]*float64
	InferredXYZ  [3]*float64
	OptimizedXYZ *geom.Vec3
}

// EffectiveXYZ returns the value to use for axis (0=x,1=y,2=z), or
// (0, false) if none of locked/inferred/optimized is set for that axis.
func (w *WorldPoint) EffectiveXYZ(axis int) (float64, bool) {
	if w.LockedXYZ[axis] != nil {
		return *w.LockedXYZ[axis], true
	}
	if w.InferredXYZ[axis] != nil {
		return *w.InferredXYZ[axis], true
	}
	if w.OptimizedXYZ != nil {
		return component(*w.OptimizedXYZ, axis), true
	}
	return 0, false
}

// FullyConstrained reports whether every axis has a locked or inferred
// value (spec.md §3: "all three of lockedXyz[i] ?? inferredXyz[i] present").
func (w *WorldPoint) FullyConstrained() bool {
	for axis := 0; axis < 3; axis++ {
		if w.LockedXYZ[axis] == nil && w.InferredXYZ[axis] == nil {
			return false
		}
	}
	return true
}

// EffectiveVec3 returns the full effective position if all three axes
// resolve to a value, else (zero, false).
func (w *WorldPoint) EffectiveVec3() (geom.Vec3, bool) {
	var v geom.Vec3
	for axis := 0; axis < 3; axis++ {
		val, ok := w.EffectiveXYZ(axis)
		if !ok {
			return geom.Vec3{}, false
		}
		setComponent(&v, axis, val)
	}
	return v, true
}

func component(v geom.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func setComponent(v *geom.Vec3, axis int, val float64) {
	switch axis {
	case 0:
		v.X = val
	case 1:
		v.Y = val
	default:
		v.Z = val
	}
}

// VanishingLineObs is a 2D line annotation tagged with the world axis its
// vanishing point corresponds to.
type VanishingLineObs struct {
	Axis       int // 0=x, 1=y, 2=z
	P1, P2     [2]float64
	Weight     float64
}

// Pose is a camera's position and orientation.
type Pose struct {
	Position geom.Vec3
	Quat     geom.Quat
}

// Viewpoint is a camera.
type Viewpoint struct {
	ID             string
	Width, Height  int
	Intrinsics     geom.Intrinsics
	Pose           Pose
	VanishingLines []VanishingLineObs
	IsPoseLocked   bool
	EnabledInSolve bool // set by the orchestrator once a camera is posed (locked or initialized); bundle.BuildProviders skips observations of any camera left false
	Initialized    bool
}

// ImagePoint is one 2D observation of a WorldPoint in a Viewpoint.
type ImagePoint struct {
	WorldPointID string
	ViewpointID  string
	ObservedU    float64
	ObservedV    float64
	IsOutlier    bool
	LastResidualU float64
	LastResidualV float64
}

// Line is a constraint-bearing segment between two world points.
type Line struct {
	ID           string
	P1, P2       string // world point ids
	TargetLength *float64
	Direction    LineDirection
}

// ConstraintKind tags the polymorphic Constraint variants of spec.md §3.
type ConstraintKind int

const (
	KindFixedPoint ConstraintKind = iota
	KindCoplanar
	KindCollinear
	KindCoincident
	KindAngle
	KindEqualDistances
	KindEqualAngles
)

// Constraint is a tagged union over the capability set spec.md describes;
// only the fields relevant to Kind are populated. Constraints never hold
// solver state — bundle.BuildProviders compiles each into a concrete
// Provider at construction time (spec.md §9's "sum types instead of
// inheritance").
type Constraint struct {
	ID   string
	Kind ConstraintKind

	// FixedPoint
	PointID string
	Target  geom.Vec3

	// Coplanar / Collinear (Points, N>=4 / N==3)
	Points []string

	// Coincident: P on line AB
	P, A, B string

	// Angle / EqualAngles: vertex + two rays
	Vertex      string
	RayA, RayB  string
	TargetAngle float64 // radians, Angle only

	// EqualAngles: second angle's vertex + rays
	Vertex2     string
	RayA2, RayB2 string

	// EqualDistances: two point pairs
	PairA1, PairA2 string
	PairB1, PairB2 string
}
