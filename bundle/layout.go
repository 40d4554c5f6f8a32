// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bundle implements the variable layout (component B), the
// residual-provider families (component C), and the normal-equation
// accumulator (component D) of the bundle-adjustment solver. It is the
// direct descendant of the teacher's fem package: fem/domain.go's
// ID-to-equation-number map becomes Layout; fem/element.go's Elem
// interface (AddToRhs/AddToKb, dispatched from a per-type allocator)
// becomes Provider, constructed directly rather than looked up from a
// registry since every provider family is known at compile time.
package bundle

import (
	"github.com/cpmech/bundleadj/scene"
)

// IntrinsicsPolicy controls whether a camera's focal length is a free
// variable (spec.md §4.B).
type IntrinsicsPolicy int

const (
	IntrinsicsFixed IntrinsicsPolicy = iota
	IntrinsicsFree
	IntrinsicsAuto // free iff the camera has zero vanishing-line annotations
)

// CameraVarIndex holds the variable-vector slots for one camera. An index
// of -1 means that slot is locked (inlined as a constant at residual
// evaluation) rather than a free variable.
type CameraVarIndex struct {
	Pos   [3]int
	Quat  [4]int
	Focal int // -1 if fixed
}

// Layout maps every point/camera/intrinsic to a slot in the flat variable
// vector X, honoring per-axis locks exactly as spec.md §4.B describes.
type Layout struct {
	N int
	X []float64

	pointIdx  map[string][3]int
	cameraIdx map[string]CameraVarIndex

	pointLocked  map[string][3]float64 // axis -> locked-or-inferred value, only set where not free
	cameraLocked map[string]scene.Pose // only set for IsPoseLocked cameras
}

// NewLayout walks proj once (in its own enumeration order, for
// determinism per spec.md §5) and assigns variable-vector slots.
func NewLayout(proj scene.Project, policy IntrinsicsPolicy) *Layout {
	l := &Layout{
		pointIdx:     map[string][3]int{},
		cameraIdx:    map[string]CameraVarIndex{},
		pointLocked:  map[string][3]float64{},
		cameraLocked: map[string]scene.Pose{},
	}
	var x []float64
	next := func(v float64) int {
		x = append(x, v)
		return len(x) - 1
	}

	for _, p := range proj.WorldPoints() {
		var idx [3]int
		var locked [3]float64
		for axis := 0; axis < 3; axis++ {
			val, has := p.EffectiveXYZ(axis)
			if has && (p.LockedXYZ[axis] != nil || p.InferredXYZ[axis] != nil) {
				idx[axis] = -1
				locked[axis] = val
			} else {
				init := val // 0 if !has
				idx[axis] = next(init)
			}
		}
		l.pointIdx[p.ID] = idx
		l.pointLocked[p.ID] = locked
	}

	for _, v := range proj.Viewpoints() {
		var cv CameraVarIndex
		if v.IsPoseLocked {
			cv.Pos = [3]int{-1, -1, -1}
			cv.Quat = [4]int{-1, -1, -1, -1}
			l.cameraLocked[v.ID] = v.Pose
		} else {
			cv.Pos = [3]int{next(v.Pose.Position.X), next(v.Pose.Position.Y), next(v.Pose.Position.Z)}
			cv.Quat = [4]int{next(v.Pose.Quat.W), next(v.Pose.Quat.X), next(v.Pose.Quat.Y), next(v.Pose.Quat.Z)}
		}
		optimizeFocal := false
		switch policy {
		case IntrinsicsFree:
			optimizeFocal = true
		case IntrinsicsFixed:
			optimizeFocal = false
		case IntrinsicsAuto:
			optimizeFocal = len(v.VanishingLines) == 0
		}
		if optimizeFocal {
			cv.Focal = next(v.Intrinsics.FocalLength)
		} else {
			cv.Focal = -1
		}
		l.cameraIdx[v.ID] = cv
	}

	l.N = len(x)
	l.X = x
	return l
}

// WorldPointIdx returns the three variable-vector slots for a point
// (-1 where locked or inferred).
func (l *Layout) WorldPointIdx(id string) [3]int { return l.pointIdx[id] }

// LockedPointValue returns the inlined value for a locked/inferred axis.
func (l *Layout) LockedPointValue(id string, axis int) float64 {
	return l.pointLocked[id][axis]
}

// CameraIdx returns the variable-vector slots for a camera.
func (l *Layout) CameraIdx(id string) CameraVarIndex { return l.cameraIdx[id] }

// LockedPose returns the inlined pose for a pose-locked camera.
func (l *Layout) LockedPose(id string) scene.Pose { return l.cameraLocked[id] }

// IsCameraPoseLocked reports whether id's pose is inlined rather than free.
func (l *Layout) IsCameraPoseLocked(id string) bool {
	_, locked := l.cameraLocked[id]
	return locked
}
