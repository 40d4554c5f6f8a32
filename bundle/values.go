// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import "github.com/cpmech/bundleadj/geom"

// PointPosition reads a world point's current position out of the
// variable vector, inlining locked/inferred axes from the layout.
func PointPosition(l *Layout, x []float64, pointID string) geom.Vec3 {
	idx := l.WorldPointIdx(pointID)
	var v geom.Vec3
	axes := [3]*float64{&v.X, &v.Y, &v.Z}
	for axis := 0; axis < 3; axis++ {
		if idx[axis] < 0 {
			*axes[axis] = l.LockedPointValue(pointID, axis)
		} else {
			*axes[axis] = x[idx[axis]]
		}
	}
	return v
}

// CameraPosition reads a camera's current position.
func CameraPosition(l *Layout, x []float64, viewpointID string) geom.Vec3 {
	cv := l.CameraIdx(viewpointID)
	if l.IsCameraPoseLocked(viewpointID) {
		return l.LockedPose(viewpointID).Position
	}
	return geom.Vec3{X: x[cv.Pos[0]], Y: x[cv.Pos[1]], Z: x[cv.Pos[2]]}
}

// CameraQuat reads a camera's current orientation.
func CameraQuat(l *Layout, x []float64, viewpointID string) geom.Quat {
	cv := l.CameraIdx(viewpointID)
	if l.IsCameraPoseLocked(viewpointID) {
		return l.LockedPose(viewpointID).Quat
	}
	return geom.Quat{W: x[cv.Quat[0]], X: x[cv.Quat[1]], Y: x[cv.Quat[2]], Z: x[cv.Quat[3]]}
}

// CameraFocal reads a camera's current focal length, falling back to
// fixedValue when the focal length is not a free variable.
func CameraFocal(l *Layout, x []float64, viewpointID string, fixedValue float64) float64 {
	cv := l.CameraIdx(viewpointID)
	if cv.Focal < 0 {
		return fixedValue
	}
	return x[cv.Focal]
}
