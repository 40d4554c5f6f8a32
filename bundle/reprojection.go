// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import "github.com/cpmech/bundleadj/geom"

// ReprojectionProvider is the core residual family: the (U,V) pixel error
// of one image-point observation (spec.md §4.C "Reprojection"). Variables
// are whichever of the world point's axes, the camera's position, the
// camera's quaternion and the camera's focal length are free; locked axes
// are inlined as constants via PointPosition/CameraPosition/CameraQuat.
type ReprojectionProvider struct {
	l                    *Layout
	pointID, viewpointID string
	intrinsics           geom.Intrinsics
	fixedFocal           float64
	observedU, observedV float64

	idx indexSet // logical layout: [pointX,Y,Z, camPosX,Y,Z, quatW,X,Y,Z, focal]
}

func NewReprojectionProvider(l *Layout, pointID, viewpointID string, intrinsics geom.Intrinsics, observedU, observedV float64) *ReprojectionProvider {
	pointIdx := l.WorldPointIdx(pointID)
	cv := l.CameraIdx(viewpointID)
	logical := make([]int, 0, 11)
	logical = append(logical, pointIdx[0], pointIdx[1], pointIdx[2])
	if l.IsCameraPoseLocked(viewpointID) {
		logical = append(logical, -1, -1, -1, -1, -1, -1, -1)
	} else {
		logical = append(logical, cv.Pos[0], cv.Pos[1], cv.Pos[2])
		logical = append(logical, cv.Quat[0], cv.Quat[1], cv.Quat[2], cv.Quat[3])
	}
	logical = append(logical, cv.Focal)

	return &ReprojectionProvider{
		l: l, pointID: pointID, viewpointID: viewpointID,
		intrinsics: intrinsics, fixedFocal: intrinsics.FocalLength,
		observedU: observedU, observedV: observedV,
		idx: newIndexSet(logical),
	}
}

func (p *ReprojectionProvider) VarIndices() []int { return p.idx.free }
func (p *ReprojectionProvider) NumResiduals() int { return 2 }

func (p *ReprojectionProvider) camPoint(x []float64) (geom.Vec3, geom.Quat, geom.Vec3) {
	world := PointPosition(p.l, x, p.pointID)
	camPos := CameraPosition(p.l, x, p.viewpointID)
	q := CameraQuat(p.l, x, p.viewpointID)
	cam := q.Rotate(world.Sub(camPos))
	return cam, q, world.Sub(camPos)
}

func (p *ReprojectionProvider) focal(x []float64) float64 {
	return CameraFocal(p.l, x, p.viewpointID, p.fixedFocal)
}

func (p *ReprojectionProvider) Residuals(x []float64, out []float64) {
	cam, _, _ := p.camPoint(x)
	in := p.intrinsics
	in.FocalLength = p.focal(x)
	proj := geom.Project(in, cam)
	out[0] = proj.U - p.observedU
	out[1] = proj.V - p.observedV
}

func (p *ReprojectionProvider) Gradients(x []float64, out [][]float64) {
	cam, q, t := p.camPoint(x)
	in := p.intrinsics
	in.FocalLength = p.focal(x)
	dUdCam, dVdCam, dUdf, dVdf := geom.ProjectJacobian(in, cam)

	// d(cam)/d(world) = R (rotation by q); d(cam)/d(camPos) = -R.
	// R's columns are q.Rotate of the unit axes minus the translation-free
	// part; easiest is to read R off RotateJacobian's structure indirectly:
	// R*e_k = q.Rotate(e_k) - q.Rotate(0) but Rotate is linear in t, so
	// R*e_k = q.Rotate(e_k).
	var rCols [3]geom.Vec3
	for k := 0; k < 3; k++ {
		rCols[k] = q.Rotate(geom.AxisUnit(k))
	}
	dQdq := q.RotateJacobian(t)

	for axis := 0; axis < 3; axis++ {
		rcol := rCols[axis]
		dUdWorld := dUdCam[0]*rcol.X + dUdCam[1]*rcol.Y + dUdCam[2]*rcol.Z
		dVdWorld := dVdCam[0]*rcol.X + dVdCam[1]*rcol.Y + dVdCam[2]*rcol.Z
		p.idx.add(out[0], axis, dUdWorld)
		p.idx.add(out[1], axis, dVdWorld)
		p.idx.add(out[0], 3+axis, -dUdWorld)
		p.idx.add(out[1], 3+axis, -dVdWorld)
	}
	for col := 0; col < 4; col++ {
		dUdq := dUdCam[0]*dQdq[0][col] + dUdCam[1]*dQdq[1][col] + dUdCam[2]*dQdq[2][col]
		dVdq := dVdCam[0]*dQdq[0][col] + dVdCam[1]*dQdq[1][col] + dVdCam[2]*dQdq[2][col]
		p.idx.add(out[0], 6+col, dUdq)
		p.idx.add(out[1], 6+col, dVdq)
	}
	p.idx.add(out[0], 10, dUdf)
	p.idx.add(out[1], 10, dVdf)
}
