// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geom

// Intrinsics holds OpenCV-style camera intrinsic parameters: a single
// FocalLength (fx) with AspectRatio giving fy, the principal point, skew,
// and radial (k1..k3) / tangential (p1, p2) distortion coefficients.
type Intrinsics struct {
	FocalLength    float64 // fx; fy = FocalLength * AspectRatio
	AspectRatio    float64
	Cx, Cy         float64
	Skew           float64
	Radial         [3]float64 // k1, k2, k3
	Tangential     [2]float64 // p1, p2
}

// Fy returns the effective focal length along the image-row axis.
func (in Intrinsics) Fy() float64 { return in.FocalLength * in.AspectRatio }

// ProjectResult carries a projected pixel and the normalized camera-space
// coordinates it was derived from, so callers (reprojection gradients) do
// not need to recompute the normalized coordinates.
type ProjectResult struct {
	U, V   float64
	Xn, Yn float64 // distorted normalized coordinates (post-distortion, pre-scale)
}

// Project maps a camera-space point to pixel coordinates using the pinhole
// model with radial/tangential distortion applied in normalized
// coordinates, matching spec.md's reprojection residual convention:
//
//	U =  fx*(xn) + skew*(yn) + cx
//	V =  cy - fy*(yn)     (note the V sign convention)
func Project(in Intrinsics, camPoint Vec3) ProjectResult {
	xu := camPoint.X / camPoint.Z
	yu := camPoint.Y / camPoint.Z
	r2 := xu*xu + yu*yu
	r4 := r2 * r2
	r6 := r4 * r2
	radial := 1 + in.Radial[0]*r2 + in.Radial[1]*r4 + in.Radial[2]*r6
	dtx := 2*in.Tangential[0]*xu*yu + in.Tangential[1]*(r2+2*xu*xu)
	dty := in.Tangential[0]*(r2+2*yu*yu) + 2*in.Tangential[1]*xu*yu
	xd := xu*radial + dtx
	yd := yu*radial + dty
	fy := in.Fy()
	u := in.FocalLength*xd + in.Skew*yd + in.Cx
	v := in.Cy - fy*yd
	return ProjectResult{U: u, V: v, Xn: xd, Yn: yd}
}

// Unproject returns the camera-space ray direction (unnormalized, z=1
// convention) a pixel backprojects to, ignoring distortion (which has no
// closed-form inverse); used by bundle.VanishingLineProvider to lift an
// annotated image direction into camera space.
func Unproject(in Intrinsics, u, v float64) Vec3 {
	yu := (in.Cy - v) / in.Fy()
	xu := (u - in.Cx - in.Skew*yu) / in.FocalLength
	return Vec3{X: xu, Y: yu, Z: 1}
}

// ProjectJacobian returns the partial derivatives of Project's (U,V) output
// with respect to the camera-space point and the focal length, evaluated at
// camPoint. dUdCam/dVdCam are in camera-space order (x,y,z); dUdf/dVdf hold
// the direct dependence on FocalLength (aspect ratio is never a free
// variable, so fy's dependence on f is folded in here rather than exposed
// separately).
func ProjectJacobian(in Intrinsics, camPoint Vec3) (dUdCam, dVdCam [3]float64, dUdf, dVdf float64) {
	xc, yc, zc := camPoint.X, camPoint.Y, camPoint.Z
	xu := xc / zc
	yu := yc / zc
	r2 := xu*xu + yu*yu
	r4 := r2 * r2
	k1, k2, k3 := in.Radial[0], in.Radial[1], in.Radial[2]
	p1, p2 := in.Tangential[0], in.Tangential[1]
	radial := 1 + k1*r2 + k2*r4 + k3*r4*r2
	dRadialDr2 := k1 + 2*k2*r2 + 3*k3*r4

	// d(xd,yd)/d(xu,yu), from xd = xu*radial + dtx, yd = yu*radial + dty.
	dRadialDxu := dRadialDr2 * 2 * xu
	dRadialDyu := dRadialDr2 * 2 * yu

	dXdDxu := radial + xu*dRadialDxu + 2*p1*yu + 6*p2*xu
	dXdDyu := xu*dRadialDyu + 2*p1*xu + 2*p2*yu
	dYdDxu := yu*dRadialDxu + 2*p1*xu + 2*p2*yu
	dYdDyu := radial + yu*dRadialDyu + 6*p1*yu + 2*p2*xu

	// d(xu,yu)/d(xc,yc,zc).
	invZ := 1 / zc
	dXuDxc, dXuDyc, dXuDzc := invZ, 0.0, -xc*invZ*invZ
	dYuDxc, dYuDyc, dYuDzc := 0.0, invZ, -yc*invZ*invZ

	dXdDxc := dXdDxu*dXuDxc + dXdDyu*dYuDxc
	dXdDyc := dXdDxu*dXuDyc + dXdDyu*dYuDyc
	dXdDzc := dXdDxu*dXuDzc + dXdDyu*dYuDzc
	dYdDxc := dYdDxu*dXuDxc + dYdDyu*dYuDxc
	dYdDyc := dYdDxu*dXuDyc + dYdDyu*dYuDyc
	dYdDzc := dYdDxu*dXuDzc + dYdDyu*dYuDzc

	fy := in.Fy()
	dUdCam = [3]float64{
		in.FocalLength*dXdDxc + in.Skew*dYdDxc,
		in.FocalLength*dXdDyc + in.Skew*dYdDyc,
		in.FocalLength*dXdDzc + in.Skew*dYdDzc,
	}
	dVdCam = [3]float64{-fy * dYdDxc, -fy * dYdDyc, -fy * dYdDzc}

	xd := xu*radial + 2*p1*xu*yu + p2*(r2+2*xu*xu)
	yd := yu*radial + p1*(r2+2*yu*yu) + 2*p2*xu*yu
	dUdf = xd
	dVdf = -in.AspectRatio * yd
	return
}

// Sanitize resets out-of-range or degenerate intrinsics per spec.md
// §4.F's pre-attempt sanitisation step, returning the sanitised copy.
func Sanitize(in Intrinsics, imageWidth, imageHeight int) Intrinsics {
	out := in
	out.Skew = 0
	out.AspectRatio = 1
	out.Radial = [3]float64{}
	out.Tangential = [2]float64{}
	maxDim := float64(imageWidth)
	if imageHeight > imageWidth {
		maxDim = float64(imageHeight)
	}
	minF := 0.3 * maxDim
	maxF := 5.0 * maxDim
	if out.FocalLength < minF || out.FocalLength > maxF || out.FocalLength <= 0 {
		out.FocalLength = maxDim
	}
	if out.Cx < 0 || out.Cx > float64(imageWidth) {
		out.Cx = float64(imageWidth) / 2
	}
	if out.Cy < 0 || out.Cy > float64(imageHeight) {
		out.Cy = float64(imageHeight) / 2
	}
	return out
}

// FocalBounds returns the [minF, maxF] clamp used both by Sanitize and by
// bundle.FocalRegularizationProvider, given the larger image dimension.
func FocalBounds(imageWidth, imageHeight int) (minF, maxF, maxDim float64) {
	maxDim = float64(imageWidth)
	if imageHeight > imageWidth {
		maxDim = float64(imageHeight)
	}
	return 0.3 * maxDim, 5.0 * maxDim, maxDim
}
