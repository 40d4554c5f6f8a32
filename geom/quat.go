// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geom

// Quat is a Hamilton quaternion [W, X, Y, Z]. It is never assumed to be
// unit length: the soft normalization residual (bundle.QuatNormProvider)
// lets it drift slightly during Levenberg-Marquardt iterations, so every
// operation here uses the general (non-unit-safe) formula rather than the
// unit-quaternion shortcut.
type Quat struct {
	W, X, Y, Z float64
}

// IdentityQuat returns the identity rotation.
func IdentityQuat() Quat { return Quat{W: 1} }

func (q Quat) Vec() Vec3 { return Vec3{q.X, q.Y, q.Z} }

// NormSq returns ||q||^2 = w^2 + x^2 + y^2 + z^2.
func (q Quat) NormSq() float64 { return q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z }

// Multiply computes the Hamilton product a*b.
func (a Quat) Multiply(b Quat) Quat {
	return Quat{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
	}
}

// Conjugate returns [w, -x, -y, -z]; this is q^{-1} only up to the scale
// ||q||^2, matching the non-unit-safe rotation formula used by Rotate.
func (q Quat) Conjugate() Quat { return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z} }

// Rotate applies the general (non-unit-safe) Hamilton rotation formula
//
//	t' = 2*(qv.t)*qv + (w^2 - |qv|^2)*t + 2*w*(qv x t)
//
// Note this scales t by ||q||^2 when q is not unit length; the scaling is
// intentional (it matches what a literal q*t*conj(q) product produces) and
// is compensated by the soft unit-norm residual keeping ||q|| close to 1.
func (q Quat) Rotate(t Vec3) Vec3 {
	qv := q.Vec()
	qvDotT := qv.Dot(t)
	qvNormSq := qv.Dot(qv)
	term1 := qv.Scale(2 * qvDotT)
	term2 := t.Scale(q.W*q.W - qvNormSq)
	term3 := qv.Cross(t).Scale(2 * q.W)
	return term1.Add(term2).Add(term3)
}

// RotateJacobian returns d(Rotate(t))/d(q) as a 3x4 matrix (rows = x,y,z of
// the rotated vector, columns = w,x,y,z of q), evaluated at the current q
// and fixed t. Derived by differentiating the Hamilton formula above term
// by term; used by bundle.ReprojectionProvider's chain rule.
func (q Quat) RotateJacobian(t Vec3) (d [3][4]float64) {
	qv := q.Vec()
	w := q.W

	// term1 = 2*(qv.t)*qv
	// d term1 / d w = 0
	// d term1 / d qv_k = 2*t_k*qv + 2*(qv.t)*e_k
	qvDotT := qv.Dot(t)
	for k := 0; k < 3; k++ {
		tk := component(t, k)
		ek := unitAxis(k)
		col := qv.Scale(2 * tk).Add(ek.Scale(2 * qvDotT))
		d[0][k+1] += col.X
		d[1][k+1] += col.Y
		d[2][k+1] += col.Z
	}

	// term2 = (w^2 - |qv|^2) * t
	// d term2 / d w = 2*w*t
	dw := t.Scale(2 * w)
	d[0][0] += dw.X
	d[1][0] += dw.Y
	d[2][0] += dw.Z
	// d term2 / d qv_k = -2*qv_k*t
	for k := 0; k < 3; k++ {
		qvk := component(qv, k)
		col := t.Scale(-2 * qvk)
		d[0][k+1] += col.X
		d[1][k+1] += col.Y
		d[2][k+1] += col.Z
	}

	// term3 = 2*w*(qv x t)
	// d term3 / d w = 2*(qv x t)
	cross := qv.Cross(t)
	d[0][0] += 2 * cross.X
	d[1][0] += 2 * cross.Y
	d[2][0] += 2 * cross.Z
	// d term3 / d qv_k = 2*w*(e_k x t)
	for k := 0; k < 3; k++ {
		ek := unitAxis(k)
		col := ek.Cross(t).Scale(2 * w)
		d[0][k+1] += col.X
		d[1][k+1] += col.Y
		d[2][k+1] += col.Z
	}
	return
}

func component(v Vec3, k int) float64 {
	switch k {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func unitAxis(k int) Vec3 {
	switch k {
	case 0:
		return Vec3{X: 1}
	case 1:
		return Vec3{Y: 1}
	default:
		return Vec3{Z: 1}
	}
}
