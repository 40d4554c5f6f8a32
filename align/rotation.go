// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package align rigidly repositions the reconstructed scene after
// triangulation: rotating axis-constrained lines onto their nominal world
// axes, fitting a 7-DoF similarity onto fully-constrained points (Horn's
// closed-form method), and a scale-only correction for the PnP path. New
// component; no teacher analogue.
package align

import (
	"math"

	"github.com/cpmech/bundleadj/geom"
	"gonum.org/v1/gonum/mat"
)

// quatToRotationDense returns the 3x3 rotation matrix q represents, built
// column-by-column from Quat.Rotate the same way initcam's quatToMat3
// does, so the conversion never re-derives the Hamilton formula.
func quatToRotationDense(q geom.Quat) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for col := 0; col < 3; col++ {
		v := q.Rotate(geom.AxisUnit(col))
		m.Set(0, col, v.X)
		m.Set(1, col, v.Y)
		m.Set(2, col, v.Z)
	}
	return m
}

// quatFromRotationDense converts a (near-)orthogonal 3x3 rotation matrix to
// a quaternion via Shepperd's trace-based method, mirroring initcam's
// quatFromMat3 but reading from a *mat.Dense rather than the fixed-size
// mat3 array type, since align's rotations already live in gonum matrices
// coming out of SVD.
func quatFromRotationDense(m *mat.Dense) geom.Quat {
	tr := m.At(0, 0) + m.At(1, 1) + m.At(2, 2)
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		return geom.Quat{
			W: s / 4,
			X: (m.At(2, 1) - m.At(1, 2)) / s,
			Y: (m.At(0, 2) - m.At(2, 0)) / s,
			Z: (m.At(1, 0) - m.At(0, 1)) / s,
		}
	case m.At(0, 0) > m.At(1, 1) && m.At(0, 0) > m.At(2, 2):
		s := math.Sqrt(1+m.At(0, 0)-m.At(1, 1)-m.At(2, 2)) * 2
		return geom.Quat{
			W: (m.At(2, 1) - m.At(1, 2)) / s,
			X: s / 4,
			Y: (m.At(0, 1) + m.At(1, 0)) / s,
			Z: (m.At(0, 2) + m.At(2, 0)) / s,
		}
	case m.At(1, 1) > m.At(2, 2):
		s := math.Sqrt(1+m.At(1, 1)-m.At(0, 0)-m.At(2, 2)) * 2
		return geom.Quat{
			W: (m.At(0, 2) - m.At(2, 0)) / s,
			X: (m.At(0, 1) + m.At(1, 0)) / s,
			Y: s / 4,
			Z: (m.At(1, 2) + m.At(2, 1)) / s,
		}
	default:
		s := math.Sqrt(1+m.At(2, 2)-m.At(0, 0)-m.At(1, 1)) * 2
		return geom.Quat{
			W: (m.At(1, 0) - m.At(0, 1)) / s,
			X: (m.At(0, 2) + m.At(2, 0)) / s,
			Y: (m.At(1, 2) + m.At(2, 1)) / s,
			Z: s / 4,
		}
	}
}

// nearestRotation projects a 3x3 matrix onto the nearest proper rotation
// via SVD (R = U*V^T, with a determinant-sign fix), the same construction
// initcam uses for its DLT pose estimates.
func nearestRotation(raw *mat.Dense) *mat.Dense {
	var svd mat.SVD
	svd.Factorize(raw, mat.SVDFullU|mat.SVDFullV)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	var r mat.Dense
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			v.Set(i, 2, -v.At(i, 2))
		}
		r.Mul(&u, v.T())
	}
	return &r
}

func vec3ToDense(v geom.Vec3) *mat.Dense { return mat.NewDense(3, 1, []float64{v.X, v.Y, v.Z}) }

func denseToVec3(m *mat.Dense) geom.Vec3 { return geom.Vec3{X: m.At(0, 0), Y: m.At(1, 0), Z: m.At(2, 0)} }

func matVec(m *mat.Dense, v geom.Vec3) geom.Vec3 {
	var out mat.Dense
	out.Mul(m, vec3ToDense(v))
	return denseToVec3(&out)
}
