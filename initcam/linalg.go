// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package initcam implements the camera pose initializers of spec.md
// §4.F (component F): vanishing-point rotation recovery, an EPnP-style
// direct linear PnP, and the two-view essential-matrix initializer, plus
// the intrinsics sanitisation step that precedes every attempt. It has no
// teacher analogue (fem never needed to bootstrap an unknown pose from
// image observations); the provider/accumulator/driver shape it leans on
// for PnP refinement is bundle's and lm's, not duplicated here.
package initcam

import (
	"math"

	"github.com/cpmech/bundleadj/geom"
	"gonum.org/v1/gonum/mat"
)

// mat3 is a plain row-major 3x3 matrix, used only for the small fixed-size
// rotation algebra camera initializers need (composing rotations across
// essential-matrix frames, orthonormalizing a DLT solution). Anything
// genuinely variable-sized goes through gonum/mat instead; a dependency
// for a handful of 3x3 adds/multiplies would have nothing left to do.
type mat3 [3][3]float64

func (a mat3) mul(b mat3) mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += a[i][k] * b[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

func (a mat3) add(b mat3) mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][j] + b[i][j]
		}
	}
	return out
}

func (a mat3) sub(b mat3) mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][j] - b[i][j]
		}
	}
	return out
}

func (a mat3) transpose() mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[j][i] = a[i][j]
		}
	}
	return out
}

func (a mat3) mulVec(v geom.Vec3) geom.Vec3 {
	return geom.Vec3{
		X: a[0][0]*v.X + a[0][1]*v.Y + a[0][2]*v.Z,
		Y: a[1][0]*v.X + a[1][1]*v.Y + a[1][2]*v.Z,
		Z: a[2][0]*v.X + a[2][1]*v.Y + a[2][2]*v.Z,
	}
}

func (a mat3) det() float64 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

func identityMat3() mat3 { return mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} }

func outer(u, v geom.Vec3) mat3 {
	return mat3{
		{u.X * v.X, u.X * v.Y, u.X * v.Z},
		{u.Y * v.X, u.Y * v.Y, u.Y * v.Z},
		{u.Z * v.X, u.Z * v.Y, u.Z * v.Z},
	}
}

func columnsToMat3(cx, cy, cz geom.Vec3) mat3 {
	return mat3{
		{cx.X, cy.X, cz.X},
		{cx.Y, cy.Y, cz.Y},
		{cx.Z, cy.Z, cz.Z},
	}
}

func vecToMat3(f []float64) mat3 {
	return mat3{{f[0], f[1], f[2]}, {f[3], f[4], f[5]}, {f[6], f[7], f[8]}}
}

// solve3x3 solves a*x = b by Cramer's rule; fine at this fixed size and
// avoids a general solver dependency for a 3-unknown system.
func solve3x3(a mat3, b geom.Vec3) (geom.Vec3, bool) {
	det := a.det()
	if math.Abs(det) < 1e-12 {
		return geom.Vec3{}, false
	}
	bs := [3]float64{b.X, b.Y, b.Z}
	var out [3]float64
	for col := 0; col < 3; col++ {
		m := a
		for row := 0; row < 3; row++ {
			m[row][col] = bs[row]
		}
		out[col] = m.det() / det
	}
	return geom.Vec3{X: out[0], Y: out[1], Z: out[2]}, true
}

// quatFromMat3 converts a rotation matrix to a unit quaternion via the
// standard trace-based (Shepperd) formula.
func quatFromMat3(m mat3) geom.Quat {
	tr := m[0][0] + m[1][1] + m[2][2]
	var q geom.Quat
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q.W = 0.25 * s
		q.X = (m[2][1] - m[1][2]) / s
		q.Y = (m[0][2] - m[2][0]) / s
		q.Z = (m[1][0] - m[0][1]) / s
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := math.Sqrt(1+m[0][0]-m[1][1]-m[2][2]) * 2
		q.W = (m[2][1] - m[1][2]) / s
		q.X = 0.25 * s
		q.Y = (m[0][1] + m[1][0]) / s
		q.Z = (m[0][2] + m[2][0]) / s
	case m[1][1] > m[2][2]:
		s := math.Sqrt(1+m[1][1]-m[0][0]-m[2][2]) * 2
		q.W = (m[0][2] - m[2][0]) / s
		q.X = (m[0][1] + m[1][0]) / s
		q.Y = 0.25 * s
		q.Z = (m[1][2] + m[2][1]) / s
	default:
		s := math.Sqrt(1+m[2][2]-m[0][0]-m[1][1]) * 2
		q.W = (m[1][0] - m[0][1]) / s
		q.X = (m[0][2] + m[2][0]) / s
		q.Y = (m[1][2] + m[2][1]) / s
		q.Z = 0.25 * s
	}
	return q
}

// quatToMat3 builds the rotation matrix R such that R*v == q.Rotate(v),
// read directly off three rotated basis vectors rather than re-deriving
// the Hamilton-product expansion a second time.
func quatToMat3(q geom.Quat) mat3 {
	return columnsToMat3(q.Rotate(geom.AxisUnit(0)), q.Rotate(geom.AxisUnit(1)), q.Rotate(geom.AxisUnit(2)))
}

// nearestRotation finds the closest proper rotation matrix to raw by SVD
// (correcting the reflection case per the standard "flip V's last column
// when det(U*V^T)<0" trick) and returns the mean singular value, the
// factor raw's scale (translation included) must be divided by.
func nearestRotation(raw mat3) (r mat3, scale float64) {
	data := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			data[i*3+j] = raw[i][j]
		}
	}
	d := mat.NewDense(3, 3, data)
	var svd mat.SVD
	svd.Factorize(d, mat.SVDFullU|mat.SVDFullV)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)
	scale = (s[0] + s[1] + s[2]) / 3

	var uv mat.Dense
	uv.Mul(&u, v.T())
	if mat.Det(&uv) < 0 {
		for i := 0; i < 3; i++ {
			v.Set(i, 2, -v.At(i, 2))
		}
		uv.Mul(&u, v.T())
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = uv.At(i, j)
		}
	}
	return r, scale
}

// smallestRightSingularVector returns V's last column for the given
// row-major design matrix: the standard homogeneous least-squares solution
// behind every DLT-style solve in this package (8-point essential matrix,
// DLT PnP, two-view triangulation).
func smallestRightSingularVector(rows [][]float64) []float64 {
	m, n := len(rows), len(rows[0])
	flat := make([]float64, 0, m*n)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	d := mat.NewDense(m, n, flat)
	var svd mat.SVD
	svd.Factorize(d, mat.SVDFullU|mat.SVDFullV)
	var v mat.Dense
	svd.VTo(&v)
	col := n - 1
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = v.At(i, col)
	}
	return out
}

// twoSmallestRightSingularVectors returns V's last two columns, the pair
// of null-space generators the 7-point algorithm mixes.
func twoSmallestRightSingularVectors(rows [][]float64) (f1, f2 []float64) {
	m, n := len(rows), len(rows[0])
	flat := make([]float64, 0, m*n)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	d := mat.NewDense(m, n, flat)
	var svd mat.SVD
	svd.Factorize(d, mat.SVDFullU|mat.SVDFullV)
	var v mat.Dense
	svd.VTo(&v)
	f1, f2 = make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		f1[i] = v.At(i, n-1)
		f2[i] = v.At(i, n-2)
	}
	return f1, f2
}

// triangulateTwoView solves the standard 2-view DLT for a point seen as
// rayA in an identity-posed camera and rayB in a camera at (r,t); used
// only by the essential-matrix cheirality check. triangulate.InitializePoints
// generalizes the same construction to N views and real-world scale.
func triangulateTwoView(rayA, rayB geom.Vec3, r mat3, t geom.Vec3) (geom.Vec3, bool) {
	p1 := [4]float64{r[0][0], r[0][1], r[0][2], t.X}
	p2 := [4]float64{r[1][0], r[1][1], r[1][2], t.Y}
	p3 := [4]float64{r[2][0], r[2][1], r[2][2], t.Z}

	rows := make([][]float64, 4)
	rows[0] = []float64{-1, 0, rayA.X, 0}
	rows[1] = []float64{0, -1, rayA.Y, 0}
	rowB1 := make([]float64, 4)
	rowB2 := make([]float64, 4)
	for i := 0; i < 4; i++ {
		rowB1[i] = rayB.X*p3[i] - p1[i]
		rowB2[i] = rayB.Y*p3[i] - p2[i]
	}
	rows[2], rows[3] = rowB1, rowB2

	sol := smallestRightSingularVector(rows)
	if math.Abs(sol[3]) < 1e-9 {
		return geom.Vec3{}, false
	}
	return geom.Vec3{X: sol[0] / sol[3], Y: sol[1] / sol[3], Z: sol[2] / sol[3]}, true
}

func ptr(v float64) *float64 { return &v }
