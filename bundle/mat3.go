// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import "github.com/cpmech/bundleadj/geom"

// mat3 is a dense 3x3 used only for the small per-residual Jacobians of
// the cross-product-based constraint providers below; never assembled
// into anything larger; spec.md §4.D forbids materialising only the full
// solver Jacobian, not these local 3x3 blocks.
type mat3 [3][3]float64

// skew returns the matrix M such that M*a == w.Cross(a) for any a.
func skew(w geom.Vec3) mat3 {
	return mat3{
		{0, -w.Z, w.Y},
		{w.Z, 0, -w.X},
		{-w.Y, w.X, 0},
	}
}

func (a mat3) sub(b mat3) mat3 {
	var r mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][j] - b[i][j]
		}
	}
	return r
}

func (a mat3) scale(s float64) mat3 {
	var r mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][j] * s
		}
	}
	return r
}

// rowMatMul returns r^T * m as a Vec3, i.e. out[j] = sum_i r_i*m[i][j].
func rowMatMul(r geom.Vec3, m mat3) geom.Vec3 {
	ra := [3]float64{r.X, r.Y, r.Z}
	var out [3]float64
	for j := 0; j < 3; j++ {
		out[j] = ra[0]*m[0][j] + ra[1]*m[1][j] + ra[2]*m[2][j]
	}
	return geom.Vec3{X: out[0], Y: out[1], Z: out[2]}
}

// addMat3Rows writes a 3x3 Jacobian block M (3 residual rows x the 3 free
// axes of one point, based at logical offset base in idx) into out.
func addMat3Rows(idx indexSet, out [][]float64, base int, m mat3) {
	for row := 0; row < 3; row++ {
		for axis := 0; axis < 3; axis++ {
			idx.add(out[row], base+axis, m[row][axis])
		}
	}
}

// addRowVec writes a single residual row's gradient contribution (a Vec3
// over one point's x,y,z) into out[row] at logical offset base.
func addRowVec(idx indexSet, out []float64, base int, v geom.Vec3) {
	idx.add(out, base+0, v.X)
	idx.add(out, base+1, v.Y)
	idx.add(out, base+2, v.Z)
}
