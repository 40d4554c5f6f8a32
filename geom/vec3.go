// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package geom provides the vector, quaternion and pinhole-projection
// primitives shared by every solver component.
package geom

import "math"

// Vec3 is a point or direction in world or camera space.
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) Norm() float64 { return math.Sqrt(a.Dot(a)) }

// Unit returns a normalised copy; the zero vector is returned unchanged.
func (a Vec3) Unit() Vec3 {
	n := a.Norm()
	if n == 0 {
		return a
	}
	return a.Scale(1 / n)
}

// Array returns the vector as a 3-element slice, axis order X,Y,Z.
func (a Vec3) Array() [3]float64 { return [3]float64{a.X, a.Y, a.Z} }

// VecFromArray builds a Vec3 from a 3-element axis array.
func VecFromArray(a [3]float64) Vec3 { return Vec3{a[0], a[1], a[2]} }

// AxisUnit returns the unit vector for world axis 0=x, 1=y, 2=z.
func AxisUnit(axis int) Vec3 {
	switch axis {
	case 0:
		return Vec3{1, 0, 0}
	case 1:
		return Vec3{0, 1, 0}
	case 2:
		return Vec3{0, 0, 1}
	}
	return Vec3{}
}
