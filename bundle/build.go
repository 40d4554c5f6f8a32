// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import (
	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
)

// PointRegularizationWeight is the default weight BuildProviders applies
// to a free world point's PointRegularizationProvider (spec.md §4.C
// "Point-position regularization").
const PointRegularizationWeight = 10.0

// YSignWeight is the default weight applied to YSignProvider when a
// camera's initial height is large enough to warrant breaking the
// reflected-minimum attractor.
const YSignWeight = 50.0

// ySignThreshold is how far off the ground plane a camera's initial
// position must already sit before YSignProvider is worth constructing;
// near zero the sign is ambiguous and the penalty would just fight noise.
const ySignThreshold = 0.05

func lineDirectionKind(d scene.LineDirection) (LineDirectionKind, bool) {
	switch d {
	case scene.DirX:
		return DirAxisX, true
	case scene.DirY:
		return DirAxisY, true
	case scene.DirZ:
		return DirAxisZ, true
	case scene.DirXY:
		return DirPlaneXY, true
	case scene.DirXZ:
		return DirPlaneXZ, true
	case scene.DirYZ:
		return DirPlaneYZ, true
	}
	return 0, false
}

// BuildProviders compiles every constraint, line, observation and
// regularization rule a Layout exposes into the concrete Provider family
// spec.md §4.C names, the way the teacher's solverallocators registry
// turns an element's Type string into an Elem instance — except every
// family here is known statically, so BuildProviders just walks proj and
// calls the matching constructor directly instead of dispatching through
// a map.
func BuildProviders(l *Layout, proj scene.Project) []Provider {
	lookup := scene.BuildLookup(proj)
	var out []Provider

	for _, ln := range proj.Lines() {
		if ln.TargetLength != nil {
			out = append(out, NewLineLengthProvider(l, ln.P1, ln.P2, *ln.TargetLength))
		}
		if kind, ok := lineDirectionKind(ln.Direction); ok {
			out = append(out, NewLineDirectionProvider(l, ln.P1, ln.P2, kind))
		}
	}

	for _, c := range proj.Constraints() {
		switch c.Kind {
		case scene.KindFixedPoint:
			out = append(out, NewFixedPointProvider(l, c.PointID, c.Target))
		case scene.KindCoplanar:
			out = append(out, NewCoplanarProvider(l, c.Points))
		case scene.KindCollinear:
			if len(c.Points) == 3 {
				out = append(out, NewCollinearProvider(l, c.Points[0], c.Points[1], c.Points[2]))
			}
		case scene.KindCoincident:
			out = append(out, NewCoincidentProvider(l, c.P, c.A, c.B))
		case scene.KindAngle:
			out = append(out, NewAngleProvider(l, c.Vertex, c.RayA, c.RayB, c.TargetAngle))
		case scene.KindEqualAngles:
			out = append(out, NewEqualAnglesProvider(l, c.Vertex, c.RayA, c.RayB, c.Vertex2, c.RayA2, c.RayB2))
		case scene.KindEqualDistances:
			out = append(out, NewEqualDistancesProvider(l, c.PairA1, c.PairA2, c.PairB1, c.PairB2))
		}
	}

	for _, v := range proj.Viewpoints() {
		if !v.IsPoseLocked {
			out = append(out, NewQuatNormProvider(l, v.ID))
			if v.Pose.Position.Y < -ySignThreshold || v.Pose.Position.Y > ySignThreshold {
				out = append(out, NewYSignProvider(l, v.ID, v.Pose.Position.Y, YSignWeight))
			}
		}
		if l.CameraIdx(v.ID).Focal >= 0 {
			minF, maxF, maxDim := geom.FocalBounds(v.Width, v.Height)
			out = append(out, NewFocalRegularizationProvider(l, v.ID, minF, maxF, maxDim))
		}
		for _, vl := range v.VanishingLines {
			out = append(out, NewVanishingLineProviderFromPixels(l, v.ID, v.Intrinsics, vl.P1, vl.P2, vl.Axis, vl.Weight))
		}
	}

	for _, p := range proj.WorldPoints() {
		if p.FullyConstrained() {
			continue
		}
		idx := l.WorldPointIdx(p.ID)
		if idx[0] < 0 && idx[1] < 0 && idx[2] < 0 {
			continue
		}
		if p.OptimizedXYZ != nil {
			out = append(out, NewPointRegularizationProvider(l, p.ID, *p.OptimizedXYZ, PointRegularizationWeight))
		}
	}

	for _, ip := range proj.ImagePoints() {
		if ip.IsOutlier {
			continue
		}
		cam := lookup.Viewpoints[ip.ViewpointID]
		if cam == nil || !cam.EnabledInSolve {
			continue
		}
		out = append(out, NewReprojectionProvider(l, ip.WorldPointID, ip.ViewpointID, cam.Intrinsics, ip.ObservedU, ip.ObservedV))
	}

	return out
}
