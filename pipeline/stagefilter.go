// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import "github.com/cpmech/bundleadj/scene"

// subsetProject restricts WorldPoints/ImagePoints/Lines/Constraints to a
// set of qualifying point IDs, while delegating every other method
// (Viewpoints, PropagateInferences, the setters) to the wrapped Project
// unchanged — a decorator, not a copy, so writes through it land directly
// on the real entities (spec.md §4.J step 7 "build the system over only
// world points visible in >=2 initialised cameras and their incident
// constraints").
type subsetProject struct {
	scene.Project
	ids map[string]bool
}

func newStage1Project(proj scene.Project, lookup *scene.Lookup) *subsetProject {
	ids := map[string]bool{}
	for _, p := range proj.WorldPoints() {
		if p.FullyConstrained() {
			ids[p.ID] = true
			continue
		}
		cams := map[string]bool{}
		for _, ip := range lookup.ImagePointsForPoint(p.ID) {
			cam := lookup.Viewpoints[ip.ViewpointID]
			if cam != nil && cam.EnabledInSolve {
				cams[ip.ViewpointID] = true
			}
		}
		if len(cams) >= 2 {
			ids[p.ID] = true
		}
	}
	return &subsetProject{Project: proj, ids: ids}
}

func (s *subsetProject) WorldPoints() []*scene.WorldPoint {
	var out []*scene.WorldPoint
	for _, p := range s.Project.WorldPoints() {
		if s.ids[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func (s *subsetProject) ImagePoints() []*scene.ImagePoint {
	var out []*scene.ImagePoint
	for _, ip := range s.Project.ImagePoints() {
		if s.ids[ip.WorldPointID] {
			out = append(out, ip)
		}
	}
	return out
}

func (s *subsetProject) Lines() []*scene.Line {
	var out []*scene.Line
	for _, ln := range s.Project.Lines() {
		if s.ids[ln.P1] && s.ids[ln.P2] {
			out = append(out, ln)
		}
	}
	return out
}

func (s *subsetProject) Constraints() []*scene.Constraint {
	var out []*scene.Constraint
	for _, c := range s.Project.Constraints() {
		if s.constraintInSubset(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *subsetProject) constraintInSubset(c *scene.Constraint) bool {
	switch c.Kind {
	case scene.KindFixedPoint:
		return s.ids[c.PointID]
	case scene.KindCoplanar, scene.KindCollinear:
		for _, id := range c.Points {
			if !s.ids[id] {
				return false
			}
		}
		return len(c.Points) > 0
	case scene.KindCoincident:
		return s.ids[c.P] && s.ids[c.A] && s.ids[c.B]
	case scene.KindAngle:
		return s.ids[c.Vertex] && s.ids[c.RayA] && s.ids[c.RayB]
	case scene.KindEqualAngles:
		return s.ids[c.Vertex] && s.ids[c.RayA] && s.ids[c.RayB] && s.ids[c.Vertex2] && s.ids[c.RayA2] && s.ids[c.RayB2]
	case scene.KindEqualDistances:
		return s.ids[c.PairA1] && s.ids[c.PairA2] && s.ids[c.PairB1] && s.ids[c.PairB2]
	}
	return false
}

// freeProject hands bundle.NewLayout a scene where every world point's
// locked/inferred axes are stripped (so they become free variables) and
// FixedPoint constraints are dropped, used for the "free solve then align"
// path of spec.md §4.H when essential-matrix initialization leaves no
// axis constraint to anchor rotation. Camera poses are left exactly as
// the wrapped Project reports them (locked cameras stay locked — their
// pose is a real calibration, not gauge freedom to resolve).
type freeProject struct {
	scene.Project
	points []*scene.WorldPoint
}

func newFreeProject(proj scene.Project) *freeProject {
	pts := make([]*scene.WorldPoint, 0, len(proj.WorldPoints()))
	for _, p := range proj.WorldPoints() {
		cp := &scene.WorldPoint{ID: p.ID}
		if p.OptimizedXYZ != nil {
			v := *p.OptimizedXYZ
			cp.OptimizedXYZ = &v
		} else if v, ok := p.EffectiveVec3(); ok {
			cp.OptimizedXYZ = &v
		}
		pts = append(pts, cp)
	}
	return &freeProject{Project: proj, points: pts}
}

func (f *freeProject) WorldPoints() []*scene.WorldPoint { return f.points }

func (f *freeProject) Constraints() []*scene.Constraint {
	var out []*scene.Constraint
	for _, c := range f.Project.Constraints() {
		if c.Kind == scene.KindFixedPoint {
			continue
		}
		out = append(out, c)
	}
	return out
}
