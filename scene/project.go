// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import "github.com/cpmech/bundleadj/geom"

// Project is the external entity graph the solver borrows read access to
// during optimize() and writes back to on convergence / between stages
// (spec.md §3 "Lifecycles", §6 "Project API"). Implementations typically
// back onto a user-facing project-file format or an in-memory editor
// model; neither is part of this module.
type Project interface {
	WorldPoints() []*WorldPoint
	Viewpoints() []*Viewpoint
	ImagePoints() []*ImagePoint
	Lines() []*Line
	Constraints() []*Constraint

	// PropagateInferences recomputes InferredXYZ on every WorldPoint from
	// the current Constraints/Lines. Called exactly once per optimize()
	// call (spec.md §6), never during LM iterations.
	PropagateInferences()

	// WriteBack pushes the solver's results for one world point / camera
	// back into the project. optimize() calls these at convergence and
	// between the two solve stages (spec.md §3 "Lifecycles").
	SetOptimizedXYZ(pointID string, xyz geom.Vec3)
	SetPose(viewpointID string, pose Pose)
	SetFocalLength(viewpointID string, f float64)
	SetImagePointResidual(worldPointID, viewpointID string, u, v float64)
	SetIsOutlier(worldPointID, viewpointID string, outlier bool)
}

// Lookup is a convenience index built once per optimize() call from a
// Project's enumerators, since bundle/initcam/triangulate/align all need
// O(1) access by ID far more often than they need to walk the full lists.
type Lookup struct {
	Points     map[string]*WorldPoint
	Viewpoints map[string]*Viewpoint
	Lines      map[string]*Line
	byCamera   map[string][]*ImagePoint
	byPoint    map[string][]*ImagePoint
	allImages  []*ImagePoint
}

// BuildLookup indexes every entity in proj by ID.
func BuildLookup(proj Project) *Lookup {
	l := &Lookup{
		Points:     map[string]*WorldPoint{},
		Viewpoints: map[string]*Viewpoint{},
		Lines:      map[string]*Line{},
		byCamera:   map[string][]*ImagePoint{},
		byPoint:    map[string][]*ImagePoint{},
	}
	for _, p := range proj.WorldPoints() {
		l.Points[p.ID] = p
	}
	for _, v := range proj.Viewpoints() {
		l.Viewpoints[v.ID] = v
	}
	for _, ln := range proj.Lines() {
		l.Lines[ln.ID] = ln
	}
	for _, ip := range proj.ImagePoints() {
		l.allImages = append(l.allImages, ip)
		l.byCamera[ip.ViewpointID] = append(l.byCamera[ip.ViewpointID], ip)
		l.byPoint[ip.WorldPointID] = append(l.byPoint[ip.WorldPointID], ip)
	}
	return l
}

// ImagePointsForCamera returns every observation of a camera, in Project
// enumeration order.
func (l *Lookup) ImagePointsForCamera(viewpointID string) []*ImagePoint {
	return l.byCamera[viewpointID]
}

// ImagePointsForPoint returns every observation of a world point.
func (l *Lookup) ImagePointsForPoint(worldPointID string) []*ImagePoint {
	return l.byPoint[worldPointID]
}

// AllImagePoints returns every observation in the project.
func (l *Lookup) AllImagePoints() []*ImagePoint { return l.allImages }
