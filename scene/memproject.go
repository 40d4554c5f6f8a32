// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import "github.com/cpmech/bundleadj/geom"

// MemProject is a minimal in-memory Project, used by this module's own
// tests and by cmd/bundleadj's ambient demo. Real project-file parsing is
// out of scope (spec.md §1); callers needing persistence implement Project
// themselves.
type MemProject struct {
	Points      []*WorldPoint
	Views       []*Viewpoint
	Images      []*ImagePoint
	LinesList   []*Line
	Constraints_ []*Constraint
}

func NewMemProject() *MemProject { return &MemProject{} }

func (m *MemProject) WorldPoints() []*WorldPoint   { return m.Points }
func (m *MemProject) Viewpoints() []*Viewpoint     { return m.Views }
func (m *MemProject) ImagePoints() []*ImagePoint   { return m.Images }
func (m *MemProject) Lines() []*Line               { return m.LinesList }
func (m *MemProject) Constraints() []*Constraint   { return m.Constraints_ }

func (m *MemProject) SetOptimizedXYZ(pointID string, xyz geom.Vec3) {
	for _, p := range m.Points {
		if p.ID == pointID {
			v := xyz
			p.OptimizedXYZ = &v
			return
		}
	}
}

func (m *MemProject) SetPose(viewpointID string, pose Pose) {
	for _, v := range m.Views {
		if v.ID == viewpointID {
			v.Pose = pose
			return
		}
	}
}

func (m *MemProject) SetFocalLength(viewpointID string, f float64) {
	for _, v := range m.Views {
		if v.ID == viewpointID {
			v.Intrinsics.FocalLength = f
			return
		}
	}
}

func (m *MemProject) SetImagePointResidual(worldPointID, viewpointID string, u, v float64) {
	for _, ip := range m.Images {
		if ip.WorldPointID == worldPointID && ip.ViewpointID == viewpointID {
			ip.LastResidualU, ip.LastResidualV = u, v
			return
		}
	}
}

func (m *MemProject) SetIsOutlier(worldPointID, viewpointID string, outlier bool) {
	for _, ip := range m.Images {
		if ip.WorldPointID == worldPointID && ip.ViewpointID == viewpointID {
			ip.IsOutlier = outlier
			return
		}
	}
}

// PropagateInferences recomputes InferredXYZ from Coincident-on-axis-line
// constraints and FixedPoint constraints reachable from a locked root; the
// full walk (including multi-hop chains) is implemented by
// triangulate.PropagateConstraintChains, which PropagateInferences here
// delegates to so every Project implementation gets identical semantics
// regardless of how it stores entities.
func (m *MemProject) PropagateInferences() {
	for _, p := range m.Points {
		p.InferredXYZ = [3]*float64{}
	}
	propagateInferencesFunc(m)
}

// propagateInferencesFunc is set by package triangulate at init time to
// break the import cycle scene -> triangulate -> scene (triangulate needs
// the entity types; scene's default in-memory project needs triangulate's
// propagation walk). Any Project implementation may instead call
// triangulate.PropagateConstraintChains directly from its own
// PropagateInferences and ignore this hook entirely.
var propagateInferencesFunc = func(Project) {}

// SetInferencePropagator installs the propagation function used by
// MemProject.PropagateInferences. triangulate.init registers itself here.
func SetInferencePropagator(fn func(Project)) { propagateInferencesFunc = fn }
