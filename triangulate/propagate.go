// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package triangulate

import (
	"github.com/cpmech/bundleadj/geom"
	"github.com/cpmech/bundleadj/scene"
	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
)

func init() {
	scene.SetInferencePropagator(PropagateConstraintChains)
}

// PropagateConstraintChains recomputes InferredXYZ by walking direction-
// constrained Lines and FixedPoint/Coincident Constraints out from every
// already-resolved ("locked") world point, per spec.md §4.G.3's "walk a
// chain of direction-constrained lines from a locked root". The graph walk
// itself is a direct domain use of a retrieved BFS library (breadth-first
// traversal over a core.Graph of world points); deriving each propagated
// position from the edge's line/constraint data is this package's own
// responsibility, done while draining the BFS parent chain outward from
// each root.
func PropagateConstraintChains(proj scene.Project) {
	points := proj.WorldPoints()
	byID := make(map[string]*scene.WorldPoint, len(points))
	for _, p := range points {
		byID[p.ID] = p
	}

	g := core.NewGraph()
	for _, p := range points {
		g.AddVertex(p.ID)
	}

	type edgeInfo struct {
		line       *scene.Line
		coincident bool
		p, a, b    string
	}
	edges := map[[2]string]edgeInfo{}
	addEdge := func(u, v string, info edgeInfo) {
		if u == "" || v == "" || u == v {
			return
		}
		g.AddEdge(u, v, 0)
		edges[[2]string{u, v}] = info
		edges[[2]string{v, u}] = info
	}

	for _, ln := range proj.Lines() {
		if ln.Direction == scene.DirFree || ln.TargetLength == nil {
			continue
		}
		l := ln
		addEdge(ln.P1, ln.P2, edgeInfo{line: l})
	}
	for _, c := range proj.Constraints() {
		if c.Kind == scene.KindCoincident {
			addEdge(c.P, c.A, edgeInfo{coincident: true, p: c.P, a: c.A, b: c.B})
			addEdge(c.P, c.B, edgeInfo{coincident: true, p: c.P, a: c.A, b: c.B})
		}
	}

	// FixedPoint constraints seed a root position directly, independent of
	// any locked axis — these act as the "root" of a propagation chain.
	for _, c := range proj.Constraints() {
		if c.Kind != scene.KindFixedPoint {
			continue
		}
		wp := byID[c.PointID]
		if wp == nil {
			continue
		}
		setInferredFromVec(wp, c.Target)
	}

	roots := make([]string, 0, len(points))
	for _, p := range points {
		if p.FullyConstrained() {
			roots = append(roots, p.ID)
		}
	}

	for _, root := range roots {
		res, err := bfs.BFS(g, root)
		if err != nil {
			continue
		}
		for _, id := range res.Order {
			parentID, hasParent := res.Parent[id]
			if !hasParent {
				continue
			}
			child := byID[id]
			parent := byID[parentID]
			if child == nil || parent == nil {
				continue
			}
			parentPos, ok := parent.EffectiveVec3()
			if !ok {
				continue
			}
			info := edges[[2]string{parentID, id}]
			if info.coincident {
				setInferredFromVec(child, parentPos)
				continue
			}
			if info.line != nil {
				propagateAlongLine(byID, info.line, parentID, id, parentPos)
			}
		}
	}
}

// propagateAlongLine sets toID's inferred position as fromID's position
// offset by the line's target length along its constrained axis, oriented
// away from fromID. Plane-constrained lines (DirXY/DirXZ/DirYZ) only fix
// two of the three axes of the offset and are skipped: there isn't enough
// information in a Line alone to pick a point within the free plane.
func propagateAlongLine(byID map[string]*scene.WorldPoint, line *scene.Line, fromID, toID string, fromPos geom.Vec3) {
	axis := -1
	switch line.Direction {
	case scene.DirX:
		axis = 0
	case scene.DirY:
		axis = 1
	case scene.DirZ:
		axis = 2
	default:
		return
	}
	to := byID[toID]
	if to == nil || line.TargetLength == nil {
		return
	}
	sign := 1.0
	if line.P1 == toID {
		sign = -1
	}
	offset := geom.AxisUnit(axis).Scale(sign * *line.TargetLength)
	setInferredFromVec(to, fromPos.Add(offset))
}

func setInferredFromVec(wp *scene.WorldPoint, v geom.Vec3) {
	for axis := 0; axis < 3; axis++ {
		if wp.InferredXYZ[axis] != nil {
			continue
		}
		val := component(v, axis)
		wp.InferredXYZ[axis] = &val
	}
}

func component(v geom.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
