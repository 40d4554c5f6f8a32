// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import (
	"math"

	"github.com/cpmech/bundleadj/linsolve"
)

// Normal is the accumulated normal-equation system for one Levenberg-
// Marquardt trial point (spec.md §4.D).
type Normal struct {
	JtJ       *linsolve.Sparse
	NegJtr    []float64
	Cost      float64
	Residuals []float64
}

// Accumulate iterates providers in construction order — the same order
// every call receives them in, which is what makes optimize() deterministic
// (spec.md §5 "Ordering guarantees") — filling negJtr, both triangles of
// JtJ, and the scalar cost, exactly mirroring the teacher's
// run_iterations loop that walks d.Dom.Elems to fill d.Fb/d.Kb before
// calling the solver. Never materialises a dense Jacobian: each provider's
// row-block is formed, used, and discarded.
func Accumulate(providers []Provider, n int, x []float64) Normal {
	capacityHint := 0
	for _, p := range providers {
		k := len(p.VarIndices())
		capacityHint += p.NumResiduals() * k * k
	}
	tr := linsolve.NewTriplet(n, capacityHint)
	negJtr := make([]float64, n)
	cost := 0.0
	var allResiduals []float64

	for _, p := range providers {
		vars := p.VarIndices()
		nr := p.NumResiduals()
		res := make([]float64, nr)
		p.Residuals(x, res)
		grad := make([][]float64, nr)
		for r := range grad {
			grad[r] = make([]float64, len(vars))
		}
		p.Gradients(x, grad)

		for r := 0; r < nr; r++ {
			cost += res[r] * res[r]
			for k, gi := range vars {
				negJtr[gi] += -grad[r][k] * res[r]
			}
			for k, gi := range vars {
				for m, gj := range vars {
					tr.Put(gi, gj, grad[r][k]*grad[r][m])
				}
			}
		}
		allResiduals = append(allResiduals, res...)
	}

	return Normal{JtJ: linsolve.Build(tr), NegJtr: negJtr, Cost: cost, Residuals: allResiduals}
}

// CostAt evaluates only the scalar cost at x (no gradients, no triplets),
// used by the LM driver's trial-step accept/reject check (spec.md §4.E
// step 3) where the full normal-equation accumulation would be wasted
// work. Returns finite=false on the first NaN/Inf residual encountered, so
// the driver can treat it as a rejected step per spec.md §7 "Non-finite
// residual or gradient".
func CostAt(providers []Provider, x []float64) (cost float64, finite bool) {
	for _, p := range providers {
		nr := p.NumResiduals()
		res := make([]float64, nr)
		p.Residuals(x, res)
		for _, r := range res {
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return cost, false
			}
			cost += r * r
		}
	}
	return cost, true
}

// FiniteNormal reports whether every negJtr entry of n is finite, guarding
// against a poisoned accumulation propagating into the linear solve
// (spec.md §7 "Non-finite residual or gradient").
func FiniteNormal(n Normal) bool {
	for _, v := range n.NegJtr {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
