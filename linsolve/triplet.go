// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linsolve implements the sparse symmetric linear algebra needed by
// the Levenberg-Marquardt driver: triplet accumulation (duplicates summed,
// mirroring gosl/la.Triplet's Put contract used by the teacher's
// AddToKb(Kb *la.Triplet, ...) element callback), diagonal (LM) damping,
// and a solve-SPD entry point that tries a sparse Cholesky factorisation
// before falling back to Jacobi-preconditioned conjugate gradients.
package linsolve

// Triplet accumulates (row, col, value) contributions from residual
// providers the same way the teacher's fem package accumulated element
// tangent matrices into a global Kb: repeated Put calls at the same (i,j)
// are summed, never overwritten.
type Triplet struct {
	n       int
	entries []entry
}

type entry struct {
	i, j int
	v    float64
}

// NewTriplet returns a triplet builder for an n x n system, pre-allocating
// space for capacityHint entries.
func NewTriplet(n, capacityHint int) *Triplet {
	return &Triplet{n: n, entries: make([]entry, 0, capacityHint)}
}

// N returns the dimension of the (square) system.
func (t *Triplet) N() int { return t.n }

// Put appends a contribution at (i, j); if i or j is negative (the
// provider's variable is locked or inferred) the entry is silently
// dropped, matching bundle's convention for inlined/locked variables.
func (t *Triplet) Put(i, j int, v float64) {
	if i < 0 || j < 0 {
		return
	}
	t.entries = append(t.entries, entry{i, j, v})
}

// Start resets the triplet for reuse across LM iterations without
// reallocating its backing array, mirroring fem's d.Kb.Start() call at the
// top of every Newton iteration.
func (t *Triplet) Start() { t.entries = t.entries[:0] }

// Len returns the number of raw (pre-summation) entries recorded so far.
func (t *Triplet) Len() int { return len(t.entries) }
