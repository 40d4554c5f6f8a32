// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lm implements the Levenberg-Marquardt driver (component E):
// adaptive Marquardt damping around bundle.Accumulate and
// linsolve.SolveSPD, the direct descendant of the teacher's
// fem.Solver.Run "assemble, factor, solve, update, check convergence"
// Newton loop (run_iterations in the teacher's solver.go), generalized
// from a fixed-point Newton iteration to a trust-region-like
// accept/reject step around the normal equations.
package lm

import (
	"fmt"
	"math"

	"github.com/cpmech/bundleadj/bundle"
	"github.com/cpmech/bundleadj/linsolve"
)

// Options configures one Run call; every field is caller-supplied per
// spec.md §4.E ("Total iteration budget, tolerance, initial damping, and
// max attempts are caller-supplied").
type Options struct {
	MaxIterations  int
	Tolerance      float64
	InitialDamping float64
	MaxRejects     int // consecutive solve/trial failures before Diverged
}

// DefaultOptions returns the driver's own defaults, used by the pipeline
// orchestrator for its preliminary free solve; its main solves take their
// values from pipeline.Options instead (whose default tolerance is 1e-6).
func DefaultOptions() Options {
	return Options{MaxIterations: 100, Tolerance: 1e-9, InitialDamping: 1e-3, MaxRejects: 10}
}

// Result reports how Run ended.
type Result struct {
	Converged  bool
	Iterations int
	Residual   float64 // final cost
}

const (
	dampingFloor = 1e-12
	dampingCap   = 1e12
)

// DivergedError is returned when MaxRejects consecutive solve failures or
// rejected trial steps occur in a row.
type DivergedError struct{ Iterations int }

func (e *DivergedError) Error() string {
	return fmt.Sprintf("levenberg-marquardt diverged after %d iterations (too many consecutive rejections)", e.Iterations)
}

// NumericFailureError is returned when non-finite residuals/gradients
// recur even after increasing damping (spec.md §7).
type NumericFailureError struct{ Iterations int }

func (e *NumericFailureError) Error() string {
	return fmt.Sprintf("levenberg-marquardt hit a recurring non-finite residual at iteration %d", e.Iterations)
}

// Run drives x (mutated in place) toward a local minimum of
// sum(residual(x)^2) over providers, following spec.md §4.E exactly:
//
//  1. accumulate normal equations at x,
//  2. form A = JtJ + lambda*diag(JtJ) and solve A*delta = negJtr,
//  3. evaluate cost at x+delta; accept iff it strictly decreases,
//  4. stop on small relative cost change (two consecutive accepted
//     steps) or small ||delta||_inf / (||x||_inf + eps).
func Run(providers []bundle.Provider, x []float64, opts Options) (Result, error) {
	const eps = 1e-12
	damping := opts.InitialDamping
	if damping <= 0 {
		damping = dampingFloor
	}

	normal := bundle.Accumulate(providers, len(x), x)
	cost := normal.Cost
	consecutiveRejects := 0
	smallRelChangeStreak := 0

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if !bundle.FiniteNormal(normal) {
			consecutiveRejects++
			if consecutiveRejects >= opts.MaxRejects {
				return Result{Iterations: iter, Residual: cost}, &NumericFailureError{Iterations: iter}
			}
			damping = math.Min(damping*10, dampingCap)
			normal = bundle.Accumulate(providers, len(x), x)
			continue
		}

		lambdaVec := make([]float64, len(x))
		diag := normal.JtJ.Diag()
		for i, d := range diag {
			lambdaVec[i] = damping * d
			if lambdaVec[i] == 0 {
				lambdaVec[i] = damping
			}
		}
		normal.JtJ.AddDiagonal(lambdaVec)

		delta, ok := linsolve.SolveSPD(normal.JtJ, normal.NegJtr)
		if !ok {
			consecutiveRejects++
			if consecutiveRejects >= opts.MaxRejects {
				return Result{Iterations: iter, Residual: cost}, &DivergedError{Iterations: iter}
			}
			damping = math.Min(damping*10, dampingCap)
			normal = bundle.Accumulate(providers, len(x), x)
			continue
		}

		trial := make([]float64, len(x))
		for i := range x {
			trial[i] = x[i] + delta[i]
		}
		newCost, finite := bundle.CostAt(providers, trial)

		if finite && newCost < cost {
			relChange := math.Abs(cost-newCost) / math.Max(cost, eps)
			deltaInf, xInf := infNorm(delta), infNorm(x)
			copy(x, trial)
			cost = newCost
			damping = math.Max(damping/10, dampingFloor)
			consecutiveRejects = 0

			converged := false
			if relChange < opts.Tolerance {
				smallRelChangeStreak++
				if smallRelChangeStreak >= 2 {
					converged = true
				}
			} else {
				smallRelChangeStreak = 0
			}
			if deltaInf/(xInf+eps) < opts.Tolerance {
				converged = true
			}
			if converged {
				return Result{Converged: true, Iterations: iter + 1, Residual: cost}, nil
			}
			normal = bundle.Accumulate(providers, len(x), x)
			continue
		}

		smallRelChangeStreak = 0
		consecutiveRejects++
		if consecutiveRejects >= opts.MaxRejects {
			return Result{Iterations: iter, Residual: cost}, &DivergedError{Iterations: iter}
		}
		damping = math.Min(damping*10, dampingCap)
		normal = bundle.Accumulate(providers, len(x), x)
	}

	return Result{Converged: false, Iterations: opts.MaxIterations, Residual: cost}, nil
}

func infNorm(v []float64) float64 {
	m := 0.0
	for _, e := range v {
		if a := math.Abs(e); a > m {
			m = a
		}
	}
	return m
}
