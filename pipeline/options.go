// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline implements the orchestrator (component J): the nine
// numbered steps and the Idle/Init/Stage1/Realign/Stage2/OutlierCheck/
// Rerun/Done/Failed state machine that drive camera initialization, point
// triangulation, scene alignment, the two-stage Levenberg-Marquardt solve,
// and outlier detection to a finished scene. It is the direct descendant
// of the teacher's fem.FEM.Run stage loop: where FEM iterates
// Sim.Stages and hands each to an FEsolver, Optimize iterates these nine
// fixed steps and hands the assembled system to lm.Run.
package pipeline

import "github.com/cpmech/bundleadj/initcam"

// IntrinsicsMode mirrors bundle.IntrinsicsPolicy at the options-table
// level (spec.md §6: `true|false|"auto"`).
type IntrinsicsMode int

const (
	IntrinsicsAuto IntrinsicsMode = iota
	IntrinsicsAlwaysFree
	IntrinsicsAlwaysFixed
)

// Options configures one Optimize call, matching the table of spec.md §6.
type Options struct {
	AutoInitializeCameras     bool
	AutoInitializeWorldPoints bool
	DetectOutliers            bool
	OutlierThreshold          float64
	Tolerance                 float64
	MaxIterations             int
	Damping                   float64
	OptimizeCameraIntrinsics  IntrinsicsMode
	MaxAttempts               int
	Verbose                   bool

	// EssentialMatrixBaseline is the nominal unit baseline two-view init
	// assumes before alignment corrects real scale (spec.md §9 open
	// question: "document the default but rely on alignment").
	EssentialMatrixBaseline float64
}

// DefaultOptions returns the zero-value-safe defaults named in spec.md §6.
func DefaultOptions() Options {
	return Options{
		AutoInitializeCameras:     true,
		AutoInitializeWorldPoints: true,
		DetectOutliers:            true,
		OutlierThreshold:          3.0,
		Tolerance:                 1e-6,
		MaxIterations:             100,
		Damping:                   1e-3,
		OptimizeCameraIntrinsics:  IntrinsicsAuto,
		MaxAttempts:               3,
		EssentialMatrixBaseline:   10.0,
	}
}

// State is the orchestrator's position in spec.md §4.J's state machine
// ({Idle, Init, Stage1, Realign, Stage2, OutlierCheck, Rerun, Done, Failed},
// Done/Failed terminal) at the moment Optimize returned.
type State int

const (
	StateIdle State = iota
	StateInit
	StateStage1
	StateRealign
	StateStage2
	StateOutlierCheck
	StateRerun
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateInit:
		return "Init"
	case StateStage1:
		return "Stage1"
	case StateRealign:
		return "Realign"
	case StateStage2:
		return "Stage2"
	case StateOutlierCheck:
		return "OutlierCheck"
	case StateRerun:
		return "Rerun"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Result is returned by Optimize, matching spec.md §4.J's result shape.
type Result struct {
	State                   State
	Converged               bool
	Iterations              int
	Residual                float64
	CamerasInitialized      []initcam.Outcome
	CamerasExcluded         []string
	Outliers                []FlaggedObservation
	MedianReprojectionError float64
	Log                     []LogLine
}

// FlaggedObservation is one outlier surfaced in Result.Outliers.
type FlaggedObservation struct {
	WorldPointID string
	ViewpointID  string
	Error        float64
}

// LogLine is one tagged diagnostic line, copied out of baulog.Logger at
// the end of the call so Result is self-contained.
type LogLine struct {
	Tag     string
	Message string
}
