// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"math"

	"github.com/cpmech/bundleadj/align"
	"github.com/cpmech/bundleadj/baulog"
	"github.com/cpmech/bundleadj/bundle"
	"github.com/cpmech/bundleadj/initcam"
	"github.com/cpmech/bundleadj/lm"
	"github.com/cpmech/bundleadj/outlier"
	"github.com/cpmech/bundleadj/scene"
	"github.com/cpmech/bundleadj/triangulate"
	"github.com/cpmech/gosl/chk"
)

// Optimize runs one full bundle-adjustment pass over proj: reset, camera
// init, triangulation, alignment, a two-stage solve, and outlier
// detection (spec.md §4.J). Two Optimize calls on disjoint Projects may
// run concurrently; concurrent calls on the same Project must be
// serialized by the caller (spec.md §5).
func Optimize(proj scene.Project, opts Options) (Result, error) {
	if proj == nil {
		chk.Panic("pipeline.Optimize requires a non-nil scene.Project")
	}

	logger := baulog.New(opts.Verbose)
	st := StateInit
	logger.Logf("Init", "starting optimize pass")

	resetCachedState(proj, opts.AutoInitializeCameras)
	proj.PropagateInferences()

	var camOutcomes []initcam.Outcome
	usedEssential := false
	if opts.AutoInitializeCameras {
		initcam.SanitizeIntrinsics(proj)
		camOutcomes = initcam.Initialize(proj, opts.EssentialMatrixBaseline)
		for _, o := range camOutcomes {
			if o.Initialized && o.Method == "essential-matrix" {
				usedEssential = true
			}
			if !o.Initialized {
				logger.Logf("WARN", "camera %s failed to initialize (%s): %s", o.ViewpointID, o.Method, o.Reason)
			}
		}
	}
	markPosedCameras(proj)

	if opts.AutoInitializeWorldPoints {
		triangulateAndAlign(proj, usedEssential, logger)
	}

	if opts.AutoInitializeCameras {
		lateOutcomes := initcam.LatePnP(proj)
		camOutcomes = append(camOutcomes, lateOutcomes...)
		for _, o := range lateOutcomes {
			if !o.Initialized {
				logger.Logf("WARN", "late PnP failed for camera %s: %s", o.ViewpointID, o.Reason)
			}
		}
		markPosedCameras(proj)
	}

	if opts.AutoInitializeCameras && !anyCameraPosed(proj) {
		st = StateFailed
		return Result{State: st, Log: exportLog(logger)}, &PreconditionFailedError{
			Reason: "no camera could be initialized: fewer than 2 distinct axis vanishing lines, fewer than 3 locked points observed for PnP, and fewer than 7 shared observations for essential-matrix initialization",
		}
	}

	policy := intrinsicsPolicy(opts.OptimizeCameraIntrinsics)
	lmOpts := lm.Options{MaxIterations: opts.MaxIterations, Tolerance: opts.Tolerance, InitialDamping: opts.Damping, MaxRejects: 10}

	st = StateStage1
	logger.Logf("Stage1", "solving multi-view system")
	lookup := scene.BuildLookup(proj)
	stage1 := newStage1Project(proj, lookup)
	layout1 := bundle.NewLayout(stage1, policy)
	providers1 := bundle.BuildProviders(layout1, stage1)
	lmResult, err := lm.Run(providers1, layout1.X, lmOpts)
	if err != nil {
		st = StateFailed
		logger.Logf("WARN", "stage-1 solve failed: %v", err)
		return Result{State: st, Log: exportLog(logger)}, err
	}
	writeBackPoses(layout1, layout1.X, stage1)

	st = StateRealign
	triangulateAndAlign(proj, usedEssential, logger)

	st = StateStage2
	logger.Logf("Solve", "solving full system")
	layout2 := bundle.NewLayout(proj, policy)
	providers2 := bundle.BuildProviders(layout2, proj)
	lmResult, err = lm.Run(providers2, layout2.X, lmOpts)
	if err != nil {
		st = StateFailed
		logger.Logf("WARN", "full solve failed: %v", err)
		return Result{State: st, Log: exportLog(logger)}, err
	}
	writeBackPoses(layout2, layout2.X, proj)
	writeBackResiduals(layout2, layout2.X, proj)

	var outlierResult outlier.Result
	var excluded []string
	if opts.DetectOutliers {
		st = StateOutlierCheck
		lateIDs := lateCameraIDs(camOutcomes)
		attempts := 0
		for {
			outlierResult = outlier.Detect(proj, opts.OutlierThreshold)
			logger.Logf("Outliers", "%d observation(s) flagged (median=%.2fpx threshold=%.2fpx)", len(outlierResult.Outliers), outlierResult.Median, outlierResult.Threshold)
			var toExclude []string
			for _, cam := range outlier.FullyOutlierCameras(proj) {
				if lateIDs[cam] && !alreadyExcluded(excluded, cam) {
					toExclude = append(toExclude, cam)
				}
			}
			if len(toExclude) == 0 || attempts >= opts.MaxAttempts {
				break
			}
			attempts++
			st = StateRerun
			logger.Logf("Rerun", "excluding cameras %v (100%% outlier observations from late PnP) and re-solving", toExclude)
			excludeCameras(proj, toExclude)
			excluded = append(excluded, toExclude...)

			layoutR := bundle.NewLayout(proj, policy)
			providersR := bundle.BuildProviders(layoutR, proj)
			lmResult, err = lm.Run(providersR, layoutR.X, lmOpts)
			if err != nil {
				st = StateFailed
				logger.Logf("WARN", "re-solve after cascade exclusion failed: %v", err)
				return Result{State: st, Log: exportLog(logger)}, err
			}
			writeBackPoses(layoutR, layoutR.X, proj)
			writeBackResiduals(layoutR, layoutR.X, proj)
		}
	}

	st = StateDone
	logger.Logf("Done", "optimize pass finished (state=%s)", st)

	outliers := make([]FlaggedObservation, 0, len(outlierResult.Outliers))
	for _, o := range outlierResult.Outliers {
		outliers = append(outliers, FlaggedObservation{WorldPointID: o.WorldPointID, ViewpointID: o.ViewpointID, Error: o.Error})
	}

	return Result{
		State:                   st,
		Converged:               lmResult.Converged,
		Iterations:              lmResult.Iterations,
		Residual:                lmResult.Residual,
		CamerasInitialized:      camOutcomes,
		CamerasExcluded:         excluded,
		Outliers:                outliers,
		MedianReprojectionError: medianReprojectionError(proj, outlierResult),
		Log:                     exportLog(logger),
	}, nil
}

func exportLog(logger *baulog.Logger) []LogLine {
	lines := logger.Lines()
	out := make([]LogLine, len(lines))
	for i, l := range lines {
		out[i] = LogLine{Tag: l.Tag, Message: l.Message}
	}
	return out
}

func intrinsicsPolicy(m IntrinsicsMode) bundle.IntrinsicsPolicy {
	switch m {
	case IntrinsicsAlwaysFree:
		return bundle.IntrinsicsFree
	case IntrinsicsAlwaysFixed:
		return bundle.IntrinsicsFixed
	default:
		return bundle.IntrinsicsAuto
	}
}

// resetCachedState clears the per-call-derived fields spec.md §4.J step 2
// names; clearCameraState additionally resets pose/Initialized/
// optimizedXyz so a re-run doesn't inherit a previous pass's geometry.
func resetCachedState(proj scene.Project, clearCameraState bool) {
	for _, p := range proj.WorldPoints() {
		p.InferredXYZ = [3]*float64{}
		if clearCameraState {
			p.OptimizedXYZ = nil
		}
	}
	for _, ip := range proj.ImagePoints() {
		ip.LastResidualU, ip.LastResidualV = 0, 0
		ip.IsOutlier = false
	}
	if clearCameraState {
		for _, v := range proj.Viewpoints() {
			v.EnabledInSolve = false
			if v.IsPoseLocked {
				continue
			}
			v.Pose = scene.Pose{}
			v.Initialized = false
		}
	}
}

// markPosedCameras flags every camera with a usable pose (locked or
// initialized) as eligible for the solve; bundle.BuildProviders skips the
// observations of every camera left false, which is how a failed
// initializer's image points are "dropped from the solve" per spec.md §4.F.
func markPosedCameras(proj scene.Project) {
	for _, v := range proj.Viewpoints() {
		if v.IsPoseLocked || v.Initialized {
			v.EnabledInSolve = true
		}
	}
}

func anyCameraPosed(proj scene.Project) bool {
	for _, v := range proj.Viewpoints() {
		if v.IsPoseLocked || v.Initialized {
			return true
		}
	}
	return false
}

// triangulateAndAlign runs §4.G point initialization followed by §4.H
// scene alignment: axis alignment whenever axis-constrained lines exist,
// then — only when essential-matrix initialization left no axis
// constraint to fix rotation — the "free solve then align" similarity
// path of spec.md §4.J step 5's closing sentence.
func triangulateAndAlign(proj scene.Project, usedEssential bool, logger *baulog.Logger) {
	outcomes := triangulate.InitializePoints(proj)
	for _, o := range outcomes {
		if !o.Initialized {
			logger.Logf("WARN", "world point %s could not be initialized: %s", o.PointID, o.Reason)
		}
	}

	if ok, _ := align.AlignToAxes(proj); ok {
		logger.Logf("Scale", "rotated scene to bring axis-constrained lines onto their nominal world axes")
	}

	if !usedEssential || hasAxisConstraint(proj) {
		return
	}
	if !similarityAlignEssentialGauge(proj, logger) {
		logger.Logf("WARN", "essential-matrix reconstruction has no locked points and no axis constraints; world-axis interpretation is undefined")
	}
}

func hasAxisConstraint(proj scene.Project) bool {
	for _, ln := range proj.Lines() {
		if ln.Direction != scene.DirFree {
			return true
		}
	}
	return false
}

// similarityAlignEssentialGauge runs a preliminary solve with every lock
// released, then anchors the result to the real locked targets via Horn's
// method, the "free solve then align" path spec.md §4.J step 5 names for
// essential-matrix reconstructions with nothing else to fix the gauge.
func similarityAlignEssentialGauge(proj scene.Project, logger *baulog.Logger) bool {
	lockedCount := 0
	for _, p := range proj.WorldPoints() {
		if p.FullyConstrained() {
			lockedCount++
		}
	}
	if lockedCount == 0 {
		return false
	}

	free := newFreeProject(proj)
	layout := bundle.NewLayout(free, bundle.IntrinsicsAuto)
	providers := bundle.BuildProviders(layout, free)
	if _, err := lm.Run(providers, layout.X, lm.DefaultOptions()); err != nil {
		logger.Logf("WARN", "preliminary free solve for gauge alignment failed: %v", err)
		return false
	}

	var corr []align.Correspondence
	for _, p := range proj.WorldPoints() {
		if !p.FullyConstrained() {
			continue
		}
		target, _ := p.EffectiveVec3()
		corr = append(corr, align.Correspondence{
			PointID:         p.ID,
			CurrentPosition: bundle.PointPosition(layout, layout.X, p.ID),
			TargetPosition:  target,
		})
	}

	writeBackPoses(layout, layout.X, free)
	ok, reason := align.AlignSimilarity(proj, corr)
	if ok {
		logger.Logf("Scale", "aligned essential-matrix reconstruction to %d locked point(s) via similarity fit", lockedCount)
	} else {
		logger.Logf("WARN", "similarity alignment failed: %s", reason)
	}
	return ok
}

func lateCameraIDs(outcomes []initcam.Outcome) map[string]bool {
	out := map[string]bool{}
	for _, o := range outcomes {
		if o.Method == "late-pnp" {
			out[o.ViewpointID] = true
		}
	}
	return out
}

func alreadyExcluded(excluded []string, id string) bool {
	for _, e := range excluded {
		if e == id {
			return true
		}
	}
	return false
}

// excludeCameras drops a set of cameras from the solve (spec.md §4.I
// cascade policy) by clearing EnabledInSolve; their observations are then
// skipped by bundle.BuildProviders exactly as an initialization failure's
// would be.
func excludeCameras(proj scene.Project, ids []string) {
	set := map[string]bool{}
	for _, id := range ids {
		set[id] = true
	}
	for _, v := range proj.Viewpoints() {
		if set[v.ID] {
			v.EnabledInSolve = false
		}
	}
}

func medianReprojectionError(proj scene.Project, r outlier.Result) float64 {
	if r.Median > 0 {
		return r.Median
	}
	var errs []float64
	for _, ip := range proj.ImagePoints() {
		errs = append(errs, math.Hypot(ip.LastResidualU, ip.LastResidualV))
	}
	if len(errs) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range errs {
		sum += e
	}
	return sum / float64(len(errs))
}
