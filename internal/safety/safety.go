// Package safety runs pre-apply checks against a proposed audio operation —
// clipping, phase, loudness, and duration — before it is committed to a
// project, optionally attaching automatic mitigations.
package safety

import (
	"fmt"

	"github.com/nuevaaudio/nueva-engine/internal/nconf"
)

// Analysis is the pre-operation measurement a safety check reasons about.
type Analysis struct {
	PeakDB            float64
	IntegratedLUFS    float64
	StereoCorrelation float64
	NoiseFloorDB      float64
	DurationSeconds   float64
}

// IssueKind enumerates the problems a safety check can surface.
type IssueKind string

const (
	IssueClipping           IssueKind = "clipping"
	IssuePhaseCorrelation   IssueKind = "phase_correlation"
	IssueExcessiveLoudness  IssueKind = "excessive_loudness"
	IssueDurationMismatch   IssueKind = "duration_mismatch"
)

// Issue is one problem found by a check, with a human-readable detail.
type Issue struct {
	Kind    IssueKind
	Message string
}

// MitigationKind enumerates automatic fixes a check can apply.
type MitigationKind string

const (
	MitigationAutoLimiter MitigationKind = "auto_limiter"
)

// Mitigation records an automatic fix applied on the caller's behalf.
type Mitigation struct {
	Kind      MitigationKind
	CeilingDB float64
}

// Result is the outcome of a safety check: what was found, what was fixed,
// and whether the operation remains safe to proceed with.
type Result struct {
	Issues      []Issue
	Mitigations []Mitigation
	Warnings    []string
	Safe        bool
}

func (r *Result) addIssue(kind IssueKind, msg string) {
	r.Issues = append(r.Issues, Issue{Kind: kind, Message: msg})
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// CheckGain evaluates a proposed gain change of deltaDB against the
// current peak level. If the result would clip and autoMitigate is set,
// an AutoLimiter mitigation at -1 dB ceiling is attached and the operation
// remains safe; otherwise clipping marks it unsafe. Near-clipping (within
// 1 dB of 0 dBFS) is warned regardless.
func CheckGain(a Analysis, deltaDB float64, autoMitigate bool) Result {
	cfg := nconf.Get().Safety
	r := Result{Safe: true}
	projected := a.PeakDB + deltaDB

	if projected >= cfg.ClippingCeilingDB {
		r.addIssue(IssueClipping, fmt.Sprintf("projected peak %.2f dBFS clips", projected))
		if autoMitigate {
			r.Mitigations = append(r.Mitigations, Mitigation{Kind: MitigationAutoLimiter, CeilingDB: -1})
		} else {
			r.Safe = false
		}
	}
	if projected > cfg.ClippingCeilingDB-cfg.NearClippingMarginDB {
		r.warn(fmt.Sprintf("projected peak %.2f dBFS is near-clipping", projected))
	}
	return r
}

// CheckPhase flags poor stereo correlation against the configured unsafe
// and warning thresholds.
func CheckPhase(a Analysis) Result {
	cfg := nconf.Get().Safety
	r := Result{Safe: true}
	switch {
	case a.StereoCorrelation < cfg.PhaseUnsafeBelow:
		r.addIssue(IssuePhaseCorrelation, fmt.Sprintf("stereo correlation %.2f indicates phase cancellation risk", a.StereoCorrelation))
		r.Safe = false
	case a.StereoCorrelation < cfg.PhaseWarnBelow:
		r.warn(fmt.Sprintf("stereo correlation %.2f is borderline", a.StereoCorrelation))
	}
	return r
}

// CheckLoudness flags predicted loudness above the configured threshold as
// an issue, but never marks the operation unsafe on its own.
func CheckLoudness(a Analysis) Result {
	cfg := nconf.Get().Safety
	r := Result{Safe: true}
	if a.IntegratedLUFS > cfg.LoudnessWarnLUFS {
		r.addIssue(IssueExcessiveLoudness, fmt.Sprintf("predicted loudness %.2f LUFS exceeds %.2f LUFS", a.IntegratedLUFS, cfg.LoudnessWarnLUFS))
		r.warn("consider reducing gain or adding a limiter")
	}
	return r
}

// CheckDuration flags a rendered duration diverging from the original by
// more than the configured tolerance, without affecting safety on its own.
func CheckDuration(originalSeconds, newSeconds float64) Result {
	tolerance := nconf.Get().Safety.DurationToleranceSecs
	r := Result{Safe: true}
	if diff := newSeconds - originalSeconds; diff > tolerance || diff < -tolerance {
		r.addIssue(IssueDurationMismatch, fmt.Sprintf("duration changed from %.3fs to %.3fs", originalSeconds, newSeconds))
	}
	return r
}

// Recommend derives actionable suggestions from a completed analysis:
// clipping suggests declipping, loud/quiet material suggests a gain
// adjustment, a high noise floor suggests denoising, poor phase
// correlation suggests cautious widening, and a DC offset suggests a
// high-pass filter.
func Recommend(a Analysis, dcOffset float64) []string {
	var recs []string
	if a.PeakDB >= -0.1 {
		recs = append(recs, "declip: the source already touches 0 dBFS")
	}
	if a.IntegratedLUFS > -8 {
		recs = append(recs, "reduce gain: material is louder than typical streaming targets")
	} else if a.IntegratedLUFS < -23 {
		recs = append(recs, "increase gain: material is quieter than typical streaming targets")
	}
	if a.NoiseFloorDB > -50 {
		recs = append(recs, "denoise: noise floor is audible")
	}
	if a.StereoCorrelation < 0.3 {
		recs = append(recs, "widen cautiously: stereo correlation is already low")
	}
	if dcOffset > 0.01 || dcOffset < -0.01 {
		recs = append(recs, "apply a high-pass filter: DC offset detected")
	}
	return recs
}
