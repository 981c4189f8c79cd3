// Package policy implements the layered safety refinement that turns a
// base table action into the final driving decision.
package policy

import (
	"math"

	"github.com/dilasha-ghimire/EthicalAV/internal/ethics"
	"github.com/dilasha-ghimire/EthicalAV/internal/scenario"
)

// Fixed policy thresholds for the refinement pipeline.
const (
	HighSpeedKph       = 45   // at or above, always brake
	VeryHighTotalRisk  = 1.40 // combined effective risk that forces a brake
	HighSideRisk       = 0.75 // single side risk considered too high
	ModerateSideRisk   = 0.40 // virtue mode slows down from here
	LowSideRisk        = 0.30 // below this both sides count as safe
	CautiousSwerveCap  = 0.50 // virtue mode refuses to swerve above this
	MeaningfulRiskDiff = 0.15 // smallest left/right gap worth acting on

	speedPenaltyScale  = 120.0
	speedPenaltyWeight = 0.10
)

// RiskProfile carries the effective risk figures derived from one record.
type RiskProfile struct {
	SpeedPenalty   float64 `json:"speed_penalty"`
	LeftEffective  float64 `json:"left_effective"`
	RightEffective float64 `json:"right_effective"`
	TotalEffective float64 `json:"total_effective"`
	MaxEffective   float64 `json:"max_effective"`
	DiffEffective  float64 `json:"diff_effective"`
}

// AssessRisk inflates both side risks with a speed-proportional penalty,
// capping each side at 1.0. Higher speed raises perceived hazard on both
// sides uniformly without changing which side is riskier.
func AssessRisk(rec scenario.Record) RiskProfile {
	penalty := float64(rec.SpeedKph) / speedPenaltyScale * speedPenaltyWeight
	left := math.Min(1.0, rec.LeftRisk+penalty)
	right := math.Min(1.0, rec.RightRisk+penalty)
	return RiskProfile{
		SpeedPenalty:   penalty,
		LeftEffective:  left,
		RightEffective: right,
		TotalEffective: left + right,
		MaxEffective:   math.Max(left, right),
		DiffEffective:  math.Abs(left - right),
	}
}

// Override identifies a safety rule that changed the course of a decision.
type Override string

const (
	// OverrideUniversalBrake fires when total effective risk or raw speed
	// leaves braking as the only defensible action, in every mode.
	OverrideUniversalBrake Override = "universal_brake"
	// OverrideChildVeto fires when a child is present and the base action
	// would swerve toward the riskier side.
	OverrideChildVeto Override = "child_veto"
)

// Outcome is the full trace of one decision. Base is the table action
// before any child veto; Overrides lists the safety rules that fired, in
// firing order.
type Outcome struct {
	Kind      scenario.Kind `json:"kind"`
	Mode      ethics.Mode   `json:"mode"`
	Base      ethics.Action `json:"base"`
	Final     ethics.Action `json:"final"`
	Risk      RiskProfile   `json:"risk"`
	Overrides []Override    `json:"overrides,omitempty"`
}

// Decide returns the final action for a scenario under the given mode.
// It is a pure function of its inputs and safe for unrestricted
// concurrent use.
func Decide(mode ethics.Mode, rec scenario.Record) ethics.Action {
	return Explain(mode, rec).Final
}

// Explain runs the same pipeline as Decide and returns the full trace.
// The stages run in a fixed order: effective risk, universal brake,
// child veto, then mode refinement. The order is load-bearing; the
// universal brake must win over everything, and the child veto must
// mutate the base action before mode refinement reads it.
func Explain(mode ethics.Mode, rec scenario.Record) Outcome {
	out := Outcome{
		Kind: rec.Kind,
		Mode: mode,
		Base: ethics.BaseDecision(mode, rec.Kind),
		Risk: AssessRisk(rec),
	}

	if out.Risk.TotalEffective >= VeryHighTotalRisk || rec.SpeedKph >= HighSpeedKph {
		out.Overrides = append(out.Overrides, OverrideUniversalBrake)
		out.Final = ethics.ActionBrake
		return out
	}

	base := out.Base
	if rec.ChildPresent {
		if out.Risk.LeftEffective > out.Risk.RightEffective && base == ethics.ActionSwerveLeft {
			base = ethics.ActionBrake
			out.Overrides = append(out.Overrides, OverrideChildVeto)
		}
		if out.Risk.RightEffective > out.Risk.LeftEffective && base == ethics.ActionSwerveRight {
			base = ethics.ActionBrake
			out.Overrides = append(out.Overrides, OverrideChildVeto)
		}
	}

	out.Final = refine(mode, base, rec, out.Risk)
	return out
}

// refine applies the mode-specific tie-breaking rules. Any mode outside
// the three known values takes the virtue branch, matching ParseMode's
// fallback.
func refine(mode ethics.Mode, base ethics.Action, rec scenario.Record, risk RiskProfile) ethics.Action {
	switch mode {
	case ethics.ModeUtilitarian:
		if risk.MaxEffective < LowSideRisk && risk.DiffEffective < MeaningfulRiskDiff {
			return ethics.ActionHoldLane
		}
		if risk.LeftEffective < risk.RightEffective-MeaningfulRiskDiff {
			return ethics.ActionSwerveLeft
		}
		if risk.RightEffective < risk.LeftEffective-MeaningfulRiskDiff {
			return ethics.ActionSwerveRight
		}
		if risk.MaxEffective >= HighSideRisk {
			return ethics.ActionBrake
		}
		return base
	case ethics.ModeDeontological:
		if risk.MaxEffective >= HighSideRisk {
			return ethics.ActionBrake
		}
		if rec.ChildPresent {
			return ethics.ActionBrake
		}
		if risk.DiffEffective >= MeaningfulRiskDiff && risk.MaxEffective < HighSideRisk {
			return ethics.ActionHoldLane
		}
		// Ambiguous case: keep a braking base, hold the lane otherwise.
		if base == ethics.ActionBrake {
			return ethics.ActionBrake
		}
		return ethics.ActionHoldLane
	default:
		if rec.ChildPresent || risk.MaxEffective >= ModerateSideRisk {
			return ethics.ActionSlowDown
		}
		if risk.DiffEffective >= MeaningfulRiskDiff && risk.MaxEffective < CautiousSwerveCap {
			if risk.LeftEffective < risk.RightEffective {
				return ethics.ActionSwerveLeft
			}
			return ethics.ActionSwerveRight
		}
		return ethics.ActionHoldLane
	}
}
