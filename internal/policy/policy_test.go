package policy

import (
	"math"
	"testing"

	"github.com/dilasha-ghimire/EthicalAV/internal/ethics"
	"github.com/dilasha-ghimire/EthicalAV/internal/scenario"
)

func rec(kind scenario.Kind, child bool, left, right float64, speed int) scenario.Record {
	return scenario.New(kind, child, left, right, speed)
}

func TestAssessRisk(t *testing.T) {
	r := AssessRisk(rec(scenario.KindCarVsPedestrian, false, 0.3, 0.6, 30))
	if r.SpeedPenalty != 0.025 {
		t.Fatalf("penalty = %v, want 0.025", r.SpeedPenalty)
	}
	if r.LeftEffective != 0.3+0.025 || r.RightEffective != 0.6+0.025 {
		t.Fatalf("effective risks = %v/%v, want 0.325/0.625", r.LeftEffective, r.RightEffective)
	}
	if r.MaxEffective != r.RightEffective {
		t.Fatalf("max = %v, want right side %v", r.MaxEffective, r.RightEffective)
	}
	if r.TotalEffective != r.LeftEffective+r.RightEffective {
		t.Fatalf("total = %v, want sum", r.TotalEffective)
	}
	if r.DiffEffective != math.Abs(r.LeftEffective-r.RightEffective) {
		t.Fatalf("diff = %v, want abs gap", r.DiffEffective)
	}
}

func TestAssessRiskCapsAtOne(t *testing.T) {
	r := AssessRisk(rec(scenario.KindCarVsCar, false, 0.95, 1.0, 120))
	if r.SpeedPenalty != 0.10 {
		t.Fatalf("penalty at 120 kph = %v, want 0.10", r.SpeedPenalty)
	}
	if r.LeftEffective != 1.0 || r.RightEffective != 1.0 {
		t.Fatalf("effective risks = %v/%v, want both capped at 1.0", r.LeftEffective, r.RightEffective)
	}
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name string
		mode ethics.Mode
		rec  scenario.Record
		want ethics.Action
	}{
		// Moderate asymmetric risk at city speed, one case per mode.
		{
			name: "utilitarian swerves toward the safer side",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsPedestrian, false, 0.3, 0.6, 30),
			want: ethics.ActionSwerveLeft,
		},
		{
			name: "deontological holds lane on a clear gap",
			mode: ethics.ModeDeontological,
			rec:  rec(scenario.KindCarVsPedestrian, false, 0.3, 0.6, 30),
			want: ethics.ActionHoldLane,
		},
		{
			name: "virtue slows down on moderate risk",
			mode: ethics.ModeVirtue,
			rec:  rec(scenario.KindCarVsPedestrian, false, 0.3, 0.6, 30),
			want: ethics.ActionSlowDown,
		},

		// Universal brake beats child logic and mode logic.
		{
			name: "high speed forces a brake",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsCar, true, 0.8, 0.2, 50),
			want: ethics.ActionBrake,
		},
		{
			name: "speed threshold is inclusive",
			mode: ethics.ModeVirtue,
			rec:  rec(scenario.KindCarVsCar, false, 0.0, 0.0, 45),
			want: ethics.ActionBrake,
		},
		{
			name: "just under the speed threshold stays in lane",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsCar, false, 0.0, 0.0, 44),
			want: ethics.ActionHoldLane,
		},
		{
			name: "very high total risk forces a brake",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsPedestrian, false, 0.9, 0.6, 0),
			want: ethics.ActionBrake,
		},
		{
			// 0.8+0.6 rounds to exactly 1.4 in float64; 0.7+0.7 does not.
			name: "total risk threshold is inclusive",
			mode: ethics.ModeVirtue,
			rec:  rec(scenario.KindCarVsCar, false, 0.8, 0.6, 0),
			want: ethics.ActionBrake,
		},

		// Utilitarian branch.
		{
			name: "utilitarian holds lane when both sides are calm",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindPedestrianVsPedestrian, false, 0.1, 0.1, 10),
			want: ethics.ActionHoldLane,
		},
		{
			name: "utilitarian swerves right toward the safer side",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsPedestrian, false, 0.6, 0.3, 30),
			want: ethics.ActionSwerveRight,
		},
		{
			name: "utilitarian swerve gates run before the high side brake",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsPedestrian, false, 0.75, 0.0, 0),
			want: ethics.ActionSwerveRight,
		},
		{
			name: "utilitarian brakes on high risk with no meaningful gap",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsCar, false, 0.76, 0.63, 0),
			want: ethics.ActionBrake,
		},
		{
			name: "utilitarian falls back to the base action",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsCar, false, 0.5, 0.4, 0),
			want: ethics.ActionSwerveLeft,
		},
		{
			name: "utilitarian gap exactly at threshold is not enough to swerve",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsPedestrian, false, 0.0, 0.15, 0),
			want: ethics.ActionSwerveLeft, // falls through to base
		},

		// Deontological branch.
		{
			name: "deontological brakes on high side risk",
			mode: ethics.ModeDeontological,
			rec:  rec(scenario.KindCarVsPedestrian, false, 0.75, 0.0, 0),
			want: ethics.ActionBrake,
		},
		{
			name: "deontological always brakes for a child",
			mode: ethics.ModeDeontological,
			rec:  rec(scenario.KindCarVsCar, true, 0.2, 0.3, 10),
			want: ethics.ActionBrake,
		},
		{
			name: "deontological holds lane on a meaningful gap",
			mode: ethics.ModeDeontological,
			rec:  rec(scenario.KindCarVsCar, false, 0.0, 0.15, 0),
			want: ethics.ActionHoldLane,
		},
		{
			name: "deontological ambiguous case keeps the braking base",
			mode: ethics.ModeDeontological,
			rec:  rec(scenario.KindCarVsCar, false, 0.5, 0.5, 0),
			want: ethics.ActionBrake,
		},
		{
			name: "deontological ambiguous case holds lane on unknown scenarios",
			mode: ethics.ModeDeontological,
			rec:  rec(scenario.KindUnknown, false, 0.5, 0.5, 0),
			want: ethics.ActionHoldLane,
		},

		// Virtue branch.
		{
			name: "virtue slows down for a child",
			mode: ethics.ModeVirtue,
			rec:  rec(scenario.KindCarVsCar, true, 0.1, 0.1, 0),
			want: ethics.ActionSlowDown,
		},
		{
			name: "virtue caution threshold is inclusive",
			mode: ethics.ModeVirtue,
			rec:  rec(scenario.KindCarVsCar, false, 0.4, 0.1, 0),
			want: ethics.ActionSlowDown,
		},
		{
			name: "virtue swerves left toward the calmer side",
			mode: ethics.ModeVirtue,
			rec:  rec(scenario.KindCarVsCar, false, 0.1, 0.35, 0),
			want: ethics.ActionSwerveLeft,
		},
		{
			name: "virtue swerves right toward the calmer side",
			mode: ethics.ModeVirtue,
			rec:  rec(scenario.KindCarVsCar, false, 0.35, 0.1, 0),
			want: ethics.ActionSwerveRight,
		},
		{
			name: "virtue holds lane when nothing stands out",
			mode: ethics.ModeVirtue,
			rec:  rec(scenario.KindCarVsCar, false, 0.1, 0.2, 0),
			want: ethics.ActionHoldLane,
		},

		// Child veto feeding the refinement base.
		{
			name: "child veto turns a swerve toward danger into a brake",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsPedestrian, true, 0.5, 0.4, 0),
			want: ethics.ActionBrake,
		},
		{
			name: "same risks without a child keep the base swerve",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindCarVsPedestrian, false, 0.5, 0.4, 0),
			want: ethics.ActionSwerveLeft,
		},

		// Unknown inputs stay total.
		{
			name: "unknown scenario holds lane when calm",
			mode: ethics.ModeUtilitarian,
			rec:  rec(scenario.KindUnknown, false, 0.0, 0.0, 0),
			want: ethics.ActionHoldLane,
		},
		{
			name: "unrecognized mode takes the virtue branch",
			mode: ethics.Mode("egoist"),
			rec:  rec(scenario.KindCarVsCar, false, 0.5, 0.5, 0),
			want: ethics.ActionSlowDown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.mode, tc.rec); got != tc.want {
				t.Fatalf("Decide(%q, %+v) = %q, want %q", tc.mode, tc.rec, got, tc.want)
			}
		})
	}
}

func TestExplainTrace(t *testing.T) {
	t.Run("universal brake short-circuits", func(t *testing.T) {
		out := Explain(ethics.ModeUtilitarian, rec(scenario.KindCarVsCar, true, 0.8, 0.2, 50))
		if out.Final != ethics.ActionBrake {
			t.Fatalf("final = %q, want brake", out.Final)
		}
		if len(out.Overrides) != 1 || out.Overrides[0] != OverrideUniversalBrake {
			t.Fatalf("overrides = %v, want only the universal brake", out.Overrides)
		}
		if out.Base != ethics.ActionSwerveLeft {
			t.Fatalf("base = %q, want the untouched table action", out.Base)
		}
	})

	t.Run("child veto is recorded and base preserved", func(t *testing.T) {
		out := Explain(ethics.ModeUtilitarian, rec(scenario.KindCarVsPedestrian, true, 0.5, 0.4, 0))
		if out.Final != ethics.ActionBrake {
			t.Fatalf("final = %q, want brake", out.Final)
		}
		if len(out.Overrides) != 1 || out.Overrides[0] != OverrideChildVeto {
			t.Fatalf("overrides = %v, want only the child veto", out.Overrides)
		}
		if out.Base != ethics.ActionSwerveLeft {
			t.Fatalf("base = %q, want the pre-veto table action", out.Base)
		}
	})

	t.Run("clean decision has no overrides", func(t *testing.T) {
		out := Explain(ethics.ModeVirtue, rec(scenario.KindCarVsCar, false, 0.1, 0.2, 0))
		if len(out.Overrides) != 0 {
			t.Fatalf("overrides = %v, want none", out.Overrides)
		}
		if out.Final != ethics.ActionHoldLane {
			t.Fatalf("final = %q, want hold_lane", out.Final)
		}
	})

	t.Run("decide matches explain", func(t *testing.T) {
		r := rec(scenario.KindCarVsPedestrian, false, 0.3, 0.6, 30)
		for _, mode := range ethics.Modes() {
			if Decide(mode, r) != Explain(mode, r).Final {
				t.Fatalf("Decide and Explain disagree for mode %q", mode)
			}
		}
	})
}
