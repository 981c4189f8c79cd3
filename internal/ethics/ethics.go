// Package ethics defines the canonical action vocabulary, the selectable
// ethical modes, and the fixed per-mode base policy table.
package ethics

import (
	"strings"

	"github.com/dilasha-ghimire/EthicalAV/internal/scenario"
)

// Action is a canonical driving action label. The five values below are
// the complete output vocabulary of the decision core.
type Action string

// Mode selects which ethical policy drives the base decision.
type Mode string

const (
	ActionBrake       Action = "brake"
	ActionHoldLane    Action = "hold_lane"
	ActionSwerveLeft  Action = "swerve_left"
	ActionSwerveRight Action = "swerve_right"
	ActionSlowDown    Action = "slow_down"

	ModeUtilitarian   Mode = "utilitarian"
	ModeDeontological Mode = "deontological"
	ModeVirtue        Mode = "virtue"
)

// Modes returns all selectable modes in presentation order.
func Modes() []Mode {
	return []Mode{ModeUtilitarian, ModeDeontological, ModeVirtue}
}

// Actions returns the full canonical output vocabulary.
func Actions() []Action {
	return []Action{ActionBrake, ActionHoldLane, ActionSwerveLeft, ActionSwerveRight, ActionSlowDown}
}

// ParseMode resolves a raw mode selector. Matching is case-insensitive
// and prefix-based ("util...", "deon..."); anything else selects virtue.
func ParseMode(raw string) Mode {
	m := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(m, "util"):
		return ModeUtilitarian
	case strings.HasPrefix(m, "deon"):
		return ModeDeontological
	default:
		return ModeVirtue
	}
}

// NormalizeAction folds a raw action string into the canonical
// vocabulary. Legacy spellings map across ("straight" to hold_lane,
// "slow down" to slow_down); empty or unrecognized input defaults to
// brake. Normalizing an already canonical label is a no-op.
func NormalizeAction(raw string) Action {
	switch a := strings.ToLower(strings.TrimSpace(raw)); a {
	case "":
		return ActionBrake
	case "straight":
		return ActionHoldLane
	case "slow down":
		return ActionSlowDown
	case string(ActionBrake), string(ActionHoldLane), string(ActionSwerveLeft), string(ActionSwerveRight), string(ActionSlowDown):
		return Action(a)
	default:
		return ActionBrake
	}
}

// baseTable is the fixed per-mode policy, stored pre-normalized so
// refinement logic never sees a raw label.
var baseTable = map[Mode]map[scenario.Kind]Action{
	ModeUtilitarian: {
		scenario.KindCarVsPedestrian:        ActionSwerveLeft,
		scenario.KindCarVsCar:               ActionSwerveLeft,
		scenario.KindPedestrianVsPedestrian: ActionBrake,
		scenario.KindUnknown:                ActionHoldLane,
	},
	ModeDeontological: {
		scenario.KindCarVsPedestrian:        ActionBrake,
		scenario.KindCarVsCar:               ActionBrake,
		scenario.KindPedestrianVsPedestrian: ActionBrake,
		scenario.KindUnknown:                ActionHoldLane,
	},
	ModeVirtue: {
		scenario.KindCarVsPedestrian:        ActionSwerveLeft,
		scenario.KindCarVsCar:               ActionSlowDown,
		scenario.KindPedestrianVsPedestrian: ActionBrake,
		scenario.KindUnknown:                ActionHoldLane,
	},
}

// BaseDecision returns the unrefined table action for a mode and kind.
// Kinds outside the table fall back to the unknown row; modes outside
// the three known values use the virtue row.
func BaseDecision(mode Mode, kind scenario.Kind) Action {
	row, ok := baseTable[mode]
	if !ok {
		row = baseTable[ModeVirtue]
	}
	if a, ok := row[kind]; ok {
		return a
	}
	return row[scenario.KindUnknown]
}
