// Package scenario defines the dilemma input record and the defensive
// coercion applied to raw field values before any decision logic runs.
package scenario

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the hazard geometry of a dilemma scenario.
type Kind string

const (
	KindCarVsPedestrian        Kind = "car_vs_pedestrian"
	KindCarVsCar               Kind = "car_vs_car"
	KindPedestrianVsPedestrian Kind = "pedestrian_vs_pedestrian"
	KindUnknown                Kind = "unknown"
)

// Kinds returns the known scenario kinds, excluding the unknown fallback.
func Kinds() []Kind {
	return []Kind{KindCarVsPedestrian, KindCarVsCar, KindPedestrianVsPedestrian}
}

// ParseKind maps a scenario name onto a Kind. Matching is exact; any
// other string parses as KindUnknown.
func ParseKind(raw string) Kind {
	switch k := Kind(raw); k {
	case KindCarVsPedestrian, KindCarVsCar, KindPedestrianVsPedestrian:
		return k
	default:
		return KindUnknown
	}
}

// Record is one dilemma situation after input coercion. Risks always sit
// inside [0,1] and speed is a non-negative integer, so downstream logic
// never has to re-validate.
type Record struct {
	Kind         Kind    `json:"kind"`
	ChildPresent bool    `json:"child_present"`
	LeftRisk     float64 `json:"left_risk"`
	RightRisk    float64 `json:"right_risk"`
	SpeedKph     int     `json:"speed_kph"`
}

// New builds a Record from typed values, clamping risks into [0,1] and
// flooring negative speeds at zero.
func New(kind Kind, childPresent bool, leftRisk, rightRisk float64, speedKph int) Record {
	if speedKph < 0 {
		speedKph = 0
	}
	return Record{
		Kind:         kind,
		ChildPresent: childPresent,
		LeftRisk:     ClampRisk(leftRisk),
		RightRisk:    ClampRisk(rightRisk),
		SpeedKph:     speedKph,
	}
}

// FromRaw builds a Record from loosely typed values as decoded from JSON
// or CSV. Every field degrades to its documented default instead of
// failing: unrecognized names parse as KindUnknown, malformed risks
// become 0.0, malformed child flags become false, malformed speeds
// become 0.
func FromRaw(name, childPresent, leftRisk, rightRisk, speedKph any) Record {
	kindName, _ := name.(string)
	return Record{
		Kind:         ParseKind(kindName),
		ChildPresent: CoerceChild(childPresent),
		LeftRisk:     CoerceRisk(leftRisk),
		RightRisk:    CoerceRisk(rightRisk),
		SpeedKph:     CoerceSpeed(speedKph),
	}
}

// ClampRisk forces a risk value into [0,1]. NaN counts as malformed and
// becomes 0.
func ClampRisk(v float64) float64 {
	if math.IsNaN(v) {
		return 0.0
	}
	return math.Min(math.Max(v, 0.0), 1.0)
}

// CoerceRisk converts an arbitrary decoded value into a risk in [0,1].
func CoerceRisk(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0.0
	case float64:
		return ClampRisk(val)
	case float32:
		return ClampRisk(float64(val))
	case int:
		return ClampRisk(float64(val))
	case int64:
		return ClampRisk(float64(val))
	case bool:
		if val {
			return 1.0
		}
		return 0.0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0.0
		}
		return ClampRisk(f)
	default:
		return 0.0
	}
}

// CoerceChild converts an arbitrary decoded value into the child flag.
// The wire format is 0/1; any non-zero number counts as present.
func CoerceChild(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return !math.IsNaN(val) && val != 0
	case float32:
		return !math.IsNaN(float64(val)) && val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if s == "" {
			return false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0
		}
		return s == "true" || s == "yes"
	default:
		return false
	}
}

// CoerceSpeed converts an arbitrary decoded value into a non-negative
// speed in kph, truncating fractional values.
func CoerceSpeed(v any) int {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return truncateSpeed(val)
	case float32:
		return truncateSpeed(float64(val))
	case int:
		if val < 0 {
			return 0
		}
		return val
	case int64:
		if val < 0 {
			return 0
		}
		return int(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return truncateSpeed(f)
	default:
		return 0
	}
}

func truncateSpeed(f float64) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
