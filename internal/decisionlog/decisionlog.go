// Package decisionlog turns decision traces into durable events and
// fans them out to the configured sinks off the request path.
package decisionlog

import (
	"time"

	"github.com/google/uuid"

	"github.com/dilasha-ghimire/EthicalAV/internal/ethics"
	"github.com/dilasha-ghimire/EthicalAV/internal/policy"
	"github.com/dilasha-ghimire/EthicalAV/internal/scenario"
)

const eventVersion = "1"

// Well-known event sources.
const (
	SourceHTTP  = "http"
	SourceCLI   = "cli"
	SourceSweep = "sweep"
)

// Event is the canonical decision record delivered to sinks.
type Event struct {
	Version   string             `json:"version"`
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Source    string             `json:"source,omitempty"`
	Scenario  scenario.Record    `json:"scenario"`
	Mode      ethics.Mode        `json:"mode"`
	Base      ethics.Action      `json:"base"`
	Decision  ethics.Action      `json:"decision"`
	Overrides []policy.Override  `json:"overrides,omitempty"`
	Risk      policy.RiskProfile `json:"risk"`
	LatencyMs float64            `json:"latency_ms"`
}

// NewEvent assembles a delivery-ready event from one decision trace.
func NewEvent(source string, rec scenario.Record, out policy.Outcome, latency time.Duration) *Event {
	return &Event{
		Version:   eventVersion,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Scenario:  rec,
		Mode:      out.Mode,
		Base:      out.Base,
		Decision:  out.Final,
		Overrides: out.Overrides,
		Risk:      out.Risk,
		LatencyMs: durationMillis(latency),
	}
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
