package decisionlog

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dilasha-ghimire/EthicalAV/internal/config"
)

// BuildSinks constructs the sinks named by the config, in order.
func BuildSinks(cfg config.DecisionLogConfig) ([]Sink, error) {
	sinks := make([]Sink, 0, len(cfg.Sinks))
	for i, sc := range cfg.Sinks {
		switch strings.ToLower(strings.TrimSpace(sc.Type)) {
		case "file_jsonl":
			s, err := NewFileSink(sc.Path)
			if err != nil {
				return nil, fmt.Errorf("sink %d (file_jsonl): %w", i, err)
			}
			sinks = append(sinks, s)
		case "file_csv":
			s, err := NewCSVSink(sc.Path)
			if err != nil {
				return nil, fmt.Errorf("sink %d (file_csv): %w", i, err)
			}
			sinks = append(sinks, s)
		case "webhook":
			s, err := NewWebhookSink(sc.URL, sc.Headers, time.Duration(sc.TimeoutMs)*time.Millisecond)
			if err != nil {
				return nil, fmt.Errorf("sink %d (webhook): %w", i, err)
			}
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("sink %d has unknown type %q", i, sc.Type)
		}
	}
	return sinks, nil
}

// NewEmitterFromConfig builds the configured sinks and starts an
// emitter over them. An empty sink list still yields a usable emitter
// so callers never need to branch on logging being off.
func NewEmitterFromConfig(cfg config.DecisionLogConfig, logger *zap.Logger) (*Emitter, error) {
	sinks, err := BuildSinks(cfg)
	if err != nil {
		return nil, err
	}
	return NewEmitter(EmitterConfig{
		QueueSize:       cfg.QueueSize,
		Workers:         cfg.Workers,
		ShutdownTimeout: time.Duration(cfg.ShutdownTimeoutMs) * time.Millisecond,
	}, sinks, logger), nil
}
