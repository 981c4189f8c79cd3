package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if err := validateMode(cfg.Server.DefaultMode); err != nil {
		return err
	}

	if err := validateAuthConfig(cfg.Auth); err != nil {
		return err
	}

	if err := validateDecisionLogConfig(cfg.DecisionLog); err != nil {
		return err
	}

	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}

	return nil
}

func validateMode(mode string) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "utilitarian", "deontological", "virtue":
		return nil
	default:
		return fmt.Errorf("server.default_mode must be utilitarian, deontological or virtue, got %q", mode)
	}
}

func validateAuthConfig(a AuthConfig) error {
	if !a.Enabled {
		return nil
	}
	if len(a.APIKeys) == 0 {
		return errors.New("auth enabled but api_keys is empty")
	}
	for i, k := range a.APIKeys {
		if strings.TrimSpace(k.Key) == "" && strings.TrimSpace(k.KeyEnv) == "" {
			return fmt.Errorf("auth api_keys entry %d has neither key nor key_env", i)
		}
	}
	return nil
}

func validateDecisionLogConfig(d DecisionLogConfig) error {
	for i, s := range d.Sinks {
		switch strings.ToLower(strings.TrimSpace(s.Type)) {
		case "file_jsonl":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("decision_log sink %d (file_jsonl) missing path", i)
			}
		case "file_csv":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("decision_log sink %d (file_csv) missing path", i)
			}
		case "webhook":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("decision_log sink %d (webhook) missing url", i)
			}
			u, err := url.Parse(s.URL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("decision_log sink %d (webhook) has invalid url", i)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("decision_log sink %d (webhook) url must be http or https", i)
			}
		default:
			return fmt.Errorf("decision_log sink %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}
