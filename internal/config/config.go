package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds EthicalAV configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	DecisionLog DecisionLogConfig `yaml:"decision_log"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Dataset     DatasetConfig     `yaml:"dataset"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`         // HTTP listen address, e.g. ":8080"
	DefaultMode string `yaml:"default_mode"` // mode assumed when a request omits one
}

type AuthConfig struct {
	Enabled bool           `yaml:"enabled"`
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

type APIKeyConfig struct {
	Key    string `yaml:"key"`
	KeyEnv string `yaml:"key_env"` // e.g. "ETHICALAV_API_KEY"; env wins over key when set
	Name   string `yaml:"name"`   // caller label used in logs, never the key itself
}

type DecisionLogConfig struct {
	QueueSize         int          `yaml:"queue_size"`
	Workers           int          `yaml:"workers"`
	ShutdownTimeoutMs int          `yaml:"shutdown_timeout_ms"`
	Sinks             []SinkConfig `yaml:"sinks"`
}

type SinkConfig struct {
	Type      string            `yaml:"type"` // file_jsonl | file_csv | webhook
	Path      string            `yaml:"path"`
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
	TimeoutMs int               `yaml:"timeout_ms"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
}

type DatasetConfig struct {
	Rows   int    `yaml:"rows"`
	Seed   int64  `yaml:"seed"`
	OutDir string `yaml:"out_dir"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.DefaultMode == "" {
		cfg.Server.DefaultMode = "utilitarian"
	}

	if cfg.DecisionLog.QueueSize <= 0 {
		cfg.DecisionLog.QueueSize = 1000
	}
	if cfg.DecisionLog.Workers <= 0 {
		cfg.DecisionLog.Workers = 1
	}
	if cfg.DecisionLog.ShutdownTimeoutMs <= 0 {
		cfg.DecisionLog.ShutdownTimeoutMs = 2000
	}

	if cfg.Dataset.Rows <= 0 {
		cfg.Dataset.Rows = 10000
	}
	if cfg.Dataset.Seed == 0 {
		cfg.Dataset.Seed = 42
	}
	if cfg.Dataset.OutDir == "" {
		cfg.Dataset.OutDir = "labeled_data"
	}
}
