package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/dilasha-ghimire/EthicalAV/internal/config"
)

// Client is the runtime identity behind an API key.
type Client struct {
	Name string
}

// Auth holds mappings from API keys to clients.
type Auth struct {
	apiKeyToClient map[string]Client
}

// NewFromConfig builds an Auth instance from the loaded config.
// A key_env entry resolves through the environment; the env value wins
// over a literal key when both are set.
func NewFromConfig(cfg *config.Config) (*Auth, error) {
	m := make(map[string]Client)

	for i, k := range cfg.Auth.APIKeys {
		key := strings.TrimSpace(k.Key)
		if envName := strings.TrimSpace(k.KeyEnv); envName != "" {
			if envVal := strings.TrimSpace(os.Getenv(envName)); envVal != "" {
				key = envVal
			}
		}
		if key == "" {
			return nil, fmt.Errorf("api key entry %d has an empty key", i)
		}
		name := k.Name
		if name == "" {
			name = fmt.Sprintf("client-%d", i)
		}
		if _, exists := m[key]; exists {
			return nil, fmt.Errorf("api key for %q is assigned more than once", name)
		}
		m[key] = Client{Name: name}
	}

	return &Auth{
		apiKeyToClient: m,
	}, nil
}

// Lookup returns the client for a given API key, if any.
func (a *Auth) Lookup(apiKey string) (Client, bool) {
	if a == nil {
		return Client{}, false
	}
	c, ok := a.apiKeyToClient[apiKey]
	return c, ok
}
