package config

import (
	"fmt"
	"time"

	"github.com/openbitx/explorer/internal/core/domain"
	redisclient "github.com/openbitx/explorer/internal/infra/redis"
	"github.com/openbitx/explorer/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Chains      []ChainConfig      `yaml:"chains"`
	Redis       redisclient.Config `yaml:"redis"`
	Logging     LoggingConfig      `yaml:"logging"`
	Database    postgres.Config    `yaml:"database"`
	HealthCheck HealthCheckConfig  `yaml:"health_check"`
	Testnet     bool               `yaml:"testnet"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// HealthCheckConfig drives the default-provider auto-switch loop.
type HealthCheckConfig struct {
	Interval     time.Duration `yaml:"interval"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	MaxRetries   int           `yaml:"max_retries"`

	// ProbeAddresses maps a network to a known active address used for
	// address_txs probes.
	ProbeAddresses map[string]string `yaml:"probe_addresses"`
}

// ChainConfig holds settings for one blockchain.
type ChainConfig struct {
	Symbol    string           `yaml:"symbol"`
	Network   domain.Network   `yaml:"network"`
	Providers []ProviderConfig `yaml:"providers"`

	// Operations maps an operation name to the ordered provider names to try
	// for it. The first entry is the initial default; the auto-switch service
	// may promote another one at runtime.
	Operations map[string][]string `yaml:"operations"`
}

// ProviderConfig holds settings for one external explorer or node endpoint.
type ProviderConfig struct {
	Name       string  `yaml:"name"`
	Family     string  `yaml:"family"` // blockbook, evm, bnbdex
	URL        string  `yaml:"url"`
	TestnetURL string  `yaml:"testnet_url"`
	RateLimit  float64 `yaml:"rate_limit"` // min seconds between calls

	// Backoff is how long the provider is benched after a 429, in seconds.
	Backoff     float64  `yaml:"backoff"`
	UseProxy    bool     `yaml:"use_proxy"`
	APIKeys     []string `yaml:"api_keys"`
	KeyStrategy string   `yaml:"key_strategy"` // random (default), round_robin
	Operations  []string `yaml:"operations"`
}

// Provider converts a config entry into the domain entity.
func (p ProviderConfig) Provider(network domain.Network) *domain.Provider {
	return &domain.Provider{
		Name:        p.Name,
		Network:     network,
		BaseURL:     p.URL,
		TestnetURL:  p.TestnetURL,
		RateLimit:   time.Duration(p.RateLimit * float64(time.Second)),
		BackoffTime: time.Duration(p.Backoff * float64(time.Second)),
		UseProxy:    p.UseProxy,
		APIKeys:     p.APIKeys,
		Operations:  p.Operations,
	}
}

// Validate rejects configurations the service cannot run with: a chain with
// no providers, an operation list naming an unknown provider, or an empty
// candidate list for a declared operation.
func (c *AppConfig) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("%w: no chains configured", domain.ErrConfiguration)
	}
	for _, chain := range c.Chains {
		if chain.Symbol == "" || chain.Network == "" {
			return fmt.Errorf("%w: chain missing symbol or network", domain.ErrConfiguration)
		}
		if len(chain.Providers) == 0 {
			return fmt.Errorf("%w: chain %s has no providers", domain.ErrConfiguration, chain.Symbol)
		}
		known := make(map[string]bool, len(chain.Providers))
		for _, p := range chain.Providers {
			if p.Name == "" || p.URL == "" {
				return fmt.Errorf("%w: chain %s provider missing name or url",
					domain.ErrConfiguration, chain.Symbol)
			}
			if known[p.Name] {
				return fmt.Errorf("%w: chain %s duplicate provider %s",
					domain.ErrConfiguration, chain.Symbol, p.Name)
			}
			known[p.Name] = true
		}
		for op, names := range chain.Operations {
			if len(names) == 0 {
				return fmt.Errorf("%w: chain %s operation %s has no candidates",
					domain.ErrConfiguration, chain.Symbol, op)
			}
			for _, name := range names {
				if !known[name] {
					return fmt.Errorf("%w: chain %s operation %s references unknown provider %s",
						domain.ErrConfiguration, chain.Symbol, op, name)
				}
			}
		}
	}
	return nil
}
