package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if VOUCH_CONFIG is set
//  3. env (prefix VOUCH_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("VOUCH_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: VOUCH_ADDR, VOUCH_MIN_STAKE, ...
	// Map env keys like VOUCH_MIN_STAKE -> min_stake (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("VOUCH_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "vouch_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the service cannot run with.
func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.MinStake == 0 {
		return fmt.Errorf("%w: min_stake must be positive", ErrInvalidConfig)
	}
	if c.MaxGain == 0 {
		return fmt.Errorf("%w: max_gain must be positive", ErrInvalidConfig)
	}
	if c.Authority == "" {
		return fmt.Errorf("%w: authority must not be empty", ErrInvalidConfig)
	}
	if c.AuthSecret == "" {
		return fmt.Errorf("%w: auth_secret must not be empty", ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("%w: snapshot_interval must be positive", ErrInvalidConfig)
	}
	if c.FaucetEnabled && c.FaucetAmount == 0 {
		return fmt.Errorf("%w: faucet_amount must be positive when the faucet is enabled", ErrInvalidConfig)
	}
	if c.FaucetEnabled && c.FaucetMaxAmount < c.FaucetAmount {
		return fmt.Errorf("%w: faucet_max_amount must cover the default grant", ErrInvalidConfig)
	}
	if c.MaxStandingsLimit <= 0 {
		return fmt.Errorf("%w: max_standings_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
