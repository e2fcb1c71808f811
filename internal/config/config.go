// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, an optional YAML file, and environment
//   variables on top of each other.
// - External errors must be wrapped with this package's sentinel kinds.
package config

import (
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MinStake is the smallest stake an endorsement may attach. It is
	// also the stake unit of the gain formula.
	MinStake uint64 `koanf:"min_stake"`

	// MinCredibilityToEndorse gates who may endorse.
	MinCredibilityToEndorse uint64 `koanf:"min_credibility_to_endorse"`

	// MaxGain caps the credibility gain of a single endorsement.
	MaxGain uint64 `koanf:"max_gain"`

	// SlashPenalty is deducted from subject credibility and endorser
	// standing when an endorsement is slashed.
	SlashPenalty uint64 `koanf:"slash_penalty"`

	// Authority is the account allowed to slash, pause, and administer.
	Authority string `koanf:"authority"`

	// AuthSecret signs and verifies caller bearer tokens.
	AuthSecret string `koanf:"auth_secret"`

	// FaucetEnabled allows participants to request dev funds.
	FaucetEnabled bool `koanf:"faucet_enabled"`

	// FaucetAmount is the default grant per faucet request.
	FaucetAmount uint64 `koanf:"faucet_amount"`

	// FaucetMaxAmount caps a single faucet request.
	FaucetMaxAmount uint64 `koanf:"faucet_max_amount"`

	// DataDir holds the archive database file.
	DataDir string `koanf:"data_dir"`

	// FeedCapacity bounds the in-memory notice feed.
	FeedCapacity int `koanf:"feed_capacity"`

	// DispatcherCount sets the number of notice dispatchers.
	DispatcherCount int `koanf:"dispatcher_count"`

	// ReplayGuardSize bounds the request-id replay guard.
	ReplayGuardSize int `koanf:"replay_guard_size"`

	// SnapshotInterval is the period between archived snapshots.
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`

	// MaxStandingsLimit caps GET /skills/{skill}/leaderboard?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		MinStake:                100,
		MinCredibilityToEndorse: 10,
		MaxGain:                 5,
		SlashPenalty:            2,
		Authority:               "authority",
		AuthSecret:              "vouch-dev-secret",
		FaucetEnabled:           true,
		FaucetAmount:            10_000,
		FaucetMaxAmount:         1_000_000,
		DataDir:                 "data",
		FeedCapacity:            10_000,
		DispatcherCount:         4,
		ReplayGuardSize:         50_000,
		SnapshotInterval:        30 * time.Second,
		MaxStandingsLimit:       100,
	}
}
