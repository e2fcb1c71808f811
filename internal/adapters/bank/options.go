package bank

import "github.com/okian/vouch/pkg/logger"

// Option applies a configuration option to the InMemoryVault.
type Option func(*InMemoryVault)

// WithOpeningBalances seeds the vault with initial balances.
func WithOpeningBalances(balances map[string]uint64) Option {
	return func(v *InMemoryVault) {
		for account, amount := range balances {
			v.balances[account] = amount
		}
	}
}

// WithLogger sets a custom logger for the vault.
func WithLogger(log logger.Logger) Option {
	return func(v *InMemoryVault) {
		if log != nil {
			v.log = log
		}
	}
}
