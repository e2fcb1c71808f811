package ledger

import (
	"github.com/benbjohnson/clock"

	"github.com/okian/vouch/internal/domain/scoring"
	"github.com/okian/vouch/pkg/logger"
)

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithCalculator sets the credibility gain calculator.
func WithCalculator(calc scoring.Calculator) Option {
	return func(l *Ledger) {
		if calc != nil {
			l.calc = calc
		}
	}
}

// WithClock sets the clock used for record timestamps.
func WithClock(clk clock.Clock) Option {
	return func(l *Ledger) {
		if clk != nil {
			l.clk = clk
		}
	}
}

// WithNotifier sets the sink that receives notices after commits.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) {
		if n != nil {
			l.notify = n
		}
	}
}

// WithLogger sets a custom logger for the ledger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Ledger) {
		if lg != nil {
			l.log = lg
		}
	}
}

// WithMinStake sets the minimum stake an endorsement must attach.
func WithMinStake(amount uint64) Option {
	return func(l *Ledger) {
		if amount > 0 {
			l.minStake = amount
		}
	}
}

// WithMinEndorserCredibility sets the credibility an endorser needs
// before endorsing others in a skill.
func WithMinEndorserCredibility(threshold uint64) Option {
	return func(l *Ledger) {
		if threshold > 0 {
			l.minEndorserCred = threshold
		}
	}
}

// WithSlashPenalty sets the credibility penalty applied to both sides
// of a slashed endorsement.
func WithSlashPenalty(penalty uint64) Option {
	return func(l *Ledger) {
		if penalty > 0 {
			l.slashPenalty = penalty
		}
	}
}
