// Package scoring defines the contract for computing credibility gain
// from endorsement stake.
package scoring

import (
	"math/bits"
)

// Default gain configuration constants.
const (
	defaultMinStakeUnit = 100
	defaultMaxGain      = 5
	defaultGainDivisor  = 10
)

// Option applies a configuration option to the BoundedCalculator.
type Option func(*BoundedCalculator)

// WithMinStakeUnit sets the stake amount that counts as one multiplier unit.
func WithMinStakeUnit(unit uint64) Option {
	return func(c *BoundedCalculator) {
		if unit > 0 {
			c.minStakeUnit = unit
		}
	}
}

// WithMaxGain caps the credibility gain of a single endorsement.
func WithMaxGain(maxGain uint64) Option {
	return func(c *BoundedCalculator) {
		if maxGain > 0 {
			c.maxGain = maxGain
		}
	}
}

// WithDivisor sets the dampening divisor applied to the raw product.
func WithDivisor(divisor uint64) Option {
	return func(c *BoundedCalculator) {
		if divisor > 0 {
			c.divisor = divisor
		}
	}
}

// Calculator computes the credibility gain awarded by one endorsement.
type Calculator interface {
	// Gain returns the credibility awarded to the subject when an
	// endorser with the given credibility stakes the given amount.
	Gain(endorserCredibility, stake uint64) uint64
}

// BoundedCalculator implements Calculator with the dampened-gain formula:
//
//	gain = clamp((stake/minStakeUnit) * isqrt(endorserCredibility) / divisor, 1, maxGain)
//
// Stake contributes in whole multiples of minStakeUnit; endorser weight
// grows as the square root of credibility, so standing has diminishing
// influence. Every accepted endorsement awards at least 1.
type BoundedCalculator struct {
	minStakeUnit uint64
	maxGain      uint64
	divisor      uint64
}

// NewBoundedCalculator creates a calculator with configuration options.
func NewBoundedCalculator(opts ...Option) *BoundedCalculator {
	c := &BoundedCalculator{
		minStakeUnit: defaultMinStakeUnit,
		maxGain:      defaultMaxGain,
		divisor:      defaultGainDivisor,
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Gain computes the credibility gain for the given endorser credibility
// and stake. The result is always within [1, maxGain].
func (c *BoundedCalculator) Gain(endorserCredibility, stake uint64) uint64 {
	multiplier := stake / c.minStakeUnit
	weight := Isqrt(endorserCredibility)

	// The raw product can exceed 64 bits for extreme stakes; saturate
	// at the cap instead of wrapping.
	hi, lo := bits.Mul64(multiplier, weight)
	if hi != 0 {
		return c.maxGain
	}

	gain := lo / c.divisor
	if gain < 1 {
		gain = 1
	}
	if gain > c.maxGain {
		gain = c.maxGain
	}
	return gain
}

// MaxGain returns the configured per-endorsement gain cap.
func (c *BoundedCalculator) MaxGain() uint64 { return c.maxGain }

// Isqrt returns floor(sqrt(n)) using integer Newton iteration.
func Isqrt(n uint64) uint64 {
	if n < 2 {
		return n
	}

	// Seed with a power of two no smaller than sqrt(n); the iteration
	// then descends monotonically onto the floor.
	x := uint64(1) << ((bits.Len64(n) + 1) / 2)
	for {
		y := (x + n/x) / 2
		if y >= x {
			return x
		}
		x = y
	}
}
