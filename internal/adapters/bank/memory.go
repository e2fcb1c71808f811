package bank

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/okian/vouch/pkg/logger"
	"github.com/okian/vouch/pkg/metrics"
)

// InMemoryVault holds balances and the escrow pool in process memory.
// All methods are safe for concurrent use.
type InMemoryVault struct {
	mu       sync.RWMutex
	balances map[string]uint64
	escrow   uint64
	log      logger.Logger
}

// NewInMemoryVault creates an empty vault.
func NewInMemoryVault(opts ...Option) *InMemoryVault {
	v := &InMemoryVault{
		balances: make(map[string]uint64),
		log:      logger.Get().Named("vault"),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Collect debits amount from the participant and credits escrow.
func (v *InMemoryVault) Collect(ctx context.Context, from string, amount uint64) error {
	if from == "" {
		return ErrInvalidAccount
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	bal := v.balances[from]
	if bal < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, bal, amount)
	}
	if v.escrow > math.MaxUint64-amount {
		return fmt.Errorf("%w: escrow pool", ErrBalanceOverflow)
	}

	v.balances[from] = bal - amount
	v.escrow += amount
	metrics.UpdateEscrowBalance(v.escrow)

	v.log.Debug(ctx, "stake collected into escrow",
		logger.String("from", from),
		logger.Uint64("amount", amount),
		logger.Uint64("escrow", v.escrow),
	)
	return nil
}

// Release debits amount from escrow and credits the participant.
func (v *InMemoryVault) Release(ctx context.Context, to string, amount uint64) error {
	if to == "" {
		return ErrInvalidAccount
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.escrow < amount {
		return fmt.Errorf("%w: escrow holds %d, needs %d", ErrEscrowShortfall, v.escrow, amount)
	}
	bal := v.balances[to]
	if bal > math.MaxUint64-amount {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, to)
	}

	v.escrow -= amount
	v.balances[to] = bal + amount
	metrics.UpdateEscrowBalance(v.escrow)

	v.log.Debug(ctx, "escrow released",
		logger.String("to", to),
		logger.Uint64("amount", amount),
		logger.Uint64("escrow", v.escrow),
	)
	return nil
}

// Deposit credits amount to the participant out of thin air.
func (v *InMemoryVault) Deposit(ctx context.Context, account string, amount uint64) error {
	if account == "" {
		return ErrInvalidAccount
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	bal := v.balances[account]
	if bal > math.MaxUint64-amount {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, account)
	}
	v.balances[account] = bal + amount

	v.log.Debug(ctx, "deposit credited",
		logger.String("account", account),
		logger.Uint64("amount", amount),
		logger.Uint64("balance", v.balances[account]),
	)
	return nil
}

// Balance returns the spendable balance of the participant.
func (v *InMemoryVault) Balance(_ context.Context, account string) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.balances[account]
}

// EscrowBalance returns the total amount currently held in escrow.
func (v *InMemoryVault) EscrowBalance(_ context.Context) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.escrow
}
