// Package bank manages participant balances and the escrow pool that
// backs endorsement stakes.
package bank

import "context"

// Vault provides access to participant balances and the escrow pool.
//
// Collect and Release are the two legs of the stake lifecycle: Collect
// debits a participant and parks the amount in escrow when an
// endorsement is accepted, Release pays escrowed stake out again when
// an endorsement is slashed. Deposit exists for faucet-style funding.
type Vault interface {
	// Collect debits amount from the participant and credits escrow.
	Collect(ctx context.Context, from string, amount uint64) error

	// Release debits amount from escrow and credits the participant.
	Release(ctx context.Context, to string, amount uint64) error

	// Deposit credits amount to the participant out of thin air.
	Deposit(ctx context.Context, account string, amount uint64) error

	// Balance returns the spendable balance of the participant.
	Balance(ctx context.Context, account string) uint64

	// EscrowBalance returns the total amount currently held in escrow.
	EscrowBalance(ctx context.Context) uint64
}
