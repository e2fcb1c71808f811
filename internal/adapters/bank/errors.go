package bank

import "errors"

// Sentinel kinds for vault errors.
var (
	ErrInvalidAccount    = errors.New("invalid account")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEscrowShortfall   = errors.New("escrow shortfall")
	ErrBalanceOverflow   = errors.New("balance overflow")
)
