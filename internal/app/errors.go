package service

import "errors"

var (
	// ErrNotStarted is returned when an operation is invoked before
	// Start or after Stop.
	ErrNotStarted = errors.New("service not started")

	// ErrFaucetDisabled is returned when the dev faucet is turned off.
	ErrFaucetDisabled = errors.New("faucet disabled")

	// ErrFaucetLimit is returned when a faucet request exceeds the
	// configured ceiling.
	ErrFaucetLimit = errors.New("faucet amount exceeds limit")
)
