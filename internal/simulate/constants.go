package simulate

import "time"

// HTTP status code constants.
const (
	StatusOK      = 200
	StatusCreated = 201
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	// BoardSettleDelay gives the notice dispatchers time to push
	// committed endorsements into the standings board before the
	// leaderboard is verified.
	BoardSettleDelay     = 3 * time.Second
	TokenTTL             = time.Hour
	PercentageMultiplier = 100
)
