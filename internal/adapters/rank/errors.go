package rank

import "errors"

// Sentinel kinds for standings errors.
var (
	ErrNotFound     = errors.New("subject not found")
	ErrInvalidLimit = errors.New("invalid standings limit")
)
