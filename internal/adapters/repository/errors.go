package repository

import "errors"

// Sentinel kinds for archive errors.
var (
	ErrNoState      = errors.New("no archived state")
	ErrInvalidLimit = errors.New("invalid journal limit")
)
