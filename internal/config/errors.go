package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrLoadConfig wraps failures reading or parsing a configuration
	// source, before validation runs.
	ErrLoadConfig = errors.New("load config failed")

	// ErrInvalidConfig wraps validation failures; the message names the
	// offending setting.
	ErrInvalidConfig = errors.New("invalid config")
)
