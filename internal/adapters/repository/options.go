package repository

import "github.com/okian/vouch/pkg/logger"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger for the archive.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}
