package source

import (
	"github.com/okian/tradeboard/internal/adapters/blob/s3blob"
	"github.com/okian/tradeboard/pkg/logger"
)

// Option configures a Source.
type Option func(*Source)

// WithColumns sets the account and history column names.
func WithColumns(account, history string) Option {
	return func(s *Source) {
		if account != "" {
			s.accountColumn = account
		}
		if history != "" {
			s.historyColumn = history
		}
	}
}

// WithStorage sets the object storage connection used for s3:// locations.
// The bucket is taken from each location.
func WithStorage(cfg s3blob.ClientConfig) Option {
	return func(s *Source) {
		s.storage = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}
