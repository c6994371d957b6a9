package sink

import (
	"github.com/okian/tradeboard/internal/adapters/blob/s3blob"
	"github.com/okian/tradeboard/pkg/logger"
)

// Option configures a Sink.
type Option func(*settings)

// WithAccountColumn names the first output column.
func WithAccountColumn(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.accountColumn = name
		}
	}
}

// WithStorage sets the object storage connection used for s3:// locations.
func WithStorage(cfg s3blob.ClientConfig) Option {
	return func(s *settings) {
		s.storage = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
