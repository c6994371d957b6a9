package service

import (
	"io"
	"time"

	"github.com/okian/tradeboard/internal/adapters/repository"
	"github.com/okian/tradeboard/internal/domain/flatten"
	"github.com/okian/tradeboard/internal/domain/performance"
	"github.com/okian/tradeboard/internal/domain/scoring"
	"github.com/okian/tradeboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLoader sets the input loader.
func WithLoader(l Loader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithFlattener sets the trade flattener.
func WithFlattener(f *flatten.Flattener) Option {
	return func(s *Service) {
		if f != nil {
			s.flattener = f
		}
	}
}

// WithEngine sets the metrics engine.
func WithEngine(e *performance.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithRanker sets the ranker.
func WithRanker(r *scoring.Ranker) Option {
	return func(s *Service) {
		if r != nil {
			s.ranker = r
		}
	}
}

// WithSinkFactory sets how output locations become sinks.
func WithSinkFactory(f SinkFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.newSink = f
		}
	}
}

// WithStore sets the store Publish loads.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithProgress sets where progress lines are printed.
func WithProgress(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.progress = w
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source for batch timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
