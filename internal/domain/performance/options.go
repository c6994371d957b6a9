package performance

import "github.com/okian/tradeboard/pkg/logger"

// Option configures an Engine.
type Option func(*Engine)

// WithFields sets the price, quantity and realized profit field names.
// Empty names keep the defaults.
func WithFields(price, quantity, profit string) Option {
	return func(e *Engine) {
		if price != "" {
			e.priceField = price
		}
		if quantity != "" {
			e.quantityField = quantity
		}
		if profit != "" {
			e.profitField = profit
		}
	}
}

// WithWorkers bounds the number of accounts computed concurrently. Values
// below 2 compute sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger used for per-account failures.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
