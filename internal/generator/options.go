package generator

import (
	"github.com/okian/tradeboard/pkg/logger"
)

// Option configures a Generator.
type Option func(*Generator)

// WithAccounts sets the number of account rows.
func WithAccounts(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.accounts = n
		}
	}
}

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithTradesPerAccount bounds the trades generated per account.
func WithTradesPerAccount(lo, hi int) Option {
	return func(g *Generator) {
		if lo >= 1 && hi >= lo {
			g.minTrades = lo
			g.maxTrades = hi
		}
	}
}

// WithColumns sets the account and history column names.
func WithColumns(account, history string) Option {
	return func(g *Generator) {
		if account != "" {
			g.accountColumn = account
		}
		if history != "" {
			g.historyColumn = history
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}
