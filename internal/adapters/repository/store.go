// Package repository holds the ranked leaderboard served over HTTP.
package repository

import (
	"context"
	"time"

	"github.com/okian/tradeboard/internal/domain/model"
)

// Stats summarizes the batch a snapshot was built from.
type Stats struct {
	RowsRead       int       `json:"rows_read"`
	InvalidRows    int       `json:"invalid_rows"`
	Trades         int       `json:"trades"`
	Duplicates     int       `json:"duplicates"`
	Dropped        int       `json:"dropped"`
	Accounts       int       `json:"accounts"`
	FailedAccounts int       `json:"failed_accounts"`
	Ranked         int       `json:"ranked"`
	Selected       int       `json:"selected"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Snapshot is one computed batch: every account in ascending rank order
// and the batch statistics.
type Snapshot struct {
	Ranked []model.RankedAccount
	Stats  Stats
}

// Store provides read access to the latest snapshot.
type Store interface {
	// Load replaces the current snapshot.
	Load(ctx context.Context, snap Snapshot) error

	// TopN returns the first n rows in rank order.
	TopN(ctx context.Context, n int) ([]model.RankedAccount, error)

	// Rank returns one account. Returns ErrNotFound if it is unknown.
	Rank(ctx context.Context, accountID string) (model.RankedAccount, error)

	// Count returns the number of accounts held.
	Count(ctx context.Context) int

	// Stats returns the statistics of the current snapshot.
	Stats(ctx context.Context) Stats
}
