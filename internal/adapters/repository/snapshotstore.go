package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/tradeboard/internal/domain/model"
)

const defaultMaxLimit = 1000

// SnapshotStore is an in-memory Store. Load swaps the whole snapshot under
// the write lock; reads share the read lock.
type SnapshotStore struct {
	mu       sync.RWMutex
	snap     Snapshot
	index    map[string]int
	maxLimit int
}

var _ Store = (*SnapshotStore)(nil)

// NewSnapshotStore creates an empty store.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		index:    make(map[string]int),
		maxLimit: defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load copies snap into the store. The first row wins when an account id
// repeats.
func (s *SnapshotStore) Load(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ranked := slices.Clone(snap.Ranked)
	index := make(map[string]int, len(ranked))
	for i, r := range ranked {
		if _, ok := index[r.AccountID]; !ok {
			index[r.AccountID] = i
		}
	}

	s.mu.Lock()
	s.snap = Snapshot{Ranked: ranked, Stats: snap.Stats}
	s.index = index
	s.mu.Unlock()
	return nil
}

// TopN returns up to n rows. n must be in [1, max limit].
func (s *SnapshotStore) TopN(_ context.Context, n int) ([]model.RankedAccount, error) {
	if n < 1 || n > s.maxLimit {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidLimit, n, s.maxLimit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n = min(n, len(s.snap.Ranked))
	return slices.Clone(s.snap.Ranked[:n]), nil
}

// Rank returns the row of accountID.
func (s *SnapshotStore) Rank(_ context.Context, accountID string) (model.RankedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[accountID]
	if !ok {
		return model.RankedAccount{}, fmt.Errorf("%w: %s", ErrNotFound, accountID)
	}
	return s.snap.Ranked[i], nil
}

// Count returns the number of rows held.
func (s *SnapshotStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap.Ranked)
}

// Stats returns the current batch statistics.
func (s *SnapshotStore) Stats(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Stats
}

// MaxLimit returns the largest n TopN accepts.
func (s *SnapshotStore) MaxLimit() int {
	return s.maxLimit
}
