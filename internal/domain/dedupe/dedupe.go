// Package dedupe filters exact-duplicate rows.
package dedupe

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Deduper records row keys so that each distinct row is kept once.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records
	// it if not.
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// inMemoryDeduper keeps every key for the lifetime of one data set. There
// is no eviction.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	capacity int
	size     atomic.Int64
}

// NewInMemoryDeduper creates an unbounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.capacity)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

// Size returns the number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// RowKey joins cell texts into a key that is equal only for equal cell
// sequences. Each cell is length prefixed so separators inside a cell
// cannot collide.
func RowKey(cells ...string) string {
	var sb strings.Builder
	for _, c := range cells {
		sb.WriteString(strconv.Itoa(len(c)))
		sb.WriteByte(':')
		sb.WriteString(c)
	}
	return sb.String()
}
