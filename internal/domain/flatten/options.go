package flatten

import (
	"github.com/okian/tradeboard/internal/domain/decode"
	"github.com/okian/tradeboard/internal/domain/dedupe"
)

// Option configures a Flattener.
type Option func(*Flattener)

// WithAccountColumn sets the account id column name.
func WithAccountColumn(name string) Option {
	return func(f *Flattener) {
		if name != "" {
			f.accountColumn = name
		}
	}
}

// WithHistoryColumn sets the trade history column name.
func WithHistoryColumn(name string) Option {
	return func(f *Flattener) {
		if name != "" {
			f.historyColumn = name
		}
	}
}

// WithDecoder sets the history decoder.
func WithDecoder(d *decode.Decoder) Option {
	return func(f *Flattener) {
		if d != nil {
			f.decoder = d
		}
	}
}

// WithDeduper sets the constructor for the per-call duplicate filter.
func WithDeduper(newDeduper func(capacity int) dedupe.Deduper) Option {
	return func(f *Flattener) {
		if newDeduper != nil {
			f.newDeduper = newDeduper
		}
	}
}
