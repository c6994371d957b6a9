// Package model contains domain models passed between pipeline stages.
package model

// Value is one decoded structured value. Its dynamic type is one of nil,
// bool, float64, string, []Value or *Object.
type Value = any

// Object is a string-keyed mapping that remembers key insertion order.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Set stores v under key. A repeated key keeps its original position and
// takes the new value.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	return o.keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Raw is an untyped input field. NA marks a missing value; otherwise the
// field is either Text or an already structured Value.
type Raw struct {
	NA         bool
	Text       string
	Structured Value
	HasValue   bool
}

// NARaw returns the missing-value marker.
func NARaw() Raw { return Raw{NA: true} }

// TextRaw wraps a textual field.
func TextRaw(s string) Raw { return Raw{Text: s} }

// StructuredRaw wraps a value a reader already decoded.
func StructuredRaw(v Value) Raw { return Raw{Structured: v, HasValue: true} }

// Field is a named input column value.
type Field struct {
	Name string
	Raw  Raw
}

// RawAccountRow is one input record: an account, its trade history and
// any other columns the source carried. AccountNA marks a missing account
// id; such rows are dropped when the trade table is cleaned.
type RawAccountRow struct {
	AccountID string
	AccountNA bool
	History   Raw
	Extra     []Field
}

// TradeRow is one flattened trade. Values is aligned with Table.Columns.
type TradeRow struct {
	AccountID string
	Values    []Value
}

// Table is the flattened trade data set with a shared column header.
type Table struct {
	Columns []string
	Rows    []TradeRow
}

// ColumnIndex returns the position of name in Columns or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AccountMetrics is the per-account performance record.
type AccountMetrics struct {
	AccountID      string
	PnL            float64
	ROI            float64
	WinRate        float64
	WinPositions   int
	TotalPositions int
	SharpeRatio    float64
	MDD            float64
}

// RankedAccount is AccountMetrics with normalized metrics, composite score
// and rank. Rank 0 means the account could not be ranked (NaN score).
type RankedAccount struct {
	AccountMetrics

	ROINormalized         float64
	PnLNormalized         float64
	SharpeRatioNormalized float64
	WinRateNormalized     float64
	Score                 float64
	Rank                  int
}
