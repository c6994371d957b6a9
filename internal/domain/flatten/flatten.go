// Package flatten turns account rows with embedded trade histories into a
// clean trade table.
package flatten

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/okian/tradeboard/internal/domain/decode"
	"github.com/okian/tradeboard/internal/domain/dedupe"
	"github.com/okian/tradeboard/internal/domain/model"
)

const stage = "flatten"

// Default input column names.
const (
	DefaultAccountColumn = "Port_IDs"
	DefaultHistoryColumn = "Trade_History"
)

// Result is the cleaned table and the row accounting of one Flatten call.
type Result struct {
	Table model.Table

	// InvalidRows counts input rows whose history did not decode.
	InvalidRows int
	// Entries counts trade rows emitted before cleaning.
	Entries int
	// Duplicates counts exact-duplicate trade rows removed.
	Duplicates int
	// Dropped counts trade rows removed for a null or non-finite value.
	Dropped int
}

// Flattener explodes trade histories into one row per trade.
type Flattener struct {
	accountColumn string
	historyColumn string
	decoder       *decode.Decoder
	newDeduper    func(capacity int) dedupe.Deduper
}

// New creates a Flattener.
func New(opts ...Option) *Flattener {
	f := &Flattener{
		accountColumn: DefaultAccountColumn,
		historyColumn: DefaultHistoryColumn,
		decoder:       decode.New(),
		newDeduper: func(capacity int) dedupe.Deduper {
			return dedupe.NewInMemoryDeduper(dedupe.WithCapacity(capacity))
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AccountColumn returns the configured account column name.
func (f *Flattener) AccountColumn() string { return f.accountColumn }

type decodedRow struct {
	row     *model.RawAccountRow
	entries []*model.Object
}

// Flatten decodes every row's history, emits one trade row per mapping
// entry, removes exact duplicates and drops rows holding a null or
// non-finite value. header is the input column list.
func (f *Flattener) Flatten(ctx context.Context, header []string, rows []model.RawAccountRow) (Result, error) {
	var res Result

	if missing := f.missingColumns(header); len(missing) > 0 {
		return res, &model.SchemaError{Stage: stage, Missing: missing}
	}

	decoded := make([]decodedRow, 0, len(rows))
	for i := range rows {
		v, ok := f.decoder.Decode(rows[i].History)
		if !ok {
			res.InvalidRows++
			continue
		}
		decoded = append(decoded, decodedRow{row: &rows[i], entries: entries(v)})
	}
	if len(decoded) == 0 {
		return res, model.EmptyDatasetError(stage, "no valid trade data remaining after cleaning")
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	tradeFields := unionFields(decoded)
	passthrough := f.passthroughColumns(header, tradeFields)
	columns := append(slices.Clone(passthrough), tradeFields...)

	tradeIndex := make(map[string]int, len(tradeFields))
	for i, name := range tradeFields {
		tradeIndex[name] = len(passthrough) + i
	}

	seen := f.newDeduper(len(decoded))
	table := model.Table{Columns: columns}
	for _, d := range decoded {
		extras := extraValues(d.row, passthrough)
		for _, entry := range d.entries {
			res.Entries++

			values := make([]model.Value, len(columns))
			copy(values, extras)
			for _, k := range entry.Keys() {
				v, _ := entry.Get(k)
				values[tradeIndex[k]] = v
			}

			if seen.SeenAndRecord(ctx, rowKey(d.row, values)) {
				res.Duplicates++
				continue
			}
			if d.row.AccountNA || hasNull(values) {
				res.Dropped++
				continue
			}
			table.Rows = append(table.Rows, model.TradeRow{AccountID: d.row.AccountID, Values: values})
		}
	}
	if len(table.Rows) == 0 {
		return res, model.EmptyDatasetError(stage, "no trade rows left after removing nulls")
	}

	res.Table = table
	return res, nil
}

func (f *Flattener) missingColumns(header []string) []string {
	var missing []string
	for _, c := range []string{f.accountColumn, f.historyColumn} {
		if !slices.Contains(header, c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// passthroughColumns keeps the header order, minus the account and history
// columns and any name a trade field already claims.
func (f *Flattener) passthroughColumns(header, tradeFields []string) []string {
	var out []string
	for _, c := range header {
		if c == f.accountColumn || c == f.historyColumn || slices.Contains(tradeFields, c) {
			continue
		}
		if slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// entries returns the trade mappings held by v: a mapping is one entry, a
// sequence contributes its mapping elements, anything else none. Nested
// mappings are flattened to dot-joined keys.
func entries(v model.Value) []*model.Object {
	switch t := v.(type) {
	case *model.Object:
		return []*model.Object{flattenObject(t)}
	case []model.Value:
		out := make([]*model.Object, 0, len(t))
		for _, item := range t {
			if obj, ok := item.(*model.Object); ok {
				out = append(out, flattenObject(obj))
			}
		}
		return out
	}
	return nil
}

func flattenObject(obj *model.Object) *model.Object {
	out := model.NewObject()
	flattenInto(out, "", obj)
	return out
}

func flattenInto(out *model.Object, prefix string, obj *model.Object) {
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := v.(*model.Object); ok {
			flattenInto(out, name, nested)
			continue
		}
		out.Set(name, v)
	}
}

// unionFields collects trade field names in order of first appearance.
func unionFields(rows []decodedRow) []string {
	var fields []string
	seen := make(map[string]struct{})
	for _, d := range rows {
		for _, e := range d.entries {
			for _, k := range e.Keys() {
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				fields = append(fields, k)
			}
		}
	}
	return fields
}

func extraValues(row *model.RawAccountRow, passthrough []string) []model.Value {
	values := make([]model.Value, len(passthrough))
	for i, name := range passthrough {
		idx := slices.IndexFunc(row.Extra, func(f model.Field) bool { return f.Name == name })
		if idx < 0 {
			continue
		}
		raw := row.Extra[idx].Raw
		switch {
		case raw.NA:
		case raw.HasValue:
			values[i] = raw.Structured
		default:
			values[i] = raw.Text
		}
	}
	return values
}

// rowKey identifies a row by its account and the canonical encoding of
// every cell, so 5 and "5" stay distinct while -0 and 0 are equal.
func rowKey(row *model.RawAccountRow, values []model.Value) string {
	var account model.Value = row.AccountID
	if row.AccountNA {
		account = nil
	}
	cells := make([]string, 0, len(values)+1)
	for _, v := range append([]model.Value{account}, values...) {
		if f, ok := v.(float64); ok && f == 0 {
			v = 0.0
		}
		text, err := decode.Encode(v)
		if err != nil {
			text = fmt.Sprintf("%T:%v", v, v)
		}
		cells = append(cells, text)
	}
	return dedupe.RowKey(cells...)
}

// hasNull reports a missing, NaN or infinite cell.
func hasNull(values []model.Value) bool {
	for _, v := range values {
		switch t := v.(type) {
		case nil:
			return true
		case float64:
			if math.IsNaN(t) || math.IsInf(t, 0) {
				return true
			}
		}
	}
	return false
}
