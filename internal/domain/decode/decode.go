// Package decode turns raw trade history fields into structured values.
//
// Text is tried against an ordered list of strategies and the first one
// that succeeds wins. The default list parses the canonical encoding (JSON
// with non-finite number tokens) and then the literal encoding (single
// quotes, True/False/None, tuples, trailing commas). A literal result is
// re-encoded canonically and parsed again, so both paths yield the same
// value shapes.
package decode

import (
	"math"

	"github.com/okian/tradeboard/internal/domain/model"
)

// Strategy decodes text into a structured value.
type Strategy func(text string) (model.Value, error)

// Option configures a Decoder.
type Option func(*Decoder)

// WithStrategies replaces the strategy list.
func WithStrategies(strategies ...Strategy) Option {
	return func(d *Decoder) {
		if len(strategies) > 0 {
			d.strategies = strategies
		}
	}
}

// Decoder applies its strategies in order.
type Decoder struct {
	strategies []Strategy
}

// New returns a Decoder with the canonical then literal strategies.
func New(opts ...Option) *Decoder {
	d := &Decoder{strategies: []Strategy{Canonical, Literal}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = New()

// Decode decodes raw with the default strategies.
func Decode(raw model.Raw) (model.Value, bool) {
	return defaultDecoder.Decode(raw)
}

// Decode returns the structured value of raw. The boolean is false when
// the field is missing, or no strategy accepts it. Already structured
// fields are normalized through the canonical encoding.
func (d *Decoder) Decode(raw model.Raw) (model.Value, bool) {
	if raw.NA {
		return nil, false
	}
	if raw.HasValue {
		if absent(raw.Structured) {
			return nil, false
		}
		text, err := Encode(raw.Structured)
		if err != nil {
			return nil, false
		}
		v, err := Canonical(text)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	return d.DecodeText(raw.Text)
}

// DecodeText runs the strategies against text. Text that decodes to null
// or NaN is absent.
func (d *Decoder) DecodeText(text string) (model.Value, bool) {
	for _, s := range d.strategies {
		v, err := s(text)
		if err == nil {
			if absent(v) {
				return nil, false
			}
			return v, true
		}
	}
	return nil, false
}

// absent reports a missing value: nil or a NaN float.
func absent(v model.Value) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	}
	return false
}

// Canonical parses the canonical encoding.
func Canonical(text string) (model.Value, error) {
	return parse(text, &canonicalDialect)
}

// Literal parses the literal encoding and normalizes the result through a
// canonical round trip.
func Literal(text string) (model.Value, error) {
	v, err := parse(text, &literalDialect)
	if err != nil {
		return nil, err
	}
	enc, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return Canonical(enc)
}
