package decode

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/tradeboard/internal/domain/model"
)

// Encoding errors.
var (
	ErrUnsupportedValue = errors.New("unsupported value")
	ErrTooDeep          = errors.New("value nested too deeply")
)

// Encode renders v in the canonical encoding: JSON plus the NaN, Infinity
// and -Infinity tokens. Mapping keys keep their order; plain Go maps are
// written with sorted keys.
func Encode(v model.Value) (string, error) {
	var sb strings.Builder
	if err := encodeValue(&sb, v, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func encodeValue(sb *strings.Builder, v model.Value, depth int) error {
	if depth > maxDepth {
		return ErrTooDeep
	}
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		if t {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case float64:
		encodeFloat(sb, t)
	case float32:
		encodeFloat(sb, float64(t))
	case int:
		sb.WriteString(strconv.FormatInt(int64(t), 10))
	case int32:
		sb.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		sb.WriteString(strconv.FormatInt(t, 10))
	case uint:
		sb.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint32:
		sb.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint64:
		sb.WriteString(strconv.FormatUint(t, 10))
	case string:
		encodeString(sb, t)
	case []model.Value:
		sb.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := encodeValue(sb, item, depth+1); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case *model.Object:
		if t == nil {
			sb.WriteString("null")
			return nil
		}
		sb.WriteByte('{')
		for i, k := range t.Keys() {
			if i > 0 {
				sb.WriteByte(',')
			}
			encodeString(sb, k)
			sb.WriteByte(':')
			item, _ := t.Get(k)
			if err := encodeValue(sb, item, depth+1); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	case map[string]model.Value:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			encodeString(sb, k)
			sb.WriteByte(':')
			if err := encodeValue(sb, t[k], depth+1); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	return nil
}

func encodeFloat(sb *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		sb.WriteString("NaN")
	case math.IsInf(f, 1):
		sb.WriteString("Infinity")
	case math.IsInf(f, -1):
		sb.WriteString("-Infinity")
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		sb.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	default:
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}

const hexDigits = "0123456789abcdef"

func encodeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if c < 0x20 {
				sb.WriteString(`\u00`)
				sb.WriteByte(hexDigits[c>>4])
				sb.WriteByte(hexDigits[c&0xF])
				continue
			}
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
}
