package decode

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/okian/tradeboard/internal/domain/model"
)

// maxDepth bounds container nesting for both dialects.
const maxDepth = 512

// dialect switches the grammar extensions on top of the JSON core.
type dialect struct {
	name string

	singleQuotes  bool // 'text' strings, triple quotes, string prefixes
	pythonNames   bool // True, False, None
	jsonNames     bool // true, false, null, NaN, Infinity, -Infinity
	tuples        bool // (a, b) becomes a sequence
	trailingComma bool
	comments      bool // '#' to end of line
	pythonNumbers bool // sign, underscores, 0x/0o/0b, .5 and 5.
	primitiveKeys bool // number, bool and None keys become strings
	concatStrings bool // 'a' 'b' is 'ab'
}

var canonicalDialect = dialect{
	name:      "canonical",
	jsonNames: true,
}

var literalDialect = dialect{
	name:          "literal",
	singleQuotes:  true,
	pythonNames:   true,
	tuples:        true,
	trailingComma: true,
	comments:      true,
	pythonNumbers: true,
	primitiveKeys: true,
	concatStrings: true,
}

// SyntaxError describes where a dialect rejected its input.
type SyntaxError struct {
	Dialect string
	Offset  int
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("decode %s: offset %d: %s", e.Dialect, e.Offset, e.Msg)
}

type parser struct {
	src   string
	pos   int
	depth int
	d     *dialect
}

// number carries the int/float distinction lost by float64, needed when a
// literal number becomes a mapping key.
type number struct {
	f       float64
	isInt   bool
	intText string
}

func parse(src string, d *dialect) (model.Value, error) {
	p := &parser{src: src, d: d}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing data")
	}
	return v, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Dialect: p.d.name, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.errorf("nesting deeper than %d", maxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case p.d.singleQuotes && (c == '\f' || c == '\v'):
			p.pos++
		case p.d.comments && c == '#':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) value() (model.Value, error) {
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}
	c := p.src[p.pos]
	switch {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '(' && p.d.tuples:
		return p.tuple()
	case c == '"' || (c == '\'' && p.d.singleQuotes):
		return p.strings("")
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		n, err := p.number()
		if err != nil {
			return nil, err
		}
		return n.f, nil
	case isIdentStart(c):
		return p.name()
	}
	return nil, p.errorf("unexpected character %q", c)
}

func (p *parser) object() (model.Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.pos++ // '{'
	obj := model.NewObject()
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return obj, nil
	}
	for {
		key, err := p.key()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after mapping key")
		}
		p.pos++
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)

		p.skipSpace()
		switch p.peek() {
		case '}':
			p.pos++
			return obj, nil
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == '}' {
				if !p.d.trailingComma {
					return nil, p.errorf("trailing comma in mapping")
				}
				p.pos++
				return obj, nil
			}
		default:
			return nil, p.errorf("expected ',' or '}' in mapping")
		}
	}
}

// key parses a mapping key. Canonical keys are strings; literal keys may
// also be numbers, booleans or None, converted the way a JSON encoder
// converts them.
func (p *parser) key() (string, error) {
	c := p.peek()
	if c == '"' || (c == '\'' && p.d.singleQuotes) {
		return p.strings("")
	}
	if !p.d.primitiveKeys {
		return "", p.errorf("mapping key must be a string")
	}
	switch {
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		n, err := p.number()
		if err != nil {
			return "", err
		}
		if n.isInt {
			return n.intText, nil
		}
		return pyFloatRepr(n.f), nil
	case isIdentStart(c):
		v, err := p.name()
		if err != nil {
			return "", err
		}
		switch t := v.(type) {
		case nil:
			return "null", nil
		case bool:
			if t {
				return "true", nil
			}
			return "false", nil
		case string:
			return t, nil
		}
	}
	return "", p.errorf("unsupported mapping key")
}

func (p *parser) array() (model.Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.pos++ // '['
	items, err := p.items(']')
	if err != nil {
		return nil, err
	}
	return items, nil
}

// items parses comma separated values up to and including closer.
func (p *parser) items(closer byte) ([]model.Value, error) {
	items := []model.Value{}
	p.skipSpace()
	if p.peek() == closer {
		p.pos++
		return items, nil
	}
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		switch p.peek() {
		case closer:
			p.pos++
			return items, nil
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == closer {
				if !p.d.trailingComma {
					return nil, p.errorf("trailing comma in sequence")
				}
				p.pos++
				return items, nil
			}
		default:
			return nil, p.errorf("expected ',' or %q in sequence", closer)
		}
	}
}

// tuple parses "(...)". A parenthesised single value without a comma is
// that value, not a sequence.
func (p *parser) tuple() (model.Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.pos++ // '('
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return []model.Value{}, nil
	}
	first, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	switch p.peek() {
	case ')':
		p.pos++
		return first, nil
	case ',':
		p.pos++
	default:
		return nil, p.errorf("expected ',' or ')' in tuple")
	}
	rest, err := p.items(')')
	if err != nil {
		return nil, err
	}
	return append([]model.Value{first}, rest...), nil
}

func (p *parser) name() (model.Value, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	ident := p.src[start:p.pos]

	if p.d.singleQuotes {
		if q := p.peek(); q == '\'' || q == '"' {
			switch strings.ToLower(ident) {
			case "u", "r":
				return p.strings(strings.ToLower(ident))
			}
			p.pos = start
			return nil, p.errorf("unsupported string prefix %q", ident)
		}
	}

	if p.d.pythonNames {
		switch ident {
		case "True":
			return true, nil
		case "False":
			return false, nil
		case "None":
			return nil, nil
		}
	}
	if p.d.jsonNames {
		switch ident {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		}
	}
	p.pos = start
	return nil, p.errorf("unknown name %q", ident)
}

// strings parses one string literal, or in the literal dialect a run of
// adjacent literals that concatenate.
func (p *parser) strings(prefix string) (string, error) {
	s, err := p.stringLiteral(prefix == "r")
	if err != nil {
		return "", err
	}
	if !p.d.concatStrings {
		return s, nil
	}
	var sb strings.Builder
	sb.WriteString(s)
	for {
		save := p.pos
		p.skipSpace()
		raw := false
		switch c := p.peek(); {
		case c == '\'' || c == '"':
		case c == 'r' || c == 'R' || c == 'u' || c == 'U':
			if q := p.at(1); q != '\'' && q != '"' {
				p.pos = save
				return sb.String(), nil
			}
			raw = c == 'r' || c == 'R'
			p.pos++
		default:
			p.pos = save
			return sb.String(), nil
		}
		next, err := p.stringLiteral(raw)
		if err != nil {
			return "", err
		}
		sb.WriteString(next)
	}
}

func (p *parser) at(offset int) byte {
	if p.pos+offset >= len(p.src) {
		return 0
	}
	return p.src[p.pos+offset]
}

func (p *parser) stringLiteral(raw bool) (string, error) {
	quote := p.src[p.pos]
	if quote == '"' && !p.d.singleQuotes {
		return p.jsonString()
	}
	triple := p.at(1) == quote && p.at(2) == quote
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}

	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote && (!triple || (p.at(1) == quote && p.at(2) == quote)):
			if triple {
				p.pos += 3
			} else {
				p.pos++
			}
			return sb.String(), nil
		case c == '\n' && !triple:
			return "", p.errorf("newline in string")
		case c == '\\':
			if raw {
				// a raw string keeps the backslash and the escaped char
				sb.WriteByte(c)
				if p.pos+1 < len(p.src) {
					sb.WriteByte(p.src[p.pos+1])
					p.pos += 2
				} else {
					p.pos++
				}
				continue
			}
			if err := p.pyEscape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) pyEscape(sb *strings.Builder) error {
	p.pos++ // '\'
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\n':
	case '\\', '\'', '"':
		sb.WriteByte(c)
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'v':
		sb.WriteByte('\v')
	case 'x':
		return p.hexRune(sb, 2)
	case 'u':
		return p.hexRune(sb, 4)
	case 'U':
		return p.hexRune(sb, 8)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		r := rune(c - '0')
		for i := 0; i < 2 && p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '7'; i++ {
			r = r*8 + rune(p.src[p.pos]-'0')
			p.pos++
		}
		sb.WriteRune(r)
	case 'N':
		return p.errorf("named unicode escapes are not supported")
	default:
		// unknown escapes keep the backslash
		sb.WriteByte('\\')
		sb.WriteByte(c)
	}
	return nil
}

func (p *parser) hexRune(sb *strings.Builder, n int) error {
	if p.pos+n > len(p.src) {
		return p.errorf("truncated escape")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
	if err != nil {
		return p.errorf("invalid escape")
	}
	p.pos += n
	r := rune(v)
	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	sb.WriteRune(r)
	return nil
}

func (p *parser) jsonString() (string, error) {
	p.pos++ // '"'
	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == '"':
			p.pos++
			return sb.String(), nil
		case c < 0x20:
			return "", p.errorf("control character in string")
		case c == '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			e := p.src[p.pos]
			p.pos++
			switch e {
			case '"', '\\', '/':
				sb.WriteByte(e)
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'u':
				r, err := p.jsonUnicode()
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
			default:
				return "", p.errorf("invalid escape %q", e)
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) jsonUnicode() (rune, error) {
	read := func() (rune, error) {
		if p.pos+4 > len(p.src) {
			return 0, p.errorf("truncated \\u escape")
		}
		v, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
		if err != nil {
			return 0, p.errorf("invalid \\u escape")
		}
		p.pos += 4
		return rune(v), nil
	}
	r, err := read()
	if err != nil {
		return 0, err
	}
	if r >= 0xD800 && r < 0xDC00 && p.at(0) == '\\' && p.at(1) == 'u' {
		save := p.pos
		p.pos += 2
		low, err := read()
		if err == nil && low >= 0xDC00 && low < 0xE000 {
			return 0x10000 + (r-0xD800)<<10 + (low - 0xDC00), nil
		}
		p.pos = save
	}
	if r >= 0xD800 && r < 0xE000 {
		return utf8.RuneError, nil
	}
	return r, nil
}

func (p *parser) number() (number, error) {
	if p.d.pythonNumbers {
		return p.pyNumber()
	}
	return p.jsonNumber()
}

func (p *parser) jsonNumber() (number, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
		if strings.HasPrefix(p.src[p.pos:], "Infinity") {
			p.pos += len("Infinity")
			return number{f: math.Inf(-1)}, nil
		}
	}
	switch {
	case p.peek() == '0':
		p.pos++
	case isDigit(p.peek()):
		for isDigit(p.peek()) {
			p.pos++
		}
	default:
		return number{}, p.errorf("invalid number")
	}
	isInt := true
	if p.peek() == '.' {
		isInt = false
		p.pos++
		if !isDigit(p.peek()) {
			return number{}, p.errorf("invalid fraction")
		}
		for isDigit(p.peek()) {
			p.pos++
		}
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		isInt = false
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if !isDigit(p.peek()) {
			return number{}, p.errorf("invalid exponent")
		}
		for isDigit(p.peek()) {
			p.pos++
		}
	}
	text := p.src[start:p.pos]
	f, err := parseFloat(text)
	if err != nil {
		return number{}, p.errorf("invalid number %q", text)
	}
	return number{f: f, isInt: isInt, intText: text}, nil
}

func (p *parser) pyNumber() (number, error) {
	neg := false
	if c := p.peek(); c == '-' || c == '+' {
		neg = c == '-'
		p.pos++
		p.skipSpace()
	}
	start := p.pos

	if p.peek() == '0' {
		if base := p.at(1) | 0x20; base == 'x' || base == 'o' || base == 'b' {
			p.pos += 2
			for isIdentPart(p.peek()) {
				p.pos++
			}
			text := p.src[start:p.pos]
			bi, ok := new(big.Int).SetString(text, 0)
			if !ok || strings.HasSuffix(text, "_") {
				return number{}, p.errorf("invalid integer %q", text)
			}
			return intNumber(bi, neg), nil
		}
	}

	intDigits := p.digits()
	isInt := true
	if p.peek() == '.' {
		isInt = false
		p.pos++
		frac := p.digits()
		if intDigits == "" && frac == "" {
			return number{}, p.errorf("invalid number")
		}
	} else if intDigits == "" {
		return number{}, p.errorf("invalid number")
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		isInt = false
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if p.digits() == "" {
			return number{}, p.errorf("invalid exponent")
		}
	}
	if c := p.peek(); c == 'j' || c == 'J' {
		return number{}, p.errorf("complex numbers are not supported")
	}
	if isIdentPart(p.peek()) {
		return number{}, p.errorf("invalid number suffix")
	}

	text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if strings.Contains(p.src[start:p.pos], "__") || strings.HasSuffix(p.src[start:p.pos], "_") {
		return number{}, p.errorf("invalid underscore in number")
	}
	if isInt {
		if len(text) > 1 && text[0] == '0' && strings.Trim(text, "0") != "" {
			return number{}, p.errorf("leading zeros in integer")
		}
		bi, _ := new(big.Int).SetString(text, 10)
		return intNumber(bi, neg), nil
	}
	f, err := parseFloat(text)
	if err != nil {
		return number{}, p.errorf("invalid number %q", text)
	}
	if neg {
		f = -f
	}
	return number{f: f}, nil
}

// digits consumes decimal digits with single underscores between them.
func (p *parser) digits() string {
	start := p.pos
	for {
		c := p.peek()
		if isDigit(c) {
			p.pos++
			continue
		}
		if c == '_' && p.pos > start && isDigit(p.at(1)) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func intNumber(bi *big.Int, neg bool) number {
	if neg {
		bi.Neg(bi)
	}
	f, _ := new(big.Float).SetInt(bi).Float64()
	return number{f: f, isInt: true, intText: bi.String()}
}

// parseFloat accepts overflow to ±Inf the way the reference decoders do.
func parseFloat(text string) (float64, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, nil
		}
		return 0, err
	}
	return f, nil
}

// pyFloatRepr formats f the way a float key is rendered by a JSON encoder
// of literal data: shortest digits, ".0" for integral values, exponent
// outside [1e-4, 1e16).
func pyFloatRepr(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	exp := math.Floor(math.Log10(math.Abs(f)))
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
