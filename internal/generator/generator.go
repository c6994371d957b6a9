// Package generator writes synthetic trade history files with a mix of
// encodings and deliberate malformations.
package generator

import (
	"context"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/tradeboard/internal/domain/decode"
	"github.com/okian/tradeboard/internal/domain/flatten"
	"github.com/okian/tradeboard/internal/domain/model"
	"github.com/okian/tradeboard/pkg/logger"
)

// Defaults for generated datasets.
const (
	DefaultAccounts  = 100
	DefaultSeed      = 42
	DefaultMinTrades = 1
	DefaultMaxTrades = 12
)

// Encoding kinds of one generated history cell.
const (
	kindCanonical = iota
	kindLiteral
	kindSingle
	kindTruncated
	kindMissing
	kindNonFinite
	kindDuplicate
)

var (
	symbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT", "XRPUSDT"} //nolint:gochecknoglobals // fixed vocabulary
	sides   = []string{"BUY", "SELL"}                                         //nolint:gochecknoglobals // fixed vocabulary
)

// Summary counts what a Generate call wrote.
type Summary struct {
	Accounts int
	Trades   int
	// Invalid counts history cells that cannot decode: truncated or empty.
	Invalid int
	// NonFinite counts trades whose price is NaN.
	NonFinite int
	// Duplicates counts repeated trades.
	Duplicates int
}

// Generator produces trade_data.csv style files.
type Generator struct {
	accounts      int
	seed          uint64
	minTrades     int
	maxTrades     int
	accountColumn string
	historyColumn string
	logger        logger.Logger
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		accounts:      DefaultAccounts,
		seed:          DefaultSeed,
		minTrades:     DefaultMinTrades,
		maxTrades:     DefaultMaxTrades,
		accountColumn: flatten.DefaultAccountColumn,
		historyColumn: flatten.DefaultHistoryColumn,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WriteFile generates a dataset into path.
func (g *Generator) WriteFile(ctx context.Context, path string) (Summary, error) {
	f, err := os.Create(path)
	if err != nil {
		return Summary{}, fmt.Errorf("generator: %w", err)
	}
	sum, err := g.Generate(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("generator: %w", cerr)
	}
	if err != nil {
		return sum, err
	}
	g.logger.Info(ctx, "dataset generated",
		logger.String("path", path),
		logger.Int("accounts", sum.Accounts),
		logger.Int("trades", sum.Trades),
		logger.Int("invalid", sum.Invalid))
	return sum, nil
}

// Generate writes the CSV to w. The same seed always yields the same bytes.
func (g *Generator) Generate(ctx context.Context, w io.Writer) (Summary, error) {
	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:], g.seed)
	src := rand.NewChaCha8(seed)
	rng := rand.New(src)

	var sum Summary
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{g.accountColumn, g.historyColumn}); err != nil {
		return sum, fmt.Errorf("generator: %w", err)
	}

	for i := 0; i < g.accounts; i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		id, err := uuid.NewRandomFromReader(src)
		if err != nil {
			return sum, fmt.Errorf("generator: %w", err)
		}
		history, err := g.history(rng, &sum)
		if err != nil {
			return sum, err
		}
		if err := cw.Write([]string{id.String(), history}); err != nil {
			return sum, fmt.Errorf("generator: %w", err)
		}
		sum.Accounts++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return sum, fmt.Errorf("generator: %w", err)
	}
	return sum, nil
}

// history renders one account's trades. Each account carries at most one
// kind of malformation.
func (g *Generator) history(rng *rand.Rand, sum *Summary) (string, error) {
	n := g.minTrades + rng.IntN(g.maxTrades-g.minTrades+1)
	trades := make([]*model.Object, n)
	for i := range trades {
		trades[i] = trade(rng)
	}

	kind := pickKind(rng)
	if kind == kindSingle && n > 1 {
		kind = kindCanonical
	}

	switch kind {
	case kindMissing:
		sum.Invalid++
		return "", nil
	case kindNonFinite:
		trades[rng.IntN(n)].Set("price", math.NaN())
		sum.NonFinite++
	case kindDuplicate:
		trades = append(trades, trades[0])
		sum.Duplicates++
	}
	sum.Trades += len(trades)

	switch kind {
	case kindLiteral:
		return literal(trades), nil
	case kindSingle:
		return decode.Encode(trades[0])
	}

	values := make([]model.Value, len(trades))
	for i, t := range trades {
		values[i] = t
	}
	text, err := decode.Encode(values)
	if err != nil {
		return "", fmt.Errorf("generator: %w", err)
	}
	if kind == kindTruncated {
		sum.Invalid++
		sum.Trades -= len(trades)
		return text[:1+rng.IntN(len(text)-1)], nil
	}
	return text, nil
}

// pickKind favours well-formed cells: canonical 50%, literal 25%, single
// mapping 5%, each malformation 5%.
func pickKind(rng *rand.Rand) int {
	switch p := rng.IntN(20); {
	case p < 10:
		return kindCanonical
	case p < 15:
		return kindLiteral
	default:
		return kindSingle + (p - 15)
	}
}

func trade(rng *rand.Rand) *model.Object {
	profit := 0.0
	if rng.IntN(5) > 0 {
		profit = round(rng.NormFloat64()*50, 2)
	}
	t := model.NewObject()
	t.Set("symbol", symbols[rng.IntN(len(symbols))])
	t.Set("side", sides[rng.IntN(len(sides))])
	t.Set("price", round(1+rng.Float64()*50000, 2))
	t.Set("quantity", round(0.001+rng.Float64()*10, 3))
	t.Set("realizedProfit", profit)
	t.Set("maker", rng.IntN(2) == 0)
	t.Set("time", float64(1_700_000_000_000+rng.Int64N(31_536_000_000)))
	return t
}

func round(f float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(f*p) / p
}

// literal renders trades as a literal-dialect list: single quotes, True,
// False and None.
func literal(trades []*model.Object) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, t := range trades {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('{')
		for j, k := range t.Keys() {
			if j > 0 {
				sb.WriteString(", ")
			}
			v, _ := t.Get(k)
			sb.WriteString(quote(k))
			sb.WriteString(": ")
			sb.WriteString(literalValue(v))
		}
		sb.WriteByte('}')
	}
	sb.WriteByte(']')
	return sb.String()
}

func literalValue(v model.Value) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return quote(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "None"
		}
		s := strconv.FormatFloat(t, 'f', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	}
	return "None"
}

func quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}
