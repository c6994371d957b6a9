// Package performance computes per-account trading metrics from a trade
// table.
package performance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/tradeboard/internal/domain/model"
	"github.com/okian/tradeboard/pkg/logger"
)

const stage = "metrics"

// Default trade field names.
const (
	DefaultPriceField    = "price"
	DefaultQuantityField = "quantity"
	DefaultProfitField   = "realizedProfit"
)

// Per-account compute errors.
var (
	ErrNonNumeric = errors.New("non-numeric value")
	ErrNonFinite  = errors.New("non-finite metric")
)

// Failure is one account whose metrics could not be computed.
type Failure struct {
	AccountID string
	Err       error
}

// Report summarizes one Compute call.
type Report struct {
	Accounts int
	Computed int
	Failed   []Failure
}

// Engine computes AccountMetrics.
type Engine struct {
	priceField    string
	quantityField string
	profitField   string
	workers       int
	logger        logger.Logger
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		priceField:    DefaultPriceField,
		quantityField: DefaultQuantityField,
		profitField:   DefaultProfitField,
		workers:       1,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type columns struct {
	price, quantity, profit int
}

type outcome struct {
	metrics model.AccountMetrics
	err     error
}

// Compute returns one record per account in order of first appearance.
// An account whose computation fails is logged, reported and skipped.
func (e *Engine) Compute(ctx context.Context, table model.Table) ([]model.AccountMetrics, Report, error) {
	var report Report

	if len(table.Rows) == 0 {
		return nil, report, model.EmptyDatasetError(stage, "empty trade table provided for metrics calculation")
	}
	cols, err := e.resolve(table)
	if err != nil {
		return nil, report, err
	}

	ids, groups := groupByAccount(table.Rows)
	report.Accounts = len(ids)

	outcomes := make([]outcome, len(ids))
	if e.workers <= 1 {
		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}
			outcomes[i] = computeOne(id, groups[id], cols)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i, id := range ids {
			rows := groups[id]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcomes[i] = computeOne(id, rows, cols)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, report, err
		}
	}

	out := make([]model.AccountMetrics, 0, len(ids))
	for _, o := range outcomes {
		if o.err != nil {
			report.Failed = append(report.Failed, Failure{AccountID: o.metrics.AccountID, Err: o.err})
			e.logger.Warn(ctx, "error calculating metrics for account",
				logger.String("account", o.metrics.AccountID),
				logger.Error(o.err))
			continue
		}
		out = append(out, o.metrics)
	}
	report.Computed = len(out)

	if len(out) == 0 {
		return nil, report, fmt.Errorf("%s: %w: all %d accounts failed", stage, model.ErrNoMetricsComputed, report.Accounts)
	}
	return out, report, nil
}

func (e *Engine) resolve(table model.Table) (columns, error) {
	cols := columns{
		price:    table.ColumnIndex(e.priceField),
		quantity: table.ColumnIndex(e.quantityField),
		profit:   table.ColumnIndex(e.profitField),
	}
	var missing []string
	for _, c := range []struct {
		name string
		idx  int
	}{{e.priceField, cols.price}, {e.quantityField, cols.quantity}, {e.profitField, cols.profit}} {
		if c.idx < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return cols, &model.SchemaError{Stage: stage, Missing: missing}
	}
	return cols, nil
}

func groupByAccount(rows []model.TradeRow) ([]string, map[string][]model.TradeRow) {
	var ids []string
	groups := make(map[string][]model.TradeRow)
	for _, r := range rows {
		if _, ok := groups[r.AccountID]; !ok {
			ids = append(ids, r.AccountID)
		}
		groups[r.AccountID] = append(groups[r.AccountID], r)
	}
	return ids, groups
}

func computeOne(id string, rows []model.TradeRow, cols columns) outcome {
	m, err := compute(model.AccountMetrics{AccountID: id}, rows, cols)
	return outcome{metrics: m, err: err}
}

func compute(m model.AccountMetrics, rows []model.TradeRow, cols columns) (model.AccountMetrics, error) {
	profits := make([]float64, len(rows))
	for i, r := range rows {
		p, err := number(r.Values[cols.profit])
		if err != nil {
			return m, fmt.Errorf("row %d profit: %w", i, err)
		}
		profits[i] = p
	}

	initial, err := notional(rows[0], cols)
	if err != nil {
		return m, err
	}
	final, err := notional(rows[len(rows)-1], cols)
	if err != nil {
		return m, err
	}

	n := len(profits)
	pnl := sum(profits)
	win := 0
	for _, p := range profits {
		if p > 0 {
			win++
		}
	}

	roi := 0.0
	if initial != 0 {
		roi = (final - initial) / initial
	}
	winRate := 0.0
	if n > 0 {
		winRate = float64(win) / float64(n)
	}

	m.PnL = pnl
	m.ROI = roi
	m.WinRate = winRate
	m.WinPositions = win
	m.TotalPositions = n
	m.SharpeRatio = sharpe(profits)
	m.MDD = maxDrawdown(profits)

	for _, c := range []struct {
		name string
		v    float64
	}{{"PnL", m.PnL}, {"ROI", m.ROI}, {"Sharpe_Ratio", m.SharpeRatio}, {"MDD", m.MDD}} {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return m, fmt.Errorf("%s: %w", c.name, ErrNonFinite)
		}
	}
	return m, nil
}

func notional(r model.TradeRow, cols columns) (float64, error) {
	price, err := number(r.Values[cols.price])
	if err != nil {
		return 0, fmt.Errorf("price: %w", err)
	}
	qty, err := number(r.Values[cols.quantity])
	if err != nil {
		return 0, fmt.Errorf("quantity: %w", err)
	}
	return price * qty, nil
}

// number coerces a cell to float64. Numeric strings are parsed.
func number(v model.Value) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNonNumeric, t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrNonNumeric, v)
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// sharpe is mean over sample standard deviation. A single trade divides
// by 1; zero deviation yields 0.
func sharpe(profits []float64) float64 {
	n := len(profits)
	if n == 0 {
		return 0
	}
	mean := sum(profits) / float64(n)
	if n == 1 {
		return mean
	}
	var ss float64
	for _, p := range profits {
		d := p - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 {
		return 0
	}
	return mean / std
}

// maxDrawdown is the largest drop of the cumulative profit below its
// running maximum.
func maxDrawdown(profits []float64) float64 {
	if len(profits) == 0 {
		return 0
	}
	var cum, peak, mdd float64
	for i, p := range profits {
		cum += p
		if i == 0 || cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > mdd {
			mdd = dd
		}
	}
	return mdd
}
