// Package scoring normalizes account metrics, combines them into a
// weighted score and ranks the accounts.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/okian/tradeboard/internal/domain/model"
)

// Default metric weights.
const (
	defaultROIWeight         = 0.4
	defaultPnLWeight         = 0.3
	defaultSharpeRatioWeight = 0.2
	defaultWinRateWeight     = 0.1
)

// Ranking errors.
var (
	ErrInvalidTopN    = errors.New("top n must be at least 1")
	ErrInvalidPolicy  = errors.New("unknown zero spread policy")
	ErrInvalidWeights = errors.New("weights must be finite and non-negative")
)

// Weights are the score weights of the four normalized metrics.
type Weights struct {
	ROI         float64
	PnL         float64
	SharpeRatio float64
	WinRate     float64
}

// DefaultWeights returns ROI 0.4, PnL 0.3, Sharpe ratio 0.2, win rate 0.1.
func DefaultWeights() Weights {
	return Weights{
		ROI:         defaultROIWeight,
		PnL:         defaultPnLWeight,
		SharpeRatio: defaultSharpeRatioWeight,
		WinRate:     defaultWinRateWeight,
	}
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	for _, v := range []float64{w.ROI, w.PnL, w.SharpeRatio, w.WinRate} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %v", ErrInvalidWeights, w)
		}
	}
	return nil
}

// ZeroSpreadPolicy decides the normalized value of a metric whose minimum
// equals its maximum across all accounts.
type ZeroSpreadPolicy string

const (
	// ZeroSpreadZero normalizes every account to 0.
	ZeroSpreadZero ZeroSpreadPolicy = "zero"
	// ZeroSpreadNaN normalizes every account to NaN, which makes the score
	// NaN and leaves the account unranked.
	ZeroSpreadNaN ZeroSpreadPolicy = "nan"
)

// ParseZeroSpreadPolicy parses "zero" or "nan".
func ParseZeroSpreadPolicy(s string) (ZeroSpreadPolicy, error) {
	switch p := ZeroSpreadPolicy(s); p {
	case ZeroSpreadZero, ZeroSpreadNaN:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// Ranker scores and ranks accounts.
type Ranker struct {
	weights Weights
	policy  ZeroSpreadPolicy
}

// NewRanker creates a Ranker with the default weights and the zero policy.
func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{
		weights: DefaultWeights(),
		policy:  ZeroSpreadZero,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Weights returns the weights in use.
func (r *Ranker) Weights() Weights { return r.weights }

// Rank scores every account and returns the top n by rank value. Accounts
// tied with the n-th row are all included.
func (r *Ranker) Rank(metrics []model.AccountMetrics, topN int) ([]model.RankedAccount, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}
	return Select(r.RankAll(metrics), topN)
}

// RankAll scores every account and returns them in ascending rank order,
// ties in input order. Accounts with a NaN score come last with rank 0.
func (r *Ranker) RankAll(metrics []model.AccountMetrics) []model.RankedAccount {
	ranked := make([]model.RankedAccount, len(metrics))
	for i, m := range metrics {
		ranked[i].AccountMetrics = m
	}

	norm := func(get func(model.AccountMetrics) float64, set func(*model.RankedAccount, float64)) {
		values := make([]float64, len(metrics))
		for i, m := range metrics {
			values[i] = get(m)
		}
		for i, v := range r.normalize(values) {
			set(&ranked[i], v)
		}
	}
	norm(func(m model.AccountMetrics) float64 { return m.ROI },
		func(a *model.RankedAccount, v float64) { a.ROINormalized = v })
	norm(func(m model.AccountMetrics) float64 { return m.PnL },
		func(a *model.RankedAccount, v float64) { a.PnLNormalized = v })
	norm(func(m model.AccountMetrics) float64 { return m.SharpeRatio },
		func(a *model.RankedAccount, v float64) { a.SharpeRatioNormalized = v })
	norm(func(m model.AccountMetrics) float64 { return m.WinRate },
		func(a *model.RankedAccount, v float64) { a.WinRateNormalized = v })

	w := r.weights
	for i := range ranked {
		a := &ranked[i]
		a.Score = w.ROI*a.ROINormalized +
			w.PnL*a.PnLNormalized +
			w.SharpeRatio*a.SharpeRatioNormalized +
			w.WinRate*a.WinRateNormalized
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ranked[i].Score, ranked[j].Score
		if math.IsNaN(sj) {
			return !math.IsNaN(si)
		}
		return si > sj
	})

	for i := range ranked {
		switch {
		case math.IsNaN(ranked[i].Score):
			ranked[i].Rank = 0
		case i > 0 && ranked[i].Score == ranked[i-1].Score:
			ranked[i].Rank = ranked[i-1].Rank
		default:
			ranked[i].Rank = i + 1
		}
	}
	return ranked
}

// normalize maps values onto [0, 1] by min-max scaling.
func (r *Ranker) normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	spread := hi - lo
	for i, v := range values {
		switch {
		case spread != 0:
			out[i] = (v - lo) / spread
		case r.policy == ZeroSpreadNaN:
			out[i] = math.NaN()
		default:
			out[i] = 0
		}
	}
	return out
}

// Select returns the ranked accounts whose rank is at most the rank of the
// n-th ranked row. Unranked accounts are never selected.
func Select(ranked []model.RankedAccount, topN int) ([]model.RankedAccount, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}
	eligible := ranked[:0:0]
	for _, a := range ranked {
		if a.Rank > 0 {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) <= topN {
		return eligible, nil
	}
	boundary := eligible[topN-1].Rank
	n := topN
	for n < len(eligible) && eligible[n].Rank <= boundary {
		n++
	}
	return eligible[:n], nil
}
