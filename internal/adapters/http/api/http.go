// Package api serves the computed leaderboard over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/okian/tradeboard/internal/adapters/repository"
	"github.com/okian/tradeboard/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	TopN(ctx context.Context, n int) ([]model.RankedAccount, error)
	Rank(ctx context.Context, accountID string) (model.RankedAccount, error)
	Stats(ctx context.Context) repository.Stats
}

// Server wires HTTP routes for the leaderboard API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps
// the leaderboard limit parameter.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

// Entry is the JSON shape of one ranked account. NaN values are null.
type Entry struct {
	AccountID             string   `json:"account_id"`
	Rank                  *int     `json:"rank"`
	Score                 *float64 `json:"score"`
	PnL                   float64  `json:"pnl"`
	ROI                   float64  `json:"roi"`
	WinRate               float64  `json:"win_rate"`
	WinPositions          int      `json:"win_positions"`
	TotalPositions        int      `json:"total_positions"`
	SharpeRatio           float64  `json:"sharpe_ratio"`
	MDD                   float64  `json:"mdd"`
	ROINormalized         *float64 `json:"roi_normalized"`
	PnLNormalized         *float64 `json:"pnl_normalized"`
	SharpeRatioNormalized *float64 `json:"sharpe_ratio_normalized"`
	WinRateNormalized     *float64 `json:"win_rate_normalized"`
}

// NewEntry converts a ranked account to its JSON shape.
func NewEntry(r model.RankedAccount) Entry {
	e := Entry{
		AccountID:             r.AccountID,
		Score:                 finite(r.Score),
		PnL:                   r.PnL,
		ROI:                   r.ROI,
		WinRate:               r.WinRate,
		WinPositions:          r.WinPositions,
		TotalPositions:        r.TotalPositions,
		SharpeRatio:           r.SharpeRatio,
		MDD:                   r.MDD,
		ROINormalized:         finite(r.ROINormalized),
		PnLNormalized:         finite(r.PnLNormalized),
		SharpeRatioNormalized: finite(r.SharpeRatioNormalized),
		WinRateNormalized:     finite(r.WinRateNormalized),
	}
	if r.Rank > 0 {
		rank := r.Rank
		e.Rank = &rank
	}
	return e
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

type statsResponse struct {
	repository.Stats
	GeneratedAt string `json:"generated_at"`
}

func newStatsResponse(s repository.Stats) statsResponse {
	resp := statsResponse{Stats: s}
	if !s.GeneratedAt.IsZero() {
		resp.GeneratedAt = s.GeneratedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
