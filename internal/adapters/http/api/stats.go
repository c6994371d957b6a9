package api

import (
	"context"
	"net/http"

	"github.com/okian/tradeboard/internal/adapters/repository"
)

// StatsProvider defines the interface for getting batch statistics.
type StatsProvider interface {
	Stats(ctx context.Context) repository.Stats
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, newStatsResponse(h.statsProvider.Stats(r.Context())))
}
