package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/predictleague/settlement/internal/domain"
	"github.com/predictleague/settlement/internal/service"
)

// ScoringService defines the methods that the season handler requires from
// the service layer.
type ScoringService interface {
	Leaderboard(ctx context.Context, season string, n int) ([]domain.LeaderboardEntry, error)
	GetProfile(ctx context.Context, userID, season string) (service.Profile, error)
}

// SeasonHandler serves season standings HTTP endpoints.
type SeasonHandler struct {
	scoring ScoringService
	logger  *slog.Logger
}

// NewSeasonHandler creates a SeasonHandler with the given service and logger.
func NewSeasonHandler(scoring ScoringService, logger *slog.Logger) *SeasonHandler {
	return &SeasonHandler{
		scoring: scoring,
		logger:  logger,
	}
}

// leaderboardResponse wraps the leaderboard output.
type leaderboardResponse struct {
	Season  string                    `json:"season"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// GetLeaderboard returns the season's top users.
// GET /api/seasons/{season}/leaderboard?n=10
func (h *SeasonHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	season := pathParam(r, "season")
	if season == "" {
		writeError(w, http.StatusBadRequest, "missing season")
		return
	}

	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	if n > 100 {
		n = 100
	}

	entries, err := h.scoring.Leaderboard(r.Context(), season, n)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		Season:  season,
		Entries: entries,
	})
}

// GetProfile returns a user's season standing with win rate.
// GET /api/seasons/{season}/users/{user}
func (h *SeasonHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	season := pathParam(r, "season")
	userID := pathParam(r, "user")
	if season == "" || userID == "" {
		writeError(w, http.StatusBadRequest, "missing season or user")
		return
	}

	p, err := h.scoring.GetProfile(r.Context(), userID, season)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
