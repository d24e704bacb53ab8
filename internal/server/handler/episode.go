package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predictleague/settlement/internal/domain"
	"github.com/predictleague/settlement/internal/service"
)

// EpisodeService defines the methods that the episode handler requires from
// the service layer.
type EpisodeService interface {
	SettleEpisode(ctx context.Context, episodeID, season string, picks []domain.EpisodePick) ([]service.UserResult, error)
}

// EpisodeHandler serves the fixed-odds episode settlement endpoint.
type EpisodeHandler struct {
	scoring EpisodeService
	logger  *slog.Logger
}

// NewEpisodeHandler creates an EpisodeHandler with the given service and logger.
func NewEpisodeHandler(scoring EpisodeService, logger *slog.Logger) *EpisodeHandler {
	return &EpisodeHandler{
		scoring: scoring,
		logger:  logger,
	}
}

type episodePick struct {
	UserID    string `json:"user_id"`
	Correct   bool   `json:"correct"`
	Odds      int    `json:"odds"`
	Risk      bool   `json:"risk,omitempty"`
	JokerUsed bool   `json:"joker_used,omitempty"`
}

type settleEpisodeRequest struct {
	Season string        `json:"season"`
	Picks  []episodePick `json:"picks"`
}

// settleEpisodeResponse wraps the per-user batch results.
type settleEpisodeResponse struct {
	EpisodeID string               `json:"episode_id"`
	Season    string               `json:"season"`
	Results   []service.UserResult `json:"results"`
}

// SettleEpisode scores a batch of fixed-odds picks. Resolver role.
// POST /api/episodes/{id}/settle
func (h *EpisodeHandler) SettleEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := pathParam(r, "id")
	if episodeID == "" {
		writeError(w, http.StatusBadRequest, "missing episode id")
		return
	}

	var req settleEpisodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Season == "" || len(req.Picks) == 0 {
		writeError(w, http.StatusBadRequest, "missing season or picks")
		return
	}

	picks := make([]domain.EpisodePick, 0, len(req.Picks))
	for _, p := range req.Picks {
		if p.UserID == "" {
			writeError(w, http.StatusBadRequest, "pick missing user_id")
			return
		}
		picks = append(picks, domain.EpisodePick{
			UserID:    p.UserID,
			Correct:   p.Correct,
			Odds:      p.Odds,
			Risk:      p.Risk,
			JokerUsed: p.JokerUsed,
		})
	}

	results, err := h.scoring.SettleEpisode(r.Context(), episodeID, req.Season, picks)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, settleEpisodeResponse{
		EpisodeID: episodeID,
		Season:    req.Season,
		Results:   results,
	})
}
