package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/predictleague/settlement/internal/domain"
)

// JokerService defines the methods that the joker handler requires from the
// service layer.
type JokerService interface {
	Grant(ctx context.Context, userID, season string, count int) (domain.JokerGrant, error)
	Use(ctx context.Context, marketID, userID, season string, now time.Time) (domain.Stake, error)
	Remaining(ctx context.Context, userID, season string) (domain.JokerGrant, error)
}

// JokerHandler serves joker HTTP endpoints.
type JokerHandler struct {
	jokers JokerService
	logger *slog.Logger
}

// NewJokerHandler creates a JokerHandler with the given service and logger.
func NewJokerHandler(jokers JokerService, logger *slog.Logger) *JokerHandler {
	return &JokerHandler{
		jokers: jokers,
		logger: logger,
	}
}

type grantJokersRequest struct {
	UserID string `json:"user_id"`
	Season string `json:"season"`
	Count  int    `json:"count"`
}

// GrantJokers adds jokers to a user's season allowance. Admin role.
// POST /api/jokers/grant
func (h *JokerHandler) GrantJokers(w http.ResponseWriter, r *http.Request) {
	var req grantJokersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Season == "" {
		writeError(w, http.StatusBadRequest, "missing user_id or season")
		return
	}

	g, err := h.jokers.Grant(r.Context(), req.UserID, req.Season, req.Count)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}

type useJokerRequest struct {
	UserID string `json:"user_id"`
	Season string `json:"season"`
}

// UseJoker attaches a joker to the user's stake on an open market.
// POST /api/markets/{id}/joker
func (h *JokerHandler) UseJoker(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req useJokerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Season == "" {
		writeError(w, http.StatusBadRequest, "missing user_id or season")
		return
	}

	st, err := h.jokers.Use(r.Context(), marketID, req.UserID, req.Season, time.Now())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// GetJokers reports a user's remaining jokers for a season.
// GET /api/jokers/{user}?season=<season>
func (h *JokerHandler) GetJokers(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "user")
	season := r.URL.Query().Get("season")
	if userID == "" || season == "" {
		writeError(w, http.StatusBadRequest, "missing user or season")
		return
	}

	g, err := h.jokers.Remaining(r.Context(), userID, season)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}
