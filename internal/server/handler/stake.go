package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/predictleague/settlement/internal/domain"
)

// StakeService defines the methods that the stake handler requires from the
// service layer.
type StakeService interface {
	Place(ctx context.Context, marketID, userID string, option int, amount, tendered int64, risk bool, now time.Time) (domain.PlacedStake, error)
	Get(ctx context.Context, marketID, userID string) (domain.Stake, error)
	ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Stake, error)
	ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Stake, error)
}

// StakeHandler serves stake HTTP endpoints.
type StakeHandler struct {
	stakes StakeService
	logger *slog.Logger
}

// NewStakeHandler creates a StakeHandler with the given service and logger.
func NewStakeHandler(stakes StakeService, logger *slog.Logger) *StakeHandler {
	return &StakeHandler{
		stakes: stakes,
		logger: logger,
	}
}

type placeStakeRequest struct {
	UserID   string `json:"user_id"`
	Option   int    `json:"option"`
	Amount   int64  `json:"amount"`
	Tendered int64  `json:"tendered,omitempty"`
	Risk     bool   `json:"risk,omitempty"`
}

// PlaceStake places a stake on an open market.
// POST /api/markets/{id}/stakes
func (h *StakeHandler) PlaceStake(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req placeStakeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}

	placed, err := h.stakes.Place(r.Context(), marketID, req.UserID, req.Option,
		req.Amount, req.Tendered, req.Risk, time.Now())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, placed)
}

// listStakesResponse wraps the list endpoint output with pagination echo.
type listStakesResponse struct {
	Stakes []domain.Stake `json:"stakes"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListStakes returns the stakes placed on a market.
// GET /api/markets/{id}/stakes
func (h *StakeHandler) ListStakes(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	opts := parseListOpts(r)
	stakes, err := h.stakes.ListByMarket(r.Context(), marketID, opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	if stakes == nil {
		stakes = []domain.Stake{}
	}
	writeJSON(w, http.StatusOK, listStakesResponse{
		Stakes: stakes,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// ListUserStakes returns a user's stakes across markets.
// GET /api/users/{user}/stakes
func (h *StakeHandler) ListUserStakes(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	opts := parseListOpts(r)
	stakes, err := h.stakes.ListByUser(r.Context(), userID, opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	if stakes == nil {
		stakes = []domain.Stake{}
	}
	writeJSON(w, http.StatusOK, listStakesResponse{
		Stakes: stakes,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}
