package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// PayoutService defines the methods that the payout handler requires from the
// service layer.
type PayoutService interface {
	Calculate(ctx context.Context, marketID, userID string) (int64, error)
	Claim(ctx context.Context, marketID, userID string, now time.Time) (int64, error)
}

// PayoutHandler serves payout HTTP endpoints.
type PayoutHandler struct {
	payouts PayoutService
	logger  *slog.Logger
}

// NewPayoutHandler creates a PayoutHandler with the given service and logger.
func NewPayoutHandler(payouts PayoutService, logger *slog.Logger) *PayoutHandler {
	return &PayoutHandler{
		payouts: payouts,
		logger:  logger,
	}
}

type payoutResponse struct {
	MarketID string `json:"market_id"`
	UserID   string `json:"user_id"`
	Payout   int64  `json:"payout"`
}

// GetPayout reports a user's entitlement on a resolved market without
// claiming it.
// GET /api/markets/{id}/payout?user=<id>
func (h *PayoutHandler) GetPayout(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	userID := r.URL.Query().Get("user")
	if marketID == "" || userID == "" {
		writeError(w, http.StatusBadRequest, "missing market id or user")
		return
	}

	payout, err := h.payouts.Calculate(r.Context(), marketID, userID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, payoutResponse{
		MarketID: marketID,
		UserID:   userID,
		Payout:   payout,
	})
}

type claimRequest struct {
	UserID string `json:"user_id"`
}

// Claim pays out a user's stake exactly once.
// POST /api/markets/{id}/claim
func (h *PayoutHandler) Claim(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}

	payout, err := h.payouts.Claim(r.Context(), marketID, req.UserID, time.Now())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, payoutResponse{
		MarketID: marketID,
		UserID:   req.UserID,
		Payout:   payout,
	})
}
