package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predictleague/settlement/internal/domain"
)

// AccountService defines the methods that the account handler requires from
// the service layer.
type AccountService interface {
	Deposit(ctx context.Context, userID string, amount int64) (domain.Account, error)
	Get(ctx context.Context, userID string) (domain.Account, error)
}

// AccountHandler serves custody account HTTP endpoints.
type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler with the given service and logger.
func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger,
	}
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

// Deposit credits a user's custody account. Admin role.
// POST /api/accounts/{user}/deposit
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.accounts.Deposit(r.Context(), userID, req.Amount)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// GetAccount returns a user's custody balance.
// GET /api/accounts/{user}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	a, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}
