package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/predictleague/settlement/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	Create(ctx context.Context, m domain.Market, now time.Time) (domain.Market, error)
	Get(ctx context.Context, id string) (domain.Market, error)
	ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	ListResolved(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	Resolve(ctx context.Context, marketID string, correctOption int, now time.Time) (domain.Market, error)
}

// MarketHandler serves market lifecycle HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

type createMarketRequest struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Kind        string    `json:"kind"`
	OptionCount int       `json:"option_count"`
	LockTime    time.Time `json:"lock_time"`
}

// CreateMarket creates a new open market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.markets.Create(r.Context(), domain.Market{
		ID:          req.ID,
		Question:    req.Question,
		Kind:        domain.MarketKind(req.Kind),
		OptionCount: req.OptionCount,
		LockTime:    req.LockTime,
	}, time.Now())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// listMarketsResponse wraps the list endpoint output with pagination echo.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns open markets, or resolved ones with ?state=resolved.
// GET /api/markets?state=open&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		markets []domain.Market
		err     error
	)
	if r.URL.Query().Get("state") == "resolved" {
		markets, err = h.markets.ListResolved(r.Context(), opts)
	} else {
		markets, err = h.markets.ListOpen(r.Context(), opts)
	}
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	m, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

type resolveMarketRequest struct {
	CorrectOption int `json:"correct_option"`
}

// ResolveMarket settles a market to its correct option. Resolver role.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req resolveMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.markets.Resolve(r.Context(), id, req.CorrectOption, time.Now())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}
