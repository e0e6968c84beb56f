package trading

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lungfish-labs/simex/internal/domain"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

// Handlers contains HTTP handlers for trade execution and history
type Handlers struct {
	executor *Executor
	trades   *TradeRepository
	log      zerolog.Logger
}

// NewHandlers creates a new trading handlers instance
func NewHandlers(executor *Executor, trades *TradeRepository, log zerolog.Logger) *Handlers {
	return &Handlers{
		executor: executor,
		trades:   trades,
		log:      log.With().Str("handler", "trading").Logger(),
	}
}

// HandleBuy executes a buy order for the authenticated account
// POST /api/trade/buy
func (h *Handlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, domain.SideBuy)
}

// HandleSell executes a sell order for the authenticated account
// POST /api/trade/sell
func (h *Handlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, domain.SideSell)
}

func (h *Handlers) handleTrade(w http.ResponseWriter, r *http.Request, side domain.Side) {
	accountID, ok := domain.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.AssetSymbol == "" {
		h.writeError(w, http.StatusBadRequest, "asset_symbol is required")
		return
	}

	result, err := h.executor.Execute(accountID, req.AssetSymbol, side, req.Quantity, req.Price)
	if err != nil {
		h.writeTradeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":           "Trade executed successfully",
		"trade":             NewTradeView(result.Trade),
		"remaining_balance": result.RemainingBalance,
	})
}

// HandleHistory returns the account's trades newest first
// GET /api/trades/history?limit=&offset=
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := domain.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	trades, err := h.trades.History(accountID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to load trade history")
		h.writeError(w, http.StatusInternalServerError, "Failed to load trade history")
		return
	}

	views := make([]TradeView, 0, len(trades))
	for i := range trades {
		views = append(views, NewTradeView(&trades[i]))
	}

	h.writeJSON(w, http.StatusOK, views)
}

// HandleAttachSettlement attaches a settlement reference to one of the
// account's trades
// POST /api/trades/{tradeID}/settlement
func (h *Handlers) HandleAttachSettlement(w http.ResponseWriter, r *http.Request) {
	accountID, ok := domain.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tradeID := chi.URLParam(r, "tradeID")

	var req SettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Reference == "" {
		h.writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	trade, err := h.trades.GetByID(tradeID)
	if err != nil || trade.AccountID != accountID {
		// Not found and not-yours look the same from outside.
		h.writeError(w, http.StatusNotFound, "Trade not found")
		return
	}

	if err := h.trades.AttachSettlement(tradeID, req.Reference); err != nil {
		if errors.Is(err, domain.ErrSettlementConflict) {
			h.writeError(w, http.StatusConflict, "Trade already has a settlement reference")
			return
		}
		h.log.Error().Err(err).Str("trade_id", tradeID).Msg("Failed to attach settlement reference")
		h.writeError(w, http.StatusInternalServerError, "Failed to attach settlement reference")
		return
	}

	updated, err := h.trades.GetByID(tradeID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load trade")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Settlement reference attached",
		"trade":   NewTradeView(updated),
	})
}

func (h *Handlers) writeTradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownAsset):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientHoldings):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPriceOutOfBand),
		errors.Is(err, domain.ErrConcurrencyConflict):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Msg("Trade execution failed")
		h.writeError(w, http.StatusInternalServerError, "Trade execution failed")
	}
}

// HTTP helpers

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
