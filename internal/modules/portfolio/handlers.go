package portfolio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lungfish-labs/simex/internal/domain"
	"github.com/lungfish-labs/simex/pkg/formulas"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

// Handlers contains HTTP handlers for portfolio valuation and history
type Handlers struct {
	valuator  *Valuator
	snapshots *SnapshotRepository
	log       zerolog.Logger
}

// NewHandlers creates a new portfolio handlers instance
func NewHandlers(valuator *Valuator, snapshots *SnapshotRepository, log zerolog.Logger) *Handlers {
	return &Handlers{
		valuator:  valuator,
		snapshots: snapshots,
		log:       log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns the freshly computed portfolio valuation
// GET /api/portfolio
func (h *Handlers) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	accountID, ok := domain.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	response, err := h.valuator.Valuate(accountID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAccount) {
			h.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to value portfolio")
		h.writeError(w, http.StatusInternalServerError, "Failed to value portfolio")
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleHistory returns daily portfolio snapshots, oldest first
// GET /api/portfolio/history?days=
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := domain.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	days, err := h.parseDays(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshots, err := h.snapshots.GetHistory(accountID, days)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to load snapshot history")
		h.writeError(w, http.StatusInternalServerError, "Failed to load portfolio history")
		return
	}

	if snapshots == nil {
		snapshots = []Snapshot{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":      days,
		"snapshots": snapshots,
	})
}

// HandlePerformance returns return/risk statistics over the snapshot
// series
// GET /api/portfolio/performance?days=
func (h *Handlers) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := domain.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	days, err := h.parseDays(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshots, err := h.snapshots.GetHistory(accountID, days)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to load snapshot history")
		h.writeError(w, http.StatusInternalServerError, "Failed to load portfolio history")
		return
	}

	values := make([]float64, 0, len(snapshots))
	for _, s := range snapshots {
		values = append(values, s.TotalValue.InexactFloat64())
	}

	returns := formulas.CalculateReturns(values)

	var totalReturn float64
	if len(values) >= 2 && values[0] != 0 {
		totalReturn = (values[len(values)-1] - values[0]) / values[0]
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":                  days,
		"samples":               len(values),
		"total_return":          totalReturn,
		"mean_daily_return":     formulas.Mean(returns),
		"daily_volatility":      formulas.StdDev(returns),
		"annualized_volatility": formulas.AnnualizedVolatility(returns),
		"max_drawdown":          formulas.MaxDrawdown(values),
	})
}

func (h *Handlers) parseDays(r *http.Request) (int, error) {
	days := defaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return 0, errors.New("days must be a positive integer")
		}
		if n > maxHistoryDays {
			n = maxHistoryDays
		}
		days = n
	}
	return days, nil
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
