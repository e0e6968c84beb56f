package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for the asset catalog
type Handlers struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandlers creates a new catalog handlers instance
func NewHandlers(repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "catalog").Logger(),
	}
}

// HandleListAssets returns the tradable asset catalog
// GET /api/assets
func (h *Handlers) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assets")
		h.writeError(w, http.StatusInternalServerError, "Failed to list assets")
		return
	}

	response := make([]map[string]interface{}, 0, len(assets))
	for _, a := range assets {
		response = append(response, map[string]interface{}{
			"symbol": a.Symbol,
			"name":   a.Name,
			"kind":   string(a.Kind),
		})
	}

	h.writeJSON(w, http.StatusOK, response)
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
