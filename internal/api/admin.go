package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/seed"
	"github.com/MerlinD690/dashsac/internal/storage"
)

// AdminHandler holds the destructive maintenance operations. These exist for
// onboarding and end-of-season resets, not for day-to-day use.
type AdminHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(store storage.Store, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		store:  store,
		logger: logger.With().Str("component", "admin").Logger(),
	}
}

// Reseed handles POST /api/admin/reseed: drops the current roster and
// inserts the default one with all counters at zero
func (h *AdminHandler) Reseed(w http.ResponseWriter, r *http.Request) {
	agents := seed.DefaultAgents()
	if err := seed.ClearAndSeed(r.Context(), h.store, agents); err != nil {
		h.logger.Error().Err(err).Msg("reseed failed")
		writeError(w, http.StatusInternalServerError, "reseed failed")
		return
	}

	h.logger.Info().Int("agents", len(agents)).Msg("roster reseeded")
	writeJSON(w, http.StatusOK, agents)
}

// Wipe handles POST /api/admin/wipe: removes agents, pause logs and reports
func (h *AdminHandler) Wipe(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TruncateAll(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("wipe failed")
		writeError(w, http.StatusInternalServerError, "wipe failed")
		return
	}

	h.logger.Info().Msg("all data wiped")
	writeJSON(w, http.StatusOK, map[string]string{"status": "wiped"})
}
