package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/queue"
	"github.com/MerlinD690/dashsac/internal/storage"
)

// RosterHandler serves the current agent set and next-agent selection
type RosterHandler struct {
	agents storage.AgentStore
	logger zerolog.Logger
}

// NewRosterHandler creates a new RosterHandler
func NewRosterHandler(agents storage.AgentStore, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		agents: agents,
		logger: logger.With().Str("component", "roster").Logger(),
	}
}

// GetAgents handles GET /api/agents
func (h *RosterHandler) GetAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.GetAllAgents(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load agents")
		writeError(w, http.StatusInternalServerError, "failed to load agents")
		return
	}

	writeJSON(w, http.StatusOK, agents)
}

// GetNextAgent handles GET /api/agents/next
func (h *RosterHandler) GetNextAgent(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.GetAllAgents(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load agents")
		writeError(w, http.StatusInternalServerError, "failed to load agents")
		return
	}

	next := queue.SelectNextAgent(agents)
	if next == nil {
		writeError(w, http.StatusNotFound, "no agent available")
		return
	}

	writeJSON(w, http.StatusOK, next)
}
