package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/agentstate"
	"github.com/MerlinD690/dashsac/internal/metrics"
	"github.com/MerlinD690/dashsac/internal/storage"
)

// ActionsHandler exposes the state-machine operations to the dashboard.
// Rejections carry the specific transition message so the UI can show it.
type ActionsHandler struct {
	machine *agentstate.Machine
	logger  zerolog.Logger
}

// NewActionsHandler creates a new ActionsHandler
func NewActionsHandler(machine *agentstate.Machine, logger zerolog.Logger) *ActionsHandler {
	return &ActionsHandler{
		machine: machine,
		logger:  logger.With().Str("component", "agent_actions").Logger(),
	}
}

// SetActiveClients handles POST /api/agents/{agentId}/clients
func (h *ActionsHandler) SetActiveClients(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := h.machine.SetActiveClients(r.Context(), agentID, req.Delta)
	if err != nil {
		h.respondActionError(w, err, "set active clients")
		return
	}

	writeJSON(w, http.StatusOK, agent)
}

// SetAvailability handles POST /api/agents/{agentId}/availability
func (h *ActionsHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	var req struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := h.machine.SetAvailability(r.Context(), agentID, req.Available)
	if err != nil {
		h.respondActionError(w, err, "set availability")
		return
	}

	writeJSON(w, http.StatusOK, agent)
}

// TogglePause handles POST /api/agents/{agentId}/pause
func (h *ActionsHandler) TogglePause(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	agent, log, err := h.machine.TogglePause(r.Context(), agentID)
	if err != nil {
		h.respondActionError(w, err, "toggle pause")
		return
	}

	response := map[string]interface{}{"agent": agent}
	if log != nil {
		response["pauseLog"] = log
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *ActionsHandler) respondActionError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, agentstate.ErrInvalidTransition):
		metrics.Get().RecordRejectedTransition()
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, "agent not found")
	default:
		h.logger.Error().Err(err).Str("action", action).Msg("agent action failed")
		writeError(w, http.StatusInternalServerError, "store write failed")
	}
}
