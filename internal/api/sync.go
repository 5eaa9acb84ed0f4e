package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/reconcile"
)

// SyncHandler exposes the reconciliation loop to the dashboard
type SyncHandler struct {
	loop   *reconcile.Loop
	logger zerolog.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(loop *reconcile.Loop, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		loop:   loop,
		logger: logger.With().Str("component", "sync_api").Logger(),
	}
}

// GetStatus handles GET /api/sync/status
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.loop.Status())
}

// RunNow handles POST /api/sync/run. The cycle runs synchronously; when one
// is already in flight the request is rejected rather than queued.
func (h *SyncHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if !h.loop.RunNow(r.Context()) {
		writeError(w, http.StatusConflict, "sync cycle already running")
		return
	}
	writeJSON(w, http.StatusOK, h.loop.Status())
}
