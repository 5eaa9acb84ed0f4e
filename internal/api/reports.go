package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/report"
	"github.com/MerlinD690/dashsac/internal/storage"
	"github.com/MerlinD690/dashsac/internal/types"
)

// ReportsHandler serves daily reports and the pause-log export feed
type ReportsHandler struct {
	accumulator *report.Accumulator
	reports     storage.ReportStore
	pauses      storage.PauseLogStore
	logger      zerolog.Logger
}

// NewReportsHandler creates a new ReportsHandler
func NewReportsHandler(accumulator *report.Accumulator, reports storage.ReportStore, pauses storage.PauseLogStore, logger zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		accumulator: accumulator,
		reports:     reports,
		pauses:      pauses,
		logger:      logger.With().Str("component", "reports_api").Logger(),
	}
}

// Generate handles POST /api/reports/generate. An optional ?date=YYYY-MM-DD
// re-runs a past day; the default is today. Re-running overwrites.
func (h *ReportsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(types.DateKeyFormat, raw, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	generated, err := h.accumulator.BuildDailyReport(r.Context(), day)
	if err != nil {
		h.logger.Error().Err(err).Msg("report generation failed")
		writeError(w, http.StatusInternalServerError, "report generation failed")
		return
	}

	writeJSON(w, http.StatusOK, generated)
}

// List handles GET /api/reports?limit=N (newest first, default 30)
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	reports, err := h.reports.ListRecentReports(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list reports")
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	writeJSON(w, http.StatusOK, reports)
}

// GetPauseLogs handles GET /api/pauses?start=YYYY-MM-DD&end=YYYY-MM-DD.
// The end day is inclusive. This feeds the spreadsheet export on the UI.
func (h *ReportsHandler) GetPauseLogs(w http.ResponseWriter, r *http.Request) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" || endRaw == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	start, err := time.ParseInLocation(types.DateKeyFormat, startRaw, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
		return
	}
	end, err := time.ParseInLocation(types.DateKeyFormat, endRaw, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not precede start")
		return
	}

	logs, err := h.pauses.PauseLogsInRange(r.Context(), start, end.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load pause logs")
		writeError(w, http.StatusInternalServerError, "failed to load pause logs")
		return
	}

	writeJSON(w, http.StatusOK, logs)
}
