package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/market"
)

// HistoryHandler serves the Postgres-backed audit surface: EV history rows
// and scheduler run records. Both stores are optional; when the deployment
// runs without Postgres the endpoints answer 503.
type HistoryHandler struct {
	history domain.EVHistoryStore
	runs    domain.ScanRunStore
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler. Either store may be nil.
func NewHistoryHandler(history domain.EVHistoryStore, runs domain.ScanRunStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		runs:    runs,
		logger:  logHandler(logger, "history"),
	}
}

type evHistoryResponse struct {
	Sport   string            `json:"sport"`
	Since   time.Time         `json:"since"`
	Records []domain.EVRecord `json:"records"`
}

// ListEV returns persisted EV records for a sport since a timestamp.
// GET /api/history/ev/{sport}?since=2026-08-30T00:00:00Z&limit=100
func (h *HistoryHandler) ListEV(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}

	sport := r.PathValue("sport")
	if len(market.ForSport(sport)) == 0 {
		writeError(w, http.StatusBadRequest, "unknown sport")
		return
	}

	since := queryTime(r, "since", time.Now().UTC().Add(-24*time.Hour))
	limit := clampLimit(queryInt(r, "limit", 100), 100, 1000)

	records, err := h.history.ListBySport(r.Context(), sport, since, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list ev history failed",
			slog.String("sport", sport),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	writeJSON(w, http.StatusOK, evHistoryResponse{
		Sport:   sport,
		Since:   since,
		Records: records,
	})
}

type scanRunsResponse struct {
	Kind string           `json:"kind"`
	Runs []domain.ScanRun `json:"runs"`
}

// ListRuns returns recent scheduler run audit records.
// GET /api/runs?kind=ev&limit=50
func (h *HistoryHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	kind := r.URL.Query().Get("kind")
	limit := clampLimit(queryInt(r, "limit", 50), 50, 500)

	runs, err := h.runs.ListRecent(r.Context(), kind, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list runs failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, scanRunsResponse{Kind: kind, Runs: runs})
}
