package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/market"
)

// EVHandler serves the published EV aggregate buckets. It reads only what
// the schedulers have already published; nothing is computed per request.
type EVHandler struct {
	agg        domain.AggregateCache
	thresholds []int
	logger     *slog.Logger
}

// NewEVHandler creates an EVHandler backed by the aggregate cache. thresholds
// lists the per-event bucket percentages the pipeline publishes.
func NewEVHandler(agg domain.AggregateCache, thresholds []int, logger *slog.Logger) *EVHandler {
	return &EVHandler{
		agg:        agg,
		thresholds: thresholds,
		logger:     logHandler(logger, "ev"),
	}
}

// GetSport returns the combined per-sport EV snapshot. A missing bucket
// (never published, or expired) is a 404; a published snapshot with zero
// records is a 200 with an empty list.
// GET /api/ev/{sport}
func (h *EVHandler) GetSport(w http.ResponseWriter, r *http.Request) {
	sport := r.PathValue("sport")
	if len(market.ForSport(sport)) == 0 {
		writeError(w, http.StatusBadRequest, "unknown sport")
		return
	}

	snap, err := h.agg.GetEV(r.Context(), market.EVSportKey(sport))
	if err != nil {
		h.writeGetError(w, r, err, "no snapshot published for sport")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// GetEvent returns the per-event EV bucket at a threshold percentage.
// Only the thresholds the pipeline publishes are accepted.
// GET /api/ev/{sport}/events/{event}?threshold=3
func (h *EVHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	sport := r.PathValue("sport")
	if len(market.ForSport(sport)) == 0 {
		writeError(w, http.StatusBadRequest, "unknown sport")
		return
	}
	eventID := r.PathValue("event")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "missing event id")
		return
	}

	threshold := queryInt(r, "threshold", h.defaultThreshold())
	if !slices.Contains(h.thresholds, threshold) {
		writeError(w, http.StatusBadRequest, "unsupported threshold")
		return
	}

	snap, err := h.agg.GetEV(r.Context(), market.EVEventKey(threshold, sport, eventID))
	if err != nil {
		h.writeGetError(w, r, err, "no snapshot published for event")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *EVHandler) defaultThreshold() int {
	if len(h.thresholds) == 0 {
		return 0
	}
	return slices.Min(h.thresholds)
}

func (h *EVHandler) writeGetError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, domain.ErrCacheUnavailable):
		writeError(w, http.StatusServiceUnavailable, "cache unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "handler: ev read failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read snapshot")
	}
}
