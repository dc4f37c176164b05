package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/market"
)

// MispricedHandler serves the published mispricing snapshot.
type MispricedHandler struct {
	agg          domain.AggregateCache
	defaultScope string
	logger       *slog.Logger
}

// NewMispricedHandler creates a MispricedHandler. defaultScope is the scope
// served when the request does not name one.
func NewMispricedHandler(agg domain.AggregateCache, defaultScope string, logger *slog.Logger) *MispricedHandler {
	return &MispricedHandler{
		agg:          agg,
		defaultScope: defaultScope,
		logger:       logHandler(logger, "mispriced"),
	}
}

// Get returns the cross-sport mispricing snapshot for a scope. Like the EV
// endpoints, a missing bucket is a 404 and an empty snapshot is a 200.
// GET /api/mispriced?scope=featured
func (h *MispricedHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = h.defaultScope
	}

	snap, err := h.agg.GetMispriced(r.Context(), market.MispricedKey(scope))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "no snapshot published for scope")
		case errors.Is(err, domain.ErrCacheUnavailable):
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
		default:
			h.logger.ErrorContext(r.Context(), "handler: mispriced read failed",
				slog.String("scope", scope),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to read snapshot")
		}
		return
	}

	writeJSON(w, http.StatusOK, snap)
}
