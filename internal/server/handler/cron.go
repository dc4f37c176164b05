package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oddsight/oddsight/internal/domain"
)

// PipelineTrigger runs one cycle of each scheduler job on demand. It is
// declared locally so the handler package does not depend on the concrete
// pipeline implementation.
type PipelineTrigger interface {
	RunEVOnce(ctx context.Context) error
	RunMispricedOnce(ctx context.Context) error
	RunAggregateOnce(ctx context.Context) error
}

// CronHandler serves the scheduled-trigger endpoints. External cron hits
// these; each request runs one full cycle synchronously so the caller's
// status code reflects the outcome.
type CronHandler struct {
	trigger PipelineTrigger
	logger  *slog.Logger
}

// NewCronHandler creates a CronHandler driving the given trigger.
func NewCronHandler(trigger PipelineTrigger, logger *slog.Logger) *CronHandler {
	return &CronHandler{
		trigger: trigger,
		logger:  logHandler(logger, "cron"),
	}
}

// TriggerEV runs one EV scan cycle.
// POST /api/cron/ev
func (h *CronHandler) TriggerEV(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, "ev", h.trigger.RunEVOnce)
}

// TriggerMispriced runs one mispricing scan cycle.
// POST /api/cron/mispriced
func (h *CronHandler) TriggerMispriced(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, "mispriced", h.trigger.RunMispricedOnce)
}

// TriggerAggregate runs one market aggregation cycle.
// POST /api/cron/aggregate
func (h *CronHandler) TriggerAggregate(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, "aggregate", h.trigger.RunAggregateOnce)
}

func (h *CronHandler) runJob(w http.ResponseWriter, r *http.Request, name string, job func(context.Context) error) {
	if h.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}

	start := time.Now()
	h.logger.InfoContext(r.Context(), "handler: cron trigger", slog.String("job", name))

	err := job(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"job":         name,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	case errors.Is(err, domain.ErrLockHeld):
		// Another run holds the lock. Skipping is the designed outcome,
		// not a failure, so cron sees a 200.
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "skipped",
			"job":    name,
			"reason": "another run in progress",
		})
	case errors.Is(err, domain.ErrCacheUnavailable):
		writeError(w, http.StatusServiceUnavailable, "cache unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "handler: cron job failed",
			slog.String("job", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, name+" run failed")
	}
}
