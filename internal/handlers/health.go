package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Billy-Davies-2/fightpick/internal/logger"
)

type check map[string]interface{}

// Health reports the store, event bus and analytics sink
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if count, err := h.store.Count(ctx); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		checks["database"] = check{"status": "unhealthy", "error": err.Error()}
		logger.Warn("Health check: database unhealthy", "error", err)
	} else {
		checks["database"] = check{"status": "healthy", "predictions": count}
	}

	checks["events"] = check{"status": "healthy"}

	if h.sink != nil {
		if counts, err := h.sink.FighterCounts(ctx); err != nil {
			status = "degraded"
			checks["analytics"] = check{"status": "unhealthy", "error": err.Error()}
			logger.Warn("Health check: analytics unhealthy", "error", err)
		} else {
			checks["analytics"] = check{"status": "healthy", "fighters": counts}
		}
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"sessions":  h.sessions.Len(),
		"checks":    checks,
	})
}

// Liveness answers Kubernetes liveness probes without touching dependencies
func (h *Handlers) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readiness answers Kubernetes readiness probes; the store must respond
func (h *Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.store.Count(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "not_ready",
			"reason":    "database_unavailable",
			"timestamp": time.Now().Unix(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}
