package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger is satisfied by every repository.UserRepository.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Store Pinger
	Log   *zap.SugaredLogger
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.Log.Warnw("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, ApiResponse{
			Success: false,
			Message: "store unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "ok",
	})
}
