package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/cartsplit/internal/adapter/http/dto"
)

// HealthChecker is a dependency that must be reachable for the service to be ready.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	version  string
	checkers []HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		checkers: checkers,
	}
}

// Ping answers the root endpoint.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.PingResponse{Status: "ok", Version: h.version})
}

// Liveness returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness returns 200 if the service is ready to accept traffic.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{"status": "ready"}
	for _, c := range h.checkers {
		if err := c.Check(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, c.Name()+" unhealthy", err.Error())
			return
		}
		status[c.Name()] = "ok"
	}

	writeJSON(w, http.StatusOK, status)
}
