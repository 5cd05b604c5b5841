package http

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"log/slog"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	version string
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pool *pgxpool.Pool, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		logger:  logger.With("handler", "health"),
		version: version,
		started: time.Now(),
	}
}

// healthResponse is the full health payload.
type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	UptimeS int64             `json:"uptime_seconds"`
	Checks  map[string]string `json:"checks"`
}

// HandleLiveness handles GET /health/live
// Always healthy while the process is up.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadiness handles GET /health/ready
// Ready only when the database answers a ping.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "database unreachable",
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleHealth handles GET /health
// Detailed status for operators.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.pool.Ping(r.Context()); err != nil {
		checks["database"] = err.Error()
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	WriteJSON(w, statusCode, healthResponse{
		Status:  status,
		Version: h.version,
		UptimeS: int64(time.Since(h.started).Seconds()),
		Checks:  checks,
	})
}
