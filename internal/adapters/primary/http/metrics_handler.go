package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"log/slog"

	"github.com/lorrc/helpdesk-backend/internal/core/cache"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// CacheInspector exposes in-memory cache statistics for the status
// endpoint. The metrics service implements it.
type CacheInspector interface {
	CacheStats() cache.Stats
}

// MetricsHandler is the primary adapter for dashboard metric endpoints.
// Read endpoints never fail: the service degrades to a zeroed snapshot
// so the dashboard always renders.
type MetricsHandler struct {
	service   ports.MetricsService
	inspector CacheInspector // may be nil
	logger    *slog.Logger
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(service ports.MetricsService, inspector CacheInspector, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{
		service:   service,
		inspector: inspector,
		logger:    logger.With("handler", "metrics"),
	}
}

// RegisterRoutes mounts the metrics routes on the given router.
func (h *MetricsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.HandleDashboard)
	r.Get("/basic", h.HandleBasic)
	r.Get("/sla", h.HandleSLA)
	r.Get("/distribution", h.HandleDistribution)
	r.Post("/cache/clear", h.HandleCacheClear)
	r.Get("/cache/status", h.HandleCacheStatus)
}

// HandleDashboard handles GET /metrics/dashboard
func (h *MetricsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.GetMetrics(r.Context())
	WriteJSON(w, http.StatusOK, snapshot)
}

// basicMetricsResponse is the lightweight header payload.
type basicMetricsResponse struct {
	TicketsToday int64     `json:"tickets_today"`
	OpenNow      int64     `json:"open_now"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// HandleBasic handles GET /metrics/basic
func (h *MetricsHandler) HandleBasic(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.GetMetrics(r.Context())
	WriteJSON(w, http.StatusOK, basicMetricsResponse{
		TicketsToday: snapshot.TicketsToday,
		OpenNow:      snapshot.OpenNow,
		GeneratedAt:  snapshot.GeneratedAt,
	})
}

// slaMetricsResponse carries the compliance figures only.
type slaMetricsResponse struct {
	ComplianceMonth       float64   `json:"sla_compliance_month"`
	Compliance24h         float64   `json:"sla_compliance_24h"`
	AvgResponseHoursMonth float64   `json:"avg_response_hours_month"`
	AvgResponseHours24h   float64   `json:"avg_response_hours_24h"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// HandleSLA handles GET /metrics/sla
func (h *MetricsHandler) HandleSLA(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.GetMetrics(r.Context())
	WriteJSON(w, http.StatusOK, slaMetricsResponse{
		ComplianceMonth:       snapshot.SLAComplianceMonth,
		Compliance24h:         snapshot.SLACompliance24h,
		AvgResponseHoursMonth: snapshot.AvgResponseHoursMonth,
		AvgResponseHours24h:   snapshot.AvgResponseHours24h,
		GeneratedAt:           snapshot.GeneratedAt,
	})
}

// HandleDistribution handles GET /metrics/distribution
func (h *MetricsHandler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.GetMetrics(r.Context())
	WriteJSON(w, http.StatusOK, snapshot.Distribution)
}

// HandleCacheClear handles POST /metrics/cache/clear
// Drops every metrics cache key and rebuilds the aggregate from the
// database before responding.
func (h *MetricsHandler) HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateAll(r.Context())

	if err := h.service.Rebuild(r.Context()); err != nil {
		h.logger.Error("rebuild after cache clear failed", "error", err)
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "cleared",
			"rebuild": "pending",
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "cleared",
		"rebuild": "done",
	})
}

// cacheStatusResponse reports the in-memory tier state.
type cacheStatusResponse struct {
	Entries int      `json:"entries"`
	Expired int      `json:"expired"`
	Keys    []string `json:"keys"`
}

// HandleCacheStatus handles GET /metrics/cache/status
func (h *MetricsHandler) HandleCacheStatus(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		WriteJSON(w, http.StatusOK, cacheStatusResponse{Keys: []string{}})
		return
	}

	stats := h.inspector.CacheStats()
	WriteJSON(w, http.StatusOK, cacheStatusResponse{
		Entries: stats.Entries,
		Expired: stats.Expired,
		Keys:    stats.Keys,
	})
}
