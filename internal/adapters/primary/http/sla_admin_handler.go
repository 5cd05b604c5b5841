package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"log/slog"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// Resyncer triggers a full SLA recompute pass. The daily scheduler
// implements it.
type Resyncer interface {
	RunNow(ctx context.Context) error
}

// SLAAdminHandler is the primary adapter for SLA configuration and
// business-hours management.
type SLAAdminHandler struct {
	service      ports.SLAConfigService
	resyncer     Resyncer // may be nil
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewSLAAdminHandler creates a new SLA admin handler.
func NewSLAAdminHandler(service ports.SLAConfigService, resyncer Resyncer, errorHandler *ErrorHandler, logger *slog.Logger) *SLAAdminHandler {
	return &SLAAdminHandler{
		service:      service,
		resyncer:     resyncer,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "sla_admin"),
	}
}

// RegisterRoutes mounts the SLA admin routes on the given router.
func (h *SLAAdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/configs", h.HandleListConfigs)
	r.Put("/configs/{priority}", h.HandleUpsertConfig)
	r.Get("/business-hours", h.HandleListWindows)
	r.Put("/business-hours/{weekday}", h.HandleUpsertWindow)
	r.Post("/resync", h.HandleResync)
}

// slaConfigResponse is the JSON shape of an SLA configuration.
type slaConfigResponse struct {
	Priority             string  `json:"priority"`
	ResponseLimitHours   float64 `json:"response_limit_hours"`
	ResolutionLimitHours float64 `json:"resolution_limit_hours"`
	Active               bool    `json:"active"`
	UpdatedAt            *string `json:"updated_at,omitempty"`
}

func toSLAConfigResponse(cfg domain.SLAConfig) slaConfigResponse {
	resp := slaConfigResponse{
		Priority:             string(cfg.Priority),
		ResponseLimitHours:   cfg.ResponseLimitHours,
		ResolutionLimitHours: cfg.ResolutionLimitHours,
		Active:               cfg.Active,
	}
	if cfg.UpdatedAt != nil {
		formatted := cfg.UpdatedAt.Format(time.RFC3339)
		resp.UpdatedAt = &formatted
	}
	return resp
}

// HandleListConfigs handles GET /sla/configs
func (h *SLAAdminHandler) HandleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListConfigs(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	responses := make([]slaConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		responses = append(responses, toSLAConfigResponse(cfg))
	}

	WriteList(w, responses)
}

// upsertConfigRequest is the payload for writing an SLA configuration.
type upsertConfigRequest struct {
	ResponseLimitHours   float64 `json:"response_limit_hours"`
	ResolutionLimitHours float64 `json:"resolution_limit_hours"`
	Active               *bool   `json:"active,omitempty"`
}

// HandleUpsertConfig handles PUT /sla/configs/{priority}
func (h *SLAAdminHandler) HandleUpsertConfig(w http.ResponseWriter, r *http.Request) {
	var req upsertConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	updated, err := h.service.UpsertConfig(r.Context(), domain.SLAConfig{
		Priority:             domain.TicketPriority(chi.URLParam(r, "priority")),
		ResponseLimitHours:   req.ResponseLimitHours,
		ResolutionLimitHours: req.ResolutionLimitHours,
		Active:               active,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toSLAConfigResponse(*updated))
}

// businessWindowResponse is the JSON shape of a business-hours window.
type businessWindowResponse struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Active  bool   `json:"active"`
}

func toBusinessWindowResponse(window domain.BusinessWindow) businessWindowResponse {
	return businessWindowResponse{
		Weekday: window.Weekday,
		Start:   window.Start,
		End:     window.End,
		Active:  window.Active,
	}
}

// HandleListWindows handles GET /sla/business-hours
func (h *SLAAdminHandler) HandleListWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := h.service.ListWindows(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	responses := make([]businessWindowResponse, 0, len(windows))
	for _, window := range windows {
		responses = append(responses, toBusinessWindowResponse(window))
	}

	WriteList(w, responses)
}

// upsertWindowRequest is the payload for writing a business-hours window.
type upsertWindowRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Active *bool  `json:"active,omitempty"`
}

// HandleUpsertWindow handles PUT /sla/business-hours/{weekday}
func (h *SLAAdminHandler) HandleUpsertWindow(w http.ResponseWriter, r *http.Request) {
	weekday, err := strconv.Atoi(chi.URLParam(r, "weekday"))
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid weekday"))
		return
	}

	var req upsertWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	updated, err := h.service.UpsertWindow(r.Context(), domain.BusinessWindow{
		Weekday: weekday,
		Start:   req.Start,
		End:     req.End,
		Active:  active,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toBusinessWindowResponse(*updated))
}

// HandleResync handles POST /sla/resync
// Runs the full daily recompute pass on demand.
func (h *SLAAdminHandler) HandleResync(w http.ResponseWriter, r *http.Request) {
	if h.resyncer == nil {
		h.errorHandler.Handle(w, r, apperrors.NewInternalError(apperrors.ErrInternal))
		return
	}

	started := time.Now()
	if err := h.resyncer.RunNow(r.Context()); HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "completed",
		"duration_ms": time.Since(started).Milliseconds(),
	})
}
