package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"log/slog"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// TicketHandler is the primary adapter for ticket endpoints.
type TicketHandler struct {
	service      ports.TicketService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewTicketHandler creates a new ticket handler.
func NewTicketHandler(service ports.TicketService, errorHandler *ErrorHandler, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "ticket"),
	}
}

// RegisterRoutes mounts the ticket routes on the given router.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreate)
	r.Get("/", h.HandleList)
	r.Get("/{id}", h.HandleGet)
	r.Patch("/{id}/status", h.HandleUpdateStatus)
	r.Delete("/{id}", h.HandleDelete)
	r.Get("/{id}/sla", h.HandleGetSLA)
}

// createTicketRequest is the payload for opening a ticket.
type createTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Requester   string `json:"requester"`
	Priority    string `json:"priority"`
}

// ticketResponse is the JSON shape of a ticket.
type ticketResponse struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	Requester       string  `json:"requester"`
	Priority        string  `json:"priority"`
	Status          string  `json:"status"`
	OpenedAt        string  `json:"opened_at"`
	FirstResponseAt *string `json:"first_response_at,omitempty"`
	ResolvedAt      *string `json:"resolved_at,omitempty"`
}

func toTicketResponse(t *domain.Ticket) ticketResponse {
	resp := ticketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Requester:   t.Requester,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		OpenedAt:    t.OpenedAt.Format(timeFormat),
	}
	if t.FirstResponseAt != nil {
		formatted := t.FirstResponseAt.Format(timeFormat)
		resp.FirstResponseAt = &formatted
	}
	if t.ResolvedAt != nil {
		formatted := t.ResolvedAt.Format(timeFormat)
		resp.ResolvedAt = &formatted
	}
	return resp
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

// HandleCreate handles POST /tickets
func (h *TicketHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	ticket, err := h.service.CreateTicket(r.Context(), ports.CreateTicketParams{
		Title:       req.Title,
		Description: req.Description,
		Requester:   req.Requester,
		Priority:    domain.TicketPriority(req.Priority),
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteCreated(w, toTicketResponse(ticket))
}

// HandleList handles GET /tickets
func (h *TicketHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	tickets, err := h.service.ListTickets(r.Context(), ports.ListTicketsParams{
		Status:   r.URL.Query().Get("status"),
		Priority: r.URL.Query().Get("priority"),
		Limit:    limit + 1, // fetch one extra to detect more pages
		Offset:   offset,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	responses := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		responses = append(responses, toTicketResponse(t))
	}

	WritePaginatedSimple(w, responses, limit, offset)
}

// HandleGet handles GET /tickets/{id}
func (h *TicketHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	ticket, err := h.service.GetTicket(r.Context(), id)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toTicketResponse(ticket))
}

// updateStatusRequest is the payload for a status change.
type updateStatusRequest struct {
	Status string `json:"status"`
}

// HandleUpdateStatus handles PATCH /tickets/{id}/status
func (h *TicketHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	ticket, err := h.service.UpdateStatus(r.Context(), id, domain.TicketStatus(req.Status))
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toTicketResponse(ticket))
}

// HandleDelete handles DELETE /tickets/{id}
func (h *TicketHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteTicket(r.Context(), id); HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteNoContent(w)
}

// HandleGetSLA handles GET /tickets/{id}/sla
func (h *TicketHandler) HandleGetSLA(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.service.GetTicketSLA(r.Context(), id)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

func (h *TicketHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid ticket ID"))
		return 0, false
	}
	return id, true
}

// parsePagination extracts limit/offset query parameters with bounds.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 && value <= 100 {
			limit = value
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			offset = value
		}
	}
	return limit, offset
}
