package domain

import (
	"strings"
	"time"

	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
)

// TicketStatus represents the possible states of a ticket.
// Values are stored verbatim; the installed base predates this service
// and uses Portuguese labels.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "Aberto"
	StatusInProgress TicketStatus = "Em andamento"
	StatusInAnalysis TicketStatus = "Em análise"
	StatusResolved   TicketStatus = "Concluído"
	StatusCancelled  TicketStatus = "Cancelado"
)

// Legacy waiting statuses still present in stored rows. New writes
// normalize them to StatusInProgress, but the SLA pause rules must keep
// recognizing them.
const (
	legacyStatusWaiting       TicketStatus = "Aguardando"
	legacyStatusWaitingClient TicketStatus = "Aguardando Cliente"
)

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityCritical TicketPriority = "Crítica"
	PriorityHigh     TicketPriority = "Alta"
	PriorityNormal   TicketPriority = "Normal"
	PriorityLow      TicketPriority = "Baixa"
)

// Priorities lists all valid priorities in severity order.
func Priorities() []TicketPriority {
	return []TicketPriority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow}
}

// IsValid reports whether the priority is one of the known values.
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// IsValid reports whether the status is one of the current lifecycle values.
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusInAnalysis, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

// IsClosed reports whether the status terminates the ticket lifecycle.
// "Concluido" without the accent appears in rows imported from the old system.
func (s TicketStatus) IsClosed() bool {
	switch string(s) {
	case string(StatusResolved), "Concluido", string(StatusCancelled):
		return true
	}
	return false
}

// IsPaused reports whether the status suspends SLA accrual.
func (s TicketStatus) IsPaused() bool {
	switch s {
	case legacyStatusWaiting, legacyStatusWaitingClient:
		return true
	}
	return false
}

// NormalizeStatus maps legacy status labels onto the current lifecycle.
// Unknown values pass through unchanged so validation can reject them.
func NormalizeStatus(raw string) TicketStatus {
	switch strings.TrimSpace(raw) {
	case string(legacyStatusWaiting), string(legacyStatusWaitingClient):
		return StatusInProgress
	case "Concluido":
		return StatusResolved
	default:
		return TicketStatus(strings.TrimSpace(raw))
	}
}

// Ticket is the core domain entity.
type Ticket struct {
	ID              int64
	Title           string
	Description     string
	Requester       string
	Priority        TicketPriority
	Status          TicketStatus
	OpenedAt        time.Time
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	UpdatedAt       *time.Time
	DeletedAt       *time.Time
}

// TicketParams carries the inputs for creating a ticket.
type TicketParams struct {
	Title       string
	Description string
	Requester   string
	Priority    TicketPriority
	OpenedAt    time.Time
}

const (
	maxTitleLength       = 255
	maxDescriptionLength = 10000
)

// NewTicket is a factory function to create a valid new ticket.
func NewTicket(params TicketParams) (*Ticket, error) {
	errs := apperrors.NewValidationErrors()

	title := strings.TrimSpace(params.Title)
	if title == "" {
		errs.Add("title", apperrors.ErrTitleRequired.Error())
	} else if len(title) > maxTitleLength {
		errs.Add("title", apperrors.ErrTitleTooLong.Error())
	}

	if len(params.Description) > maxDescriptionLength {
		errs.Add("description", apperrors.ErrDescriptionTooLong.Error())
	}

	if strings.TrimSpace(params.Requester) == "" {
		errs.Add("requester", apperrors.ErrRequesterRequired.Error())
	}

	if !params.Priority.IsValid() {
		errs.Add("priority", apperrors.ErrInvalidPriority.Error())
	}

	if errs.HasErrors() {
		return nil, errs
	}

	openedAt := params.OpenedAt
	if openedAt.IsZero() {
		openedAt = time.Now().UTC()
	}

	return &Ticket{
		Title:       title,
		Description: params.Description,
		Requester:   strings.TrimSpace(params.Requester),
		Priority:    params.Priority,
		Status:      StatusOpen,
		OpenedAt:    openedAt,
	}, nil
}

// validTransitions defines the allowed lifecycle moves. Closed statuses
// are terminal: ResolvedAt must stay fixed once a ticket concludes.
var validTransitions = map[TicketStatus][]TicketStatus{
	StatusOpen:       {StatusInProgress, StatusInAnalysis, StatusResolved, StatusCancelled},
	StatusInProgress: {StatusInAnalysis, StatusResolved, StatusCancelled},
	StatusInAnalysis: {StatusInProgress, StatusResolved, StatusCancelled},
	StatusResolved:   {},
	StatusCancelled:  {},
}

// UpdateStatus changes the ticket's status, enforcing the transition table.
// Moving to Concluído stamps ResolvedAt exactly once. The first move out of
// Aberto toward an agent-held status stamps FirstResponseAt.
func (t *Ticket) UpdateStatus(newStatus TicketStatus, now time.Time) error {
	if !newStatus.IsValid() {
		return apperrors.ErrInvalidStatus
	}

	allowed, ok := validTransitions[NormalizeStatus(string(t.Status))]
	if !ok {
		return apperrors.ErrInvalidStatusTransition
	}

	found := false
	for _, s := range allowed {
		if s == newStatus {
			found = true
			break
		}
	}
	if !found {
		return apperrors.ErrInvalidStatusTransition
	}

	if t.Status == StatusOpen && (newStatus == StatusInProgress || newStatus == StatusInAnalysis) {
		t.RecordFirstResponse(now)
	}

	t.Status = newStatus
	t.UpdatedAt = &now

	if newStatus == StatusResolved && t.ResolvedAt == nil {
		resolved := now
		t.ResolvedAt = &resolved
	}

	return nil
}

// RecordFirstResponse stamps the first-response timestamp. It is a no-op if
// the timestamp is already set, so replays never move the SLA anchor.
// Reports whether the timestamp was set by this call.
func (t *Ticket) RecordFirstResponse(now time.Time) bool {
	if t.FirstResponseAt != nil {
		return false
	}
	first := now
	t.FirstResponseAt = &first
	return true
}

// IsClosed reports whether the ticket reached a terminal status.
func (t *Ticket) IsClosed() bool {
	return t.Status.IsClosed()
}

// IsDeleted reports whether the ticket was soft-deleted.
func (t *Ticket) IsDeleted() bool {
	return t.DeletedAt != nil
}

// OpenedOn reports whether the ticket was opened on the same calendar day
// as the given time, in that time's location.
func (t *Ticket) OpenedOn(day time.Time) bool {
	y1, m1, d1 := t.OpenedAt.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
