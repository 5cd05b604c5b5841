package ports

import (
	"context"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
)

// CreateTicketParams carries the inputs for opening a ticket.
type CreateTicketParams struct {
	Title       string
	Description string
	Requester   string
	Priority    domain.TicketPriority
}

// TicketChange describes one committed ticket mutation, handed to the
// metrics layer so it can apply a delta instead of a full recount.
type TicketChange struct {
	Ticket               *domain.Ticket
	PreviousStatus       *domain.TicketStatus
	Created              bool
	Deleted              bool
	FirstResponseStamped bool
}

// TicketService is the primary port for ticket use cases.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	ListTickets(ctx context.Context, params ListTicketsParams) ([]*domain.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID int64, newStatus domain.TicketStatus) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, ticketID int64) error
	GetTicketSLA(ctx context.Context, ticketID int64) (*domain.SLASnapshot, error)
}

// SLAService computes SLA snapshots and keeps the history table current.
type SLAService interface {
	// GetSLAStatus never fails: configuration problems degrade to a
	// snapshot with both metrics in sem_sla.
	GetSLAStatus(ctx context.Context, ticket *domain.Ticket) *domain.SLASnapshot
	// SyncTicket recomputes the snapshot and upserts the history row.
	// History failures are logged, never propagated; the returned
	// snapshot is always usable.
	SyncTicket(ctx context.Context, ticket *domain.Ticket, previousStatus *domain.TicketStatus) *domain.SLASnapshot
}

// SLAConfigService manages SLA deadlines and the business-hours table.
type SLAConfigService interface {
	// GetConfig returns nil (not an error) when the priority has no
	// active configuration; callers treat that as sem_sla.
	GetConfig(ctx context.Context, priority domain.TicketPriority) *domain.SLAConfig
	ListConfigs(ctx context.Context) ([]domain.SLAConfig, error)
	UpsertConfig(ctx context.Context, cfg domain.SLAConfig) (*domain.SLAConfig, error)
	// WeekSchedule assembles the calendar from stored windows, falling
	// back to the Monday-Friday 08:00-18:00 default on any failure.
	WeekSchedule(ctx context.Context) domain.WeekSchedule
	ListWindows(ctx context.Context) ([]domain.BusinessWindow, error)
	UpsertWindow(ctx context.Context, window domain.BusinessWindow) (*domain.BusinessWindow, error)
}

// MetricsService maintains the dashboard aggregates.
type MetricsService interface {
	// GetMetrics never fails: on cold caches it rebuilds through the
	// debouncer, and on any failure it returns a zeroed snapshot.
	GetMetrics(ctx context.Context) domain.DashboardSnapshot
	// UpdateForTicket applies the change as a delta to the cached
	// aggregate, falling back to a full rebuild on a cold cache.
	UpdateForTicket(ctx context.Context, change TicketChange) error
	// InvalidateForTicket drops the derived per-aggregate cache keys
	// after any mutation of the given ticket.
	InvalidateForTicket(ctx context.Context, ticketID int64)
	// InvalidateAll drops every metrics cache key, both tiers.
	InvalidateAll(ctx context.Context)
	Rebuild(ctx context.Context) error
	IncrementToday(ctx context.Context) int64
	DecrementToday(ctx context.Context) int64
	ReseedToday(ctx context.Context) error
}

// EventBroadcaster pushes real-time events to connected clients.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}
