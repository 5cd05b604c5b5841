package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// TicketService implements the ticket use cases. Every mutation commits
// the ticket write first and then runs the side-effect chain in a fixed
// order: SLA sync, cache invalidation, incremental metrics, broadcast.
// A failure in any later step is logged and never rolls back or masks
// the committed write.
type TicketService struct {
	tickets     ports.TicketRepository
	sla         ports.SLAService
	metrics     ports.MetricsService
	broadcaster ports.EventBroadcaster // may be nil
	logger      *slog.Logger
	now         func() time.Time
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service.
func NewTicketService(
	tickets ports.TicketRepository,
	sla ports.SLAService,
	metrics ports.MetricsService,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) *TicketService {
	return &TicketService{
		tickets:     tickets,
		sla:         sla,
		metrics:     metrics,
		broadcaster: broadcaster,
		logger:      logger.With("component", "ticket_service"),
		now:         time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *TicketService) WithClock(now func() time.Time) *TicketService {
	s.now = now
	return s
}

// CreateTicket opens a new ticket and runs the side-effect chain.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	ticket, err := domain.NewTicket(domain.TicketParams{
		Title:       params.Title,
		Description: params.Description,
		Requester:   params.Requester,
		Priority:    params.Priority,
		OpenedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	created, err := s.tickets.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementToday(ctx)
	s.runSideEffects(ctx, ports.TicketChange{Ticket: created, Created: true}, nil)
	s.broadcastTicket(domain.EventTicketCreated, created)

	return created, nil
}

// GetTicket retrieves a single live ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

// ListTickets retrieves tickets with pagination and optional filters.
func (s *TicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	if params.Status != "" {
		params.Status = string(domain.NormalizeStatus(params.Status))
	}
	return s.tickets.ListPaginated(ctx, params)
}

// UpdateStatus changes a ticket's status. The domain entity enforces the
// transition table and stamps the first-response and resolution
// timestamps.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID int64, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	previous := ticket.Status
	newStatus = domain.NormalizeStatus(string(newStatus))

	hadFirstResponse := ticket.FirstResponseAt != nil
	if err := ticket.UpdateStatus(newStatus, s.now().UTC()); err != nil {
		return nil, err
	}

	updated, err := s.tickets.Update(ctx, ticket)
	if err != nil {
		return nil, err
	}

	change := ports.TicketChange{
		Ticket:               updated,
		PreviousStatus:       &previous,
		FirstResponseStamped: !hadFirstResponse && updated.FirstResponseAt != nil,
	}
	s.runSideEffects(ctx, change, &previous)
	s.broadcastTicket(domain.EventStatusUpdated, updated)

	return updated, nil
}

// DeleteTicket soft-deletes a ticket and unwinds its metric contributions.
func (s *TicketService) DeleteTicket(ctx context.Context, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if err := s.tickets.SoftDelete(ctx, ticketID, now); err != nil {
		return err
	}

	if ticket.OpenedOn(now) {
		s.metrics.DecrementToday(ctx)
	}

	deletedAt := now
	ticket.DeletedAt = &deletedAt

	s.metrics.InvalidateForTicket(ctx, ticketID)
	if err := s.metrics.UpdateForTicket(ctx, ports.TicketChange{Ticket: ticket, Deleted: true}); err != nil {
		s.logger.Error("metrics update failed after delete", "ticket_id", ticketID, "error", err)
	}

	return nil
}

// GetTicketSLA returns the current SLA snapshot for a ticket.
func (s *TicketService) GetTicketSLA(ctx context.Context, ticketID int64) (*domain.SLASnapshot, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.sla.GetSLAStatus(ctx, ticket), nil
}

// runSideEffects executes the post-commit chain in order. Each step is
// best-effort; a failure is logged and the chain continues, because the
// ticket write has already committed and the caches self-heal on their
// next rebuild.
func (s *TicketService) runSideEffects(ctx context.Context, change ports.TicketChange, previousStatus *domain.TicketStatus) {
	s.sla.SyncTicket(ctx, change.Ticket, previousStatus)

	s.metrics.InvalidateForTicket(ctx, change.Ticket.ID)

	if err := s.metrics.UpdateForTicket(ctx, change); err != nil {
		s.logger.Error("incremental metrics update failed",
			"ticket_id", change.Ticket.ID,
			"error", err,
		)
	}
}

func (s *TicketService) broadcastTicket(eventType domain.EventType, ticket *domain.Ticket) {
	if s.broadcaster == nil {
		return
	}
	_ = s.broadcaster.Broadcast(domain.Event{
		Type:    eventType,
		Payload: ticket,
	})
}
