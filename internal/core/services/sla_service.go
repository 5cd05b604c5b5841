package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// SLAService computes per-ticket SLA snapshots against the business
// calendar and keeps the sla_history table current.
type SLAService struct {
	configs ports.SLAConfigService
	history ports.SLAHistoryRepository
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.SLAService = (*SLAService)(nil)

// NewSLAService creates a new SLA calculator.
func NewSLAService(configs ports.SLAConfigService, history ports.SLAHistoryRepository, logger *slog.Logger) *SLAService {
	return &SLAService{
		configs: configs,
		history: history,
		logger:  logger.With("component", "sla_service"),
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *SLAService) WithClock(now func() time.Time) *SLAService {
	s.now = now
	return s
}

// GetSLAStatus computes the current snapshot for a ticket. The
// configuration is read fresh on every call; a missing or inactive
// configuration yields a snapshot with both metrics in sem_sla rather
// than an error.
func (s *SLAService) GetSLAStatus(ctx context.Context, ticket *domain.Ticket) *domain.SLASnapshot {
	now := s.now()

	snapshot := &domain.SLASnapshot{
		TicketID:     ticket.ID,
		Priority:     ticket.Priority,
		TicketStatus: ticket.Status,
		ComputedAt:   now,
	}

	cfg := s.configs.GetConfig(ctx, ticket.Priority)
	if cfg == nil {
		snapshot.Response.Status = domain.SLAStatusNone
		snapshot.Resolution.Status = domain.SLAStatusNone
		return snapshot
	}

	schedule := s.configs.WeekSchedule(ctx)
	closed := ticket.IsClosed()

	snapshot.Response = s.responseMetric(ticket, cfg, schedule, now, closed)
	snapshot.Resolution = s.resolutionMetric(ticket, cfg, schedule, now, closed)

	snapshot.ElapsedHours = snapshot.Response.ElapsedHours
	if snapshot.Resolution.ElapsedHours > snapshot.ElapsedHours {
		snapshot.ElapsedHours = snapshot.Resolution.ElapsedHours
	}

	return snapshot
}

// responseMetric measures opening to first response. The first response
// closes this metric permanently; a ticket closed without ever getting a
// response keeps zero elapsed time and classifies as met.
func (s *SLAService) responseMetric(ticket *domain.Ticket, cfg *domain.SLAConfig, schedule domain.WeekSchedule, now time.Time, closed bool) domain.SLAMetric {
	metric := domain.SLAMetric{LimitHours: cfg.ResponseLimitHours}

	switch {
	case ticket.FirstResponseAt != nil:
		metric.ElapsedHours = schedule.ElapsedBusinessHours(ticket.OpenedAt, *ticket.FirstResponseAt)
		metric.Status = domain.ClassifySLA(ticket.Status, metric.ElapsedHours, metric.LimitHours, true)
	case closed:
		metric.Status = domain.ClassifySLA(ticket.Status, 0, metric.LimitHours, true)
	default:
		metric.ElapsedHours = schedule.ElapsedBusinessHours(ticket.OpenedAt, now)
		metric.Status = domain.ClassifySLA(ticket.Status, metric.ElapsedHours, metric.LimitHours, false)
	}

	return metric
}

// resolutionMetric measures opening to resolution. "Em análise" freezes
// the clock entirely. ResolvedAt is fixed once set, so recomputing a
// closed ticket always lands on the same classification.
func (s *SLAService) resolutionMetric(ticket *domain.Ticket, cfg *domain.SLAConfig, schedule domain.WeekSchedule, now time.Time, closed bool) domain.SLAMetric {
	metric := domain.SLAMetric{LimitHours: cfg.ResolutionLimitHours}

	switch {
	case ticket.Status == domain.StatusInAnalysis:
		metric.Status = domain.SLAStatusPaused
	case ticket.ResolvedAt != nil:
		metric.ElapsedHours = schedule.ElapsedBusinessHours(ticket.OpenedAt, *ticket.ResolvedAt)
		metric.Status = domain.ClassifySLA(ticket.Status, metric.ElapsedHours, metric.LimitHours, true)
	case closed:
		// Cancelled without a resolution timestamp.
		metric.Status = domain.ClassifySLA(ticket.Status, 0, metric.LimitHours, true)
	default:
		metric.ElapsedHours = schedule.ElapsedBusinessHours(ticket.OpenedAt, now)
		metric.Status = domain.ClassifySLA(ticket.Status, metric.ElapsedHours, metric.LimitHours, false)
	}

	return metric
}

// SyncTicket recomputes the snapshot after a committed ticket write and
// upserts the history row. The history write is best-effort: a failure
// is logged and the snapshot still returned, because the ticket write
// it trails has already committed.
func (s *SLAService) SyncTicket(ctx context.Context, ticket *domain.Ticket, previousStatus *domain.TicketStatus) *domain.SLASnapshot {
	snapshot := s.GetSLAStatus(ctx, ticket)

	action := domain.HistoryActionUpdated
	if previousStatus == nil {
		action = domain.HistoryActionCreated
	}

	entry := &domain.SLAHistoryEntry{
		TicketID:             ticket.ID,
		Action:               action,
		PreviousStatus:       previousStatus,
		NewStatus:            ticket.Status,
		ResponseHours:        snapshot.Response.ElapsedHours,
		ResponseLimitHours:   snapshot.Response.LimitHours,
		ResolutionHours:      snapshot.Resolution.ElapsedHours,
		ResolutionLimitHours: snapshot.Resolution.LimitHours,
		SLAStatus:            snapshot.OverallStatus(),
		RecordedAt:           snapshot.ComputedAt,
	}

	if err := s.history.Upsert(ctx, entry); err != nil {
		s.logger.Error("sla history upsert failed",
			"ticket_id", ticket.ID,
			"action", action,
			"error", err,
		)
	}

	return snapshot
}
