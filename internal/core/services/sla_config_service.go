package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// CacheInvalidator is the hook a config write uses to drop every derived
// metric, since any deadline or calendar change invalidates them all.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context)
}

// SLAConfigService manages SLA deadlines and the business-hours calendar.
// Reads are deliberately uncached: a config change must affect the very
// next calculation.
type SLAConfigService struct {
	repo        ports.SLAConfigRepository
	invalidator CacheInvalidator // may be nil
	logger      *slog.Logger
}

var _ ports.SLAConfigService = (*SLAConfigService)(nil)

// NewSLAConfigService creates a new config service. invalidator may be
// nil when no cache layer is wired (tests, scripts).
func NewSLAConfigService(repo ports.SLAConfigRepository, invalidator CacheInvalidator, logger *slog.Logger) *SLAConfigService {
	return &SLAConfigService{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger.With("component", "sla_config_service"),
	}
}

// SetInvalidator wires the cache hook after construction. The config
// service and the metrics layer reference each other, so one of them has
// to be attached late.
func (s *SLAConfigService) SetInvalidator(invalidator CacheInvalidator) {
	s.invalidator = invalidator
}

// GetConfig returns the active configuration for a priority, or nil when
// none exists. A missing configuration is a valid state (sem_sla), and a
// read failure degrades the same way rather than failing a calculation.
func (s *SLAConfigService) GetConfig(ctx context.Context, priority domain.TicketPriority) *domain.SLAConfig {
	cfg, err := s.repo.GetByPriority(ctx, priority)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSLAConfigNotFound) {
			s.logger.Warn("sla config lookup failed", "priority", priority, "error", err)
		}
		return nil
	}
	if !cfg.Active {
		return nil
	}
	return cfg
}

// ListConfigs returns every stored configuration row.
func (s *SLAConfigService) ListConfigs(ctx context.Context) ([]domain.SLAConfig, error) {
	return s.repo.List(ctx)
}

// UpsertConfig validates and stores a configuration, then drops every
// cached metric.
func (s *SLAConfigService) UpsertConfig(ctx context.Context, cfg domain.SLAConfig) (*domain.SLAConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.repo.Upsert(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	s.clearCaches(ctx)
	s.logger.Info("sla config updated",
		"priority", stored.Priority,
		"response_limit_hours", stored.ResponseLimitHours,
		"resolution_limit_hours", stored.ResolutionLimitHours,
		"active", stored.Active,
	)
	return stored, nil
}

// WeekSchedule assembles the business calendar from the stored windows.
// Any failure falls back to the Monday-Friday 08:00-18:00 default so a
// broken calendar table never stops SLA computation.
func (s *SLAConfigService) WeekSchedule(ctx context.Context) domain.WeekSchedule {
	windows, err := s.repo.ListWindows(ctx)
	if err != nil {
		s.logger.Warn("business hours lookup failed, using defaults", "error", err)
		return domain.DefaultWeekSchedule()
	}
	if len(windows) == 0 {
		return domain.DefaultWeekSchedule()
	}

	schedule := make(domain.WeekSchedule, len(windows))
	for _, w := range windows {
		if !w.Active {
			continue
		}
		start, err := domain.ParseClock(w.Start)
		if err != nil {
			s.logger.Warn("invalid stored business window, using defaults", "weekday", w.Weekday, "start", w.Start)
			return domain.DefaultWeekSchedule()
		}
		end, err := domain.ParseClock(w.End)
		if err != nil {
			s.logger.Warn("invalid stored business window, using defaults", "weekday", w.Weekday, "end", w.End)
			return domain.DefaultWeekSchedule()
		}
		schedule[domain.WeekdayFromMonday0(w.Weekday)] = domain.Window{Start: start, End: end}
	}

	if len(schedule) == 0 {
		return domain.DefaultWeekSchedule()
	}
	return schedule
}

// ListWindows returns every stored business window row.
func (s *SLAConfigService) ListWindows(ctx context.Context) ([]domain.BusinessWindow, error) {
	return s.repo.ListWindows(ctx)
}

// UpsertWindow validates and stores a business window, then drops every
// cached metric.
func (s *SLAConfigService) UpsertWindow(ctx context.Context, window domain.BusinessWindow) (*domain.BusinessWindow, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.repo.UpsertWindow(ctx, &window)
	if err != nil {
		return nil, err
	}

	s.clearCaches(ctx)
	s.logger.Info("business window updated",
		"weekday", stored.Weekday,
		"start", stored.Start,
		"end", stored.End,
		"active", stored.Active,
	)
	return stored, nil
}

func (s *SLAConfigService) clearCaches(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.InvalidateAll(ctx)
	}
}
