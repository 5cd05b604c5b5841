package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/lorrc/helpdesk-backend/internal/core/cache"
	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// Cache keys. Everything under metricsKeyPrefix is dropped by a full
// invalidation; the derived keys under slaKeyPrefix are additionally
// dropped after every ticket mutation, while the incremental base entry
// survives so deltas have something to apply to.
const (
	metricsKeyPrefix  = "metrics:"
	slaKeyPrefix      = "metrics:sla:"
	dashboardCacheKey = "metrics:dashboard"
	snapshotCacheKey  = "metrics:sla:snapshot"
	todayCounterKey   = "metrics:tickets_today"
)

const todayCounterTTL = 24 * time.Hour

// MetricsService maintains the dashboard aggregates incrementally: each
// committed ticket mutation is applied as a delta to the cached base
// aggregate, and only a cold cache triggers a full recount. The full
// recount is funneled through the debouncer so concurrent cold reads
// cost one database scan, not many.
type MetricsService struct {
	tickets     ports.TicketRepository
	sla         ports.SLAService
	cache       *cache.TieredCache
	debouncer   *cache.Debouncer
	broadcaster ports.EventBroadcaster // may be nil

	ttl  time.Duration
	wait time.Duration

	logger *slog.Logger
	now    func() time.Time
}

var _ ports.MetricsService = (*MetricsService)(nil)

// MetricsServiceConfig holds the tunables for the metrics layer.
type MetricsServiceConfig struct {
	CacheTTL     time.Duration
	DebounceWait time.Duration
}

// NewMetricsService creates a new metrics service. broadcaster may be nil.
func NewMetricsService(
	tickets ports.TicketRepository,
	sla ports.SLAService,
	tieredCache *cache.TieredCache,
	debouncer *cache.Debouncer,
	broadcaster ports.EventBroadcaster,
	cfg MetricsServiceConfig,
	logger *slog.Logger,
) *MetricsService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.DebounceWait <= 0 {
		cfg.DebounceWait = 10 * time.Second
	}
	return &MetricsService{
		tickets:     tickets,
		sla:         sla,
		cache:       tieredCache,
		debouncer:   debouncer,
		broadcaster: broadcaster,
		ttl:         cfg.CacheTTL,
		wait:        cfg.DebounceWait,
		logger:      logger.With("component", "metrics_service"),
		now:         time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *MetricsService) WithClock(now func() time.Time) *MetricsService {
	s.now = now
	return s
}

// GetMetrics returns the dashboard read model. It never fails: a cold
// cache rebuilds through the debouncer, and any failure degrades to a
// zeroed snapshot so the dashboard renders instead of erroring.
func (s *MetricsService) GetMetrics(ctx context.Context) domain.DashboardSnapshot {
	var derived domain.DashboardSnapshot
	if s.cache.Get(ctx, snapshotCacheKey, &derived) {
		s.overlayTodayCounter(ctx, &derived)
		return derived
	}

	metrics, err := s.baseMetrics(ctx)
	if err != nil {
		s.logger.Error("metrics unavailable, serving zeroed snapshot", "error", err)
		return domain.DashboardSnapshot{GeneratedAt: s.now()}
	}

	derived = metrics.Snapshot()
	s.overlayTodayCounter(ctx, &derived)
	if err := s.cache.Set(ctx, snapshotCacheKey, derived, s.ttl); err != nil {
		s.logger.Warn("snapshot cache write failed", "error", err)
	}
	return derived
}

// baseMetrics returns the incremental base aggregate, rebuilding it
// through the debouncer when both cache tiers miss.
func (s *MetricsService) baseMetrics(ctx context.Context) (*domain.DashboardMetrics, error) {
	var metrics domain.DashboardMetrics
	if s.cache.Get(ctx, dashboardCacheKey, &metrics) {
		return &metrics, nil
	}

	result, err := s.debouncer.Do(dashboardCacheKey, s.ttl, s.wait, func() (any, error) {
		return s.rebuild(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.DashboardMetrics), nil
}

// rebuild recounts every aggregate from the live ticket set. Snapshots
// are computed per ticket only where a metric needs them.
func (s *MetricsService) rebuild(ctx context.Context) (*domain.DashboardMetrics, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	startOfToday := startOfDay(now)
	startOfYesterday := startOfToday.AddDate(0, 0, -1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	dayAgo := now.Add(-24 * time.Hour)

	metrics := &domain.DashboardMetrics{GeneratedAt: now}

	for _, t := range tickets {
		opened := t.OpenedAt.In(now.Location())
		if !opened.Before(startOfToday) {
			metrics.TicketsToday++
		} else if !opened.Before(startOfYesterday) {
			metrics.TicketsYesterday++
		}

		if !t.IsClosed() {
			metrics.OpenNow++
		}

		inMonth := !opened.Before(monthStart)
		if inMonth {
			metrics.TotalTicketsMonth++
		}

		var snapshot *domain.SLASnapshot
		snapshotFor := func() *domain.SLASnapshot {
			if snapshot == nil {
				snapshot = s.sla.GetSLAStatus(ctx, t)
			}
			return snapshot
		}

		if t.ResolvedAt != nil {
			status := snapshotFor().Resolution.Status
			if status.IsFinal() {
				met := status == domain.SLAStatusMet
				if !t.ResolvedAt.Before(monthStart) {
					if met {
						metrics.SLAMetMonth++
					} else {
						metrics.SLABreachedMonth++
					}
				}
				if t.ResolvedAt.After(dayAgo) {
					if met {
						metrics.SLAMet24h++
					} else {
						metrics.SLABreached24h++
					}
				}
			}
		}

		if t.FirstResponseAt != nil && snapshotFor().HasSLA() {
			hours := snapshotFor().Response.ElapsedHours
			if !t.FirstResponseAt.Before(monthStart) {
				metrics.ResponseHoursSumMonth += hours
				metrics.ResponseCountMonth++
			}
			if t.FirstResponseAt.After(dayAgo) {
				metrics.ResponseHoursSum24h += hours
				metrics.ResponseCount24h++
			}
		}
	}

	if err := s.cache.Set(ctx, dashboardCacheKey, metrics, s.ttl); err != nil {
		s.logger.Warn("metrics cache write failed", "error", err)
	}
	if err := s.cache.Set(ctx, todayCounterKey, metrics.TicketsToday, todayCounterTTL); err != nil {
		s.logger.Warn("today counter write failed", "error", err)
	}

	s.logger.Info("metrics rebuilt",
		"tickets_scanned", len(tickets),
		"open_now", metrics.OpenNow,
		"tickets_today", metrics.TicketsToday,
	)

	return metrics, nil
}

// Rebuild forces a full recount, bypassing the debouncer's freshness
// memo, and broadcasts the result. Used by the daily scheduler and the
// admin resync endpoint.
func (s *MetricsService) Rebuild(ctx context.Context) error {
	s.debouncer.Invalidate(dashboardCacheKey)
	metrics, err := s.rebuild(ctx)
	if err != nil {
		return err
	}

	derived := metrics.Snapshot()
	if err := s.cache.Set(ctx, snapshotCacheKey, derived, s.ttl); err != nil {
		s.logger.Warn("snapshot cache write failed", "error", err)
	}
	s.broadcastMetrics(derived)
	return nil
}

// UpdateForTicket applies one committed ticket mutation as a delta to
// the cached base aggregate, then refreshes the derived snapshot and
// broadcasts it. A cold base cache falls back to a full rebuild.
func (s *MetricsService) UpdateForTicket(ctx context.Context, change ports.TicketChange) error {
	var metrics domain.DashboardMetrics
	if !s.cache.Get(ctx, dashboardCacheKey, &metrics) {
		rebuilt, err := s.baseMetrics(ctx)
		if err != nil {
			return err
		}
		derived := rebuilt.Snapshot()
		s.broadcastMetrics(derived)
		return s.cache.Set(ctx, snapshotCacheKey, derived, s.ttl)
	}

	now := s.now()
	s.applyChange(ctx, &metrics, change, now)
	metrics.GeneratedAt = now

	if err := s.cache.Set(ctx, dashboardCacheKey, &metrics, s.ttl); err != nil {
		return err
	}

	derived := metrics.Snapshot()
	s.overlayTodayCounter(ctx, &derived)
	if err := s.cache.Set(ctx, snapshotCacheKey, derived, s.ttl); err != nil {
		s.logger.Warn("snapshot cache write failed", "error", err)
	}

	s.broadcastMetrics(derived)
	return nil
}

// applyChange mutates the aggregate in place for one ticket change. The
// snapshot is computed at most once, and only for changes that need it.
func (s *MetricsService) applyChange(ctx context.Context, metrics *domain.DashboardMetrics, change ports.TicketChange, now time.Time) {
	t := change.Ticket
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	openedToday := t.OpenedOn(now)
	inMonth := !t.OpenedAt.In(now.Location()).Before(monthStart)

	var snapshot *domain.SLASnapshot
	snapshotFor := func() *domain.SLASnapshot {
		if snapshot == nil {
			snapshot = s.sla.GetSLAStatus(ctx, t)
		}
		return snapshot
	}

	switch {
	case change.Created:
		metrics.OpenNow++
		if openedToday {
			metrics.TicketsToday++
		}
		if inMonth {
			metrics.TotalTicketsMonth++
		}

	case change.Deleted:
		if !t.IsClosed() && metrics.OpenNow > 0 {
			metrics.OpenNow--
		}
		if openedToday && metrics.TicketsToday > 0 {
			metrics.TicketsToday--
		}
		if inMonth && metrics.TotalTicketsMonth > 0 {
			metrics.TotalTicketsMonth--
		}

	default:
		wasClosed := change.PreviousStatus != nil && change.PreviousStatus.IsClosed()
		if t.IsClosed() && !wasClosed {
			if metrics.OpenNow > 0 {
				metrics.OpenNow--
			}
			if t.ResolvedAt != nil && !t.ResolvedAt.Before(monthStart) {
				switch snapshotFor().Resolution.Status {
				case domain.SLAStatusMet:
					metrics.SLAMetMonth++
					metrics.SLAMet24h++
				case domain.SLAStatusBreached:
					metrics.SLABreachedMonth++
					metrics.SLABreached24h++
				}
			}
		}
	}

	if change.FirstResponseStamped && snapshotFor().HasSLA() {
		hours := snapshotFor().Response.ElapsedHours
		metrics.ResponseHoursSumMonth += hours
		metrics.ResponseCountMonth++
		metrics.ResponseHoursSum24h += hours
		metrics.ResponseCount24h++
	}
}

// InvalidateForTicket drops every derived metric key after a ticket
// mutation. The invalidation is deliberately coarse: one ticket can move
// compliance, distribution and averages at once, so all derived payloads
// go. The incremental base entry stays so the following delta applies.
func (s *MetricsService) InvalidateForTicket(ctx context.Context, ticketID int64) {
	s.cache.InvalidatePrefix(ctx, slaKeyPrefix)
	s.logger.Debug("derived metric caches invalidated", "ticket_id", ticketID)
}

// InvalidateAll drops every metrics key in both tiers, plus the
// debouncer memo. Config writes and the admin cache-clear endpoint land
// here.
func (s *MetricsService) InvalidateAll(ctx context.Context) {
	s.cache.InvalidatePrefix(ctx, metricsKeyPrefix)
	s.debouncer.Invalidate(dashboardCacheKey)
	s.logger.Info("all metric caches invalidated")
}

// IncrementToday bumps the fast tickets-today counter, reseeding it from
// the database when the key is cold, and returns the new value.
func (s *MetricsService) IncrementToday(ctx context.Context) int64 {
	return s.adjustToday(ctx, 1)
}

// DecrementToday lowers the fast tickets-today counter, flooring at zero.
func (s *MetricsService) DecrementToday(ctx context.Context) int64 {
	return s.adjustToday(ctx, -1)
}

func (s *MetricsService) adjustToday(ctx context.Context, delta int64) int64 {
	var count int64
	if !s.cache.Get(ctx, todayCounterKey, &count) {
		fresh, err := s.countOpenedToday(ctx)
		if err != nil {
			s.logger.Warn("today counter reseed failed", "error", err)
			return 0
		}
		// The database count already includes the write that triggered
		// this adjustment.
		count = fresh - delta
	}

	count += delta
	if count < 0 {
		count = 0
	}

	if err := s.cache.Set(ctx, todayCounterKey, count, todayCounterTTL); err != nil {
		s.logger.Warn("today counter write failed", "error", err)
	}
	return count
}

// ReseedToday resets the fast counter from the database. The daily
// scheduler calls this at day rollover.
func (s *MetricsService) ReseedToday(ctx context.Context) error {
	count, err := s.countOpenedToday(ctx)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, todayCounterKey, count, todayCounterTTL)
}

func (s *MetricsService) countOpenedToday(ctx context.Context) (int64, error) {
	now := s.now()
	start := startOfDay(now)
	return s.tickets.CountOpenedBetween(ctx, start, start.AddDate(0, 0, 1))
}

func (s *MetricsService) overlayTodayCounter(ctx context.Context, snapshot *domain.DashboardSnapshot) {
	var count int64
	if s.cache.Get(ctx, todayCounterKey, &count) {
		snapshot.TicketsToday = count
		snapshot.Comparison.Today = count
	}
}

func (s *MetricsService) broadcastMetrics(snapshot domain.DashboardSnapshot) {
	if s.broadcaster == nil {
		return
	}
	_ = s.broadcaster.Broadcast(domain.Event{
		Type:    domain.EventMetricsUpdated,
		Payload: snapshot,
	})
}

// CacheStats exposes the memory tier for the cache-status endpoint.
func (s *MetricsService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
