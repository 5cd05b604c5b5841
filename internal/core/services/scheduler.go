package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// SchedulerConfig holds the daily recompute tunables.
type SchedulerConfig struct {
	// TickInterval is how often the loop wakes to check the guard.
	TickInterval time.Duration
	// TriggerHour/TriggerMinute is the earliest local time of day the
	// daily run may fire.
	TriggerHour   int
	TriggerMinute int
}

// Scheduler runs the daily SLA recompute: once per calendar day, at or
// after the trigger time, it resyncs every live ticket, rebuilds the
// metric aggregates and reseeds the today counter. The guard compares
// calendar dates, so a delayed tick still fires once and a repeated
// tick within the same day does nothing.
type Scheduler struct {
	tickets ports.TicketRepository
	sla     ports.SLAService
	metrics ports.MetricsService
	store   ports.CacheStore // may be nil
	cfg     SchedulerConfig
	logger  *slog.Logger
	now     func() time.Time

	mu          sync.Mutex
	lastRunDate time.Time // midnight of the last completed run's day

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewScheduler creates a new daily scheduler. store may be nil; when set,
// the daily pass also sweeps expired persistent cache rows.
func NewScheduler(
	tickets ports.TicketRepository,
	sla ports.SLAService,
	metrics ports.MetricsService,
	store ports.CacheStore,
	cfg SchedulerConfig,
	logger *slog.Logger,
) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	return &Scheduler{
		tickets: tickets,
		sla:     sla,
		metrics: metrics,
		store:   store,
		cfg:     cfg,
		logger:  logger.With("component", "sla_scheduler"),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// WithClock overrides the scheduler clock. Test hook.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run starts the scheduler loop. It MUST be run as a goroutine and
// returns only after Stop. Panics in a run are recovered so a single
// bad day never kills the loop.
func (s *Scheduler) Run() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		"tick_interval", s.cfg.TickInterval,
		"trigger", time.Date(0, 1, 1, s.cfg.TriggerHour, s.cfg.TriggerMinute, 0, 0, time.UTC).Format("15:04"),
	)

	for {
		select {
		case <-s.stop:
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// Stop signals the loop to exit and waits for it.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Scheduler) tick() {
	now := s.now()
	if !s.shouldRun(now) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("daily run panicked", "panic", r)
		}
	}()

	if err := s.RunNow(context.Background()); err != nil {
		s.logger.Error("daily run failed", "error", err)
		return
	}

	s.mu.Lock()
	s.lastRunDate = startOfDay(now)
	s.mu.Unlock()
}

// shouldRun reports whether the daily run is due: not yet run today and
// the trigger time has passed.
func (s *Scheduler) shouldRun(now time.Time) bool {
	s.mu.Lock()
	last := s.lastRunDate
	s.mu.Unlock()

	today := startOfDay(now)
	if !last.Before(today) {
		return false
	}

	trigger := today.Add(time.Duration(s.cfg.TriggerHour)*time.Hour + time.Duration(s.cfg.TriggerMinute)*time.Minute)
	return !now.Before(trigger)
}

// RunNow executes one full recompute pass immediately: per-ticket SLA
// resync with error isolation, then metric rebuild and counter reseed.
// Also serves the admin resync endpoint.
func (s *Scheduler) RunNow(ctx context.Context) error {
	started := s.now()

	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return err
	}

	synced, failed := 0, 0
	for _, t := range tickets {
		if err := s.syncOne(ctx, t); err != nil {
			failed++
			s.logger.Warn("ticket resync failed", "ticket_id", t.ID, "error", err)
			continue
		}
		synced++
	}

	if s.store != nil {
		if purged, err := s.store.PurgeExpired(ctx, s.now()); err != nil {
			s.logger.Warn("expired cache purge failed", "error", err)
		} else if purged > 0 {
			s.logger.Info("expired cache rows purged", "rows", purged)
		}
	}

	if err := s.metrics.ReseedToday(ctx); err != nil {
		s.logger.Warn("today counter reseed failed", "error", err)
	}
	if err := s.metrics.Rebuild(ctx); err != nil {
		s.logger.Warn("metrics rebuild failed", "error", err)
	}

	active, err := s.tickets.CountActive(ctx)
	if err != nil {
		s.logger.Warn("active ticket count failed", "error", err)
	}

	s.logger.Info("daily sla recompute complete",
		"tickets_synced", synced,
		"tickets_failed", failed,
		"tickets_active", active,
		"duration_ms", s.now().Sub(started).Milliseconds(),
	)
	return nil
}

// syncOne isolates per-ticket panics so one malformed row cannot abort
// the whole pass. No previous status is passed: a recompute is not a
// transition, and the stored one must survive the overwrite.
func (s *Scheduler) syncOne(ctx context.Context, t *domain.Ticket) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resync panicked: %v", r)
		}
	}()

	s.sla.SyncTicket(ctx, t, nil)
	return nil
}
