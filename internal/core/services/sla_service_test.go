package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	"github.com/lorrc/helpdesk-backend/internal/core/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Monday 2025-03-10; the default calendar is Monday-Friday 08:00-18:00.
var mondayMorning = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func highPriorityConfig() *domain.SLAConfig {
	return &domain.SLAConfig{
		Priority:             domain.PriorityHigh,
		ResponseLimitHours:   2,
		ResolutionLimitHours: 8,
		Active:               true,
	}
}

func newSLAServiceWithConfig(t *testing.T, cfg *domain.SLAConfig, now time.Time) (*SLAService, *mocks.MockSLAHistoryRepository) {
	t.Helper()

	configs := mocks.NewMockSLAConfigService()
	if cfg == nil {
		configs.On("GetConfig", mock.Anything, mock.Anything).Return(nil)
	} else {
		configs.On("GetConfig", mock.Anything, cfg.Priority).Return(cfg)
		configs.On("WeekSchedule", mock.Anything).Return(domain.DefaultWeekSchedule())
	}

	history := mocks.NewMockSLAHistoryRepository()
	service := NewSLAService(configs, history, testLogger()).WithClock(func() time.Time { return now })
	return service, history
}

func TestGetSLAStatus_NoConfiguration(t *testing.T) {
	service, _ := newSLAServiceWithConfig(t, nil, mondayMorning)

	ticket := &domain.Ticket{
		ID:       1,
		Priority: domain.PriorityLow,
		Status:   domain.StatusOpen,
		OpenedAt: mondayMorning.Add(-24 * time.Hour),
	}

	snapshot := service.GetSLAStatus(context.Background(), ticket)

	assert.Equal(t, domain.SLAStatusNone, snapshot.Response.Status)
	assert.Equal(t, domain.SLAStatusNone, snapshot.Resolution.Status)
	assert.False(t, snapshot.HasSLA())
	assert.Zero(t, snapshot.ElapsedHours)
}

func TestGetSLAStatus_OpenTicketAccrues(t *testing.T) {
	now := mondayMorning.Add(3 * time.Hour) // Monday 12:00
	service, _ := newSLAServiceWithConfig(t, highPriorityConfig(), now)

	ticket := &domain.Ticket{
		ID:       1,
		Priority: domain.PriorityHigh,
		Status:   domain.StatusOpen,
		OpenedAt: mondayMorning,
	}

	snapshot := service.GetSLAStatus(context.Background(), ticket)

	// 3 business hours elapsed with no first response: the 2h response
	// deadline is already blown while the 8h resolution one is on track.
	assert.InDelta(t, 3.0, snapshot.Response.ElapsedHours, 0.001)
	assert.Equal(t, domain.SLAStatusOverdueActive, snapshot.Response.Status)

	assert.InDelta(t, 3.0, snapshot.Resolution.ElapsedHours, 0.001)
	assert.Equal(t, domain.SLAStatusOnTrack, snapshot.Resolution.Status)

	assert.InDelta(t, 3.0, snapshot.ElapsedHours, 0.001)
}

func TestGetSLAStatus_FirstResponseClosesResponseMetric(t *testing.T) {
	now := mondayMorning.Add(6 * time.Hour)
	service, _ := newSLAServiceWithConfig(t, highPriorityConfig(), now)

	firstResponse := mondayMorning.Add(time.Hour)
	ticket := &domain.Ticket{
		ID:              1,
		Priority:        domain.PriorityHigh,
		Status:          domain.StatusInProgress,
		OpenedAt:        mondayMorning,
		FirstResponseAt: &firstResponse,
	}

	snapshot := service.GetSLAStatus(context.Background(), ticket)

	// Anchored at the first response, not at now.
	assert.InDelta(t, 1.0, snapshot.Response.ElapsedHours, 0.001)
	assert.Equal(t, domain.SLAStatusMet, snapshot.Response.Status)

	// The resolution metric keeps accruing.
	assert.InDelta(t, 6.0, snapshot.Resolution.ElapsedHours, 0.001)
}

func TestGetSLAStatus_NearingBreach(t *testing.T) {
	// 6.5 of 8 hours consumed = 81.25%.
	now := mondayMorning.Add(6*time.Hour + 30*time.Minute)
	service, _ := newSLAServiceWithConfig(t, highPriorityConfig(), now)

	firstResponse := mondayMorning.Add(30 * time.Minute)
	ticket := &domain.Ticket{
		ID:              1,
		Priority:        domain.PriorityHigh,
		Status:          domain.StatusInProgress,
		OpenedAt:        mondayMorning,
		FirstResponseAt: &firstResponse,
	}

	snapshot := service.GetSLAStatus(context.Background(), ticket)
	assert.Equal(t, domain.SLAStatusNearingBreach, snapshot.Resolution.Status)
}

func TestGetSLAStatus_AnalysisFreezesResolutionClock(t *testing.T) {
	now := mondayMorning.Add(5 * time.Hour)
	service, _ := newSLAServiceWithConfig(t, highPriorityConfig(), now)

	firstResponse := mondayMorning.Add(time.Hour)
	ticket := &domain.Ticket{
		ID:              1,
		Priority:        domain.PriorityHigh,
		Status:          domain.StatusInAnalysis,
		OpenedAt:        mondayMorning,
		FirstResponseAt: &firstResponse,
	}

	snapshot := service.GetSLAStatus(context.Background(), ticket)

	assert.Equal(t, domain.SLAStatusPaused, snapshot.Resolution.Status)
	assert.Zero(t, snapshot.Resolution.ElapsedHours)

	// The response metric is unaffected by the freeze.
	assert.Equal(t, domain.SLAStatusMet, snapshot.Response.Status)
}

func TestGetSLAStatus_WeekendDoesNotAccrue(t *testing.T) {
	// Opened Friday 17:00, inspected Monday 09:00: one business hour on
	// Friday plus one on Monday.
	openedAt := time.Date(2025, 3, 14, 17, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC)
	service, _ := newSLAServiceWithConfig(t, highPriorityConfig(), now)

	ticket := &domain.Ticket{
		ID:       1,
		Priority: domain.PriorityHigh,
		Status:   domain.StatusOpen,
		OpenedAt: openedAt,
	}

	snapshot := service.GetSLAStatus(context.Background(), ticket)
	assert.InDelta(t, 2.0, snapshot.Resolution.ElapsedHours, 0.001)
	assert.Equal(t, domain.SLAStatusOnTrack, snapshot.Resolution.Status)
}

func TestGetSLAStatus_ResolvedTicketIsStable(t *testing.T) {
	resolvedAt := mondayMorning.Add(5 * time.Hour)
	firstResponse := mondayMorning.Add(time.Hour)
	ticket := &domain.Ticket{
		ID:              1,
		Priority:        domain.PriorityHigh,
		Status:          domain.StatusResolved,
		OpenedAt:        mondayMorning,
		FirstResponseAt: &firstResponse,
		ResolvedAt:      &resolvedAt,
	}

	// Recomputing days later yields the same classification, because both
	// metrics anchor on stored timestamps.
	for _, now := range []time.Time{resolvedAt, resolvedAt.AddDate(0, 0, 3)} {
		service, _ := newSLAServiceWithConfig(t, highPriorityConfig(), now)
		snapshot := service.GetSLAStatus(context.Background(), ticket)

		assert.InDelta(t, 5.0, snapshot.Resolution.ElapsedHours, 0.001)
		assert.Equal(t, domain.SLAStatusMet, snapshot.Resolution.Status)
		assert.Equal(t, domain.SLAStatusMet, snapshot.Response.Status)
	}
}

func TestGetSLAStatus_ResolvedPastLimit(t *testing.T) {
	resolvedAt := mondayMorning.Add(9 * time.Hour) // 9 business hours on Monday 08-18
	ticket := &domain.Ticket{
		ID:         1,
		Priority:   domain.PriorityHigh,
		Status:     domain.StatusResolved,
		OpenedAt:   mondayMorning,
		ResolvedAt: &resolvedAt,
	}

	service, _ := newSLAServiceWithConfig(t, highPriorityConfig(), resolvedAt)
	snapshot := service.GetSLAStatus(context.Background(), ticket)

	assert.Equal(t, domain.SLAStatusBreached, snapshot.Resolution.Status)
}

func TestGetSLAStatus_ClosedWithoutTimestamps(t *testing.T) {
	// Cancelled without ever being touched: both metrics close at zero
	// elapsed and count as met.
	service, _ := newSLAServiceWithConfig(t, highPriorityConfig(), mondayMorning.Add(48*time.Hour))

	ticket := &domain.Ticket{
		ID:       1,
		Priority: domain.PriorityHigh,
		Status:   domain.StatusCancelled,
		OpenedAt: mondayMorning,
	}

	snapshot := service.GetSLAStatus(context.Background(), ticket)

	assert.Equal(t, domain.SLAStatusMet, snapshot.Response.Status)
	assert.Zero(t, snapshot.Response.ElapsedHours)
	assert.Equal(t, domain.SLAStatusMet, snapshot.Resolution.Status)
	assert.Zero(t, snapshot.Resolution.ElapsedHours)
}

func TestSyncTicket_RecordsCreation(t *testing.T) {
	service, history := newSLAServiceWithConfig(t, highPriorityConfig(), mondayMorning)

	ticket := &domain.Ticket{
		ID:       7,
		Priority: domain.PriorityHigh,
		Status:   domain.StatusOpen,
		OpenedAt: mondayMorning,
	}

	history.On("Upsert", mock.Anything, mock.MatchedBy(func(e *domain.SLAHistoryEntry) bool {
		return e.TicketID == 7 &&
			e.Action == domain.HistoryActionCreated &&
			e.PreviousStatus == nil &&
			e.NewStatus == domain.StatusOpen
	})).Return(nil).Once()

	snapshot := service.SyncTicket(context.Background(), ticket, nil)

	require.NotNil(t, snapshot)
	history.AssertExpectations(t)
}

func TestSyncTicket_RecordsUpdate(t *testing.T) {
	service, history := newSLAServiceWithConfig(t, highPriorityConfig(), mondayMorning.Add(time.Hour))

	previous := domain.StatusOpen
	ticket := &domain.Ticket{
		ID:       7,
		Priority: domain.PriorityHigh,
		Status:   domain.StatusInProgress,
		OpenedAt: mondayMorning,
	}

	history.On("Upsert", mock.Anything, mock.MatchedBy(func(e *domain.SLAHistoryEntry) bool {
		return e.Action == domain.HistoryActionUpdated &&
			e.PreviousStatus != nil && *e.PreviousStatus == domain.StatusOpen &&
			e.NewStatus == domain.StatusInProgress
	})).Return(nil).Once()

	snapshot := service.SyncTicket(context.Background(), ticket, &previous)

	require.NotNil(t, snapshot)
	history.AssertExpectations(t)
}

func TestSyncTicket_HistoryFailureDoesNotPropagate(t *testing.T) {
	service, history := newSLAServiceWithConfig(t, highPriorityConfig(), mondayMorning)

	history.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("table locked"))

	ticket := &domain.Ticket{
		ID:       7,
		Priority: domain.PriorityHigh,
		Status:   domain.StatusOpen,
		OpenedAt: mondayMorning,
	}

	snapshot := service.SyncTicket(context.Background(), ticket, nil)

	require.NotNil(t, snapshot)
	assert.Equal(t, int64(7), snapshot.TicketID)
}
