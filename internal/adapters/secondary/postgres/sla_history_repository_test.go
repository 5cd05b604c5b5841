package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
)

func TestSLAHistoryRepository_UpsertAndGet(t *testing.T) {
	clearTickets(t)
	ctx := context.Background()
	history := NewSLAHistoryRepository(testPool)
	tickets := NewTicketRepository(testPool)

	ticket := seedTicket(t, tickets, "VPN instavel", domain.PriorityHigh, domain.StatusOpen, time.Now().UTC())

	recordedAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, history.Upsert(ctx, &domain.SLAHistoryEntry{
		TicketID:             ticket.ID,
		Action:               domain.HistoryActionCreated,
		NewStatus:            domain.StatusOpen,
		ResponseLimitHours:   2,
		ResolutionLimitHours: 8,
		SLAStatus:            domain.SLAStatusOnTrack,
		RecordedAt:           recordedAt,
	}))

	entry, err := history.GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, entry.TicketID)
	assert.Equal(t, domain.HistoryActionCreated, entry.Action)
	assert.Nil(t, entry.PreviousStatus)
	assert.Equal(t, domain.StatusOpen, entry.NewStatus)
	assert.Equal(t, 8.0, entry.ResolutionLimitHours)
	assert.Equal(t, domain.SLAStatusOnTrack, entry.SLAStatus)
	assert.WithinDuration(t, recordedAt, entry.RecordedAt, time.Millisecond)
}

func TestSLAHistoryRepository_LastWriteWins(t *testing.T) {
	clearTickets(t)
	ctx := context.Background()
	history := NewSLAHistoryRepository(testPool)
	tickets := NewTicketRepository(testPool)

	ticket := seedTicket(t, tickets, "VPN instavel", domain.PriorityHigh, domain.StatusOpen, time.Now().UTC())

	require.NoError(t, history.Upsert(ctx, &domain.SLAHistoryEntry{
		TicketID:   ticket.ID,
		Action:     domain.HistoryActionCreated,
		NewStatus:  domain.StatusOpen,
		SLAStatus:  domain.SLAStatusOnTrack,
		RecordedAt: time.Now().UTC(),
	}))

	previous := domain.StatusOpen
	require.NoError(t, history.Upsert(ctx, &domain.SLAHistoryEntry{
		TicketID:        ticket.ID,
		Action:          domain.HistoryActionUpdated,
		PreviousStatus:  &previous,
		NewStatus:       domain.StatusResolved,
		ResponseHours:   1.5,
		ResolutionHours: 4,
		SLAStatus:       domain.SLAStatusMet,
		RecordedAt:      time.Now().UTC(),
	}))

	entry, err := history.GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	// One row per ticket: the second write overwrote everything except the
	// original action.
	assert.Equal(t, domain.HistoryActionCreated, entry.Action)
	require.NotNil(t, entry.PreviousStatus)
	assert.Equal(t, domain.StatusOpen, *entry.PreviousStatus)
	assert.Equal(t, domain.StatusResolved, entry.NewStatus)
	assert.Equal(t, domain.SLAStatusMet, entry.SLAStatus)
	assert.Equal(t, 1.5, entry.ResponseHours)
}

func TestSLAHistoryRepository_ResyncKeepsPreviousStatus(t *testing.T) {
	clearTickets(t)
	ctx := context.Background()
	history := NewSLAHistoryRepository(testPool)
	tickets := NewTicketRepository(testPool)

	ticket := seedTicket(t, tickets, "VPN instavel", domain.PriorityHigh, domain.StatusOpen, time.Now().UTC())

	require.NoError(t, history.Upsert(ctx, &domain.SLAHistoryEntry{
		TicketID:   ticket.ID,
		Action:     domain.HistoryActionCreated,
		NewStatus:  domain.StatusOpen,
		SLAStatus:  domain.SLAStatusOnTrack,
		RecordedAt: time.Now().UTC(),
	}))

	previous := domain.StatusOpen
	require.NoError(t, history.Upsert(ctx, &domain.SLAHistoryEntry{
		TicketID:        ticket.ID,
		Action:          domain.HistoryActionUpdated,
		PreviousStatus:  &previous,
		NewStatus:       domain.StatusResolved,
		ResolutionHours: 4,
		SLAStatus:       domain.SLAStatusMet,
		RecordedAt:      time.Now().UTC(),
	}))

	// A recompute write carries no previous status: the figures refresh
	// but the last real transition stays on record.
	require.NoError(t, history.Upsert(ctx, &domain.SLAHistoryEntry{
		TicketID:        ticket.ID,
		Action:          domain.HistoryActionCreated,
		NewStatus:       domain.StatusResolved,
		ResolutionHours: 4.5,
		SLAStatus:       domain.SLAStatusMet,
		RecordedAt:      time.Now().UTC(),
	}))

	entry, err := history.GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, entry.PreviousStatus)
	assert.Equal(t, domain.StatusOpen, *entry.PreviousStatus)
	assert.Equal(t, domain.HistoryActionCreated, entry.Action)
	assert.Equal(t, domain.StatusResolved, entry.NewStatus)
	assert.Equal(t, 4.5, entry.ResolutionHours)
}

func TestSLAHistoryRepository_GetByTicket_NotFound(t *testing.T) {
	clearTickets(t)
	history := NewSLAHistoryRepository(testPool)

	_, err := history.GetByTicket(context.Background(), 999999)
	assert.ErrorIs(t, err, apperrors.ErrHistoryNotFound)
}

func TestSLAHistoryRepository_RowsGoWithTheirTicket(t *testing.T) {
	clearTickets(t)
	ctx := context.Background()
	history := NewSLAHistoryRepository(testPool)
	tickets := NewTicketRepository(testPool)

	ticket := seedTicket(t, tickets, "Descartavel", domain.PriorityLow, domain.StatusOpen, time.Now().UTC())
	require.NoError(t, history.Upsert(ctx, &domain.SLAHistoryEntry{
		TicketID:   ticket.ID,
		Action:     domain.HistoryActionCreated,
		NewStatus:  domain.StatusOpen,
		SLAStatus:  domain.SLAStatusOnTrack,
		RecordedAt: time.Now().UTC(),
	}))

	// Hard-deleting the ticket cascades to its history row.
	_, err := testPool.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, ticket.ID)
	require.NoError(t, err)

	_, err = history.GetByTicket(ctx, ticket.ID)
	assert.ErrorIs(t, err, apperrors.ErrHistoryNotFound)
}
