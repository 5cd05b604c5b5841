package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
	"github.com/lorrc/helpdesk-backend/internal/core/mocks"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

type ticketHarness struct {
	service     *TicketService
	tickets     *mocks.MockTicketRepository
	sla         *mocks.MockSLAService
	metrics     *mocks.MockMetricsService
	broadcaster *mocks.MockEventBroadcaster
}

func newTicketHarness(t *testing.T, now time.Time) *ticketHarness {
	t.Helper()

	h := &ticketHarness{
		tickets:     mocks.NewMockTicketRepository(),
		sla:         mocks.NewMockSLAService(),
		metrics:     mocks.NewMockMetricsService(),
		broadcaster: mocks.NewMockEventBroadcaster(),
	}
	h.service = NewTicketService(h.tickets, h.sla, h.metrics, h.broadcaster, testLogger()).
		WithClock(func() time.Time { return now })
	return h
}

func eventOfType(eventType domain.EventType) interface{} {
	return mock.MatchedBy(func(e domain.Event) bool { return e.Type == eventType })
}

func TestCreateTicket_RunsSideEffectChain(t *testing.T) {
	h := newTicketHarness(t, mondayMorning)
	ctx := context.Background()

	created := &domain.Ticket{
		ID: 42, Title: "Impressora parada", Requester: "maria",
		Priority: domain.PriorityHigh, Status: domain.StatusOpen, OpenedAt: mondayMorning,
	}

	h.tickets.On("Create", mock.Anything, mock.MatchedBy(func(tk *domain.Ticket) bool {
		return tk.Title == "Impressora parada" && tk.Status == domain.StatusOpen
	})).Return(created, nil).Once()

	h.metrics.On("IncrementToday", mock.Anything).Return(int64(1)).Once()
	h.sla.On("SyncTicket", mock.Anything, created, (*domain.TicketStatus)(nil)).Return(nil).Once()
	h.metrics.On("InvalidateForTicket", mock.Anything, int64(42)).Once()
	h.metrics.On("UpdateForTicket", mock.Anything, mock.MatchedBy(func(c ports.TicketChange) bool {
		return c.Created && c.Ticket.ID == 42
	})).Return(nil).Once()
	h.broadcaster.On("Broadcast", eventOfType(domain.EventTicketCreated)).Return(nil).Once()

	got, err := h.service.CreateTicket(ctx, ports.CreateTicketParams{
		Title:       "Impressora parada",
		Description: "A impressora do 2o andar nao responde",
		Requester:   "maria",
		Priority:    domain.PriorityHigh,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	h.tickets.AssertExpectations(t)
	h.metrics.AssertExpectations(t)
	h.sla.AssertExpectations(t)
	h.broadcaster.AssertExpectations(t)
}

func TestCreateTicket_ValidationStopsBeforePersistence(t *testing.T) {
	h := newTicketHarness(t, mondayMorning)

	_, err := h.service.CreateTicket(context.Background(), ports.CreateTicketParams{
		Title:     "",
		Requester: "maria",
		Priority:  domain.PriorityHigh,
	})

	var validationErrs *apperrors.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	h.tickets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	h.metrics.AssertNotCalled(t, "IncrementToday", mock.Anything)
}

func TestCreateTicket_PersistenceFailureSkipsSideEffects(t *testing.T) {
	h := newTicketHarness(t, mondayMorning)

	h.tickets.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := h.service.CreateTicket(context.Background(), ports.CreateTicketParams{
		Title:       "Sem rede",
		Description: "Queda geral de rede no predio",
		Requester:   "joao",
		Priority:    domain.PriorityCritical,
	})

	require.Error(t, err)
	h.metrics.AssertNotCalled(t, "IncrementToday", mock.Anything)
	h.sla.AssertNotCalled(t, "SyncTicket", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_StampsFirstResponseAndReportsIt(t *testing.T) {
	h := newTicketHarness(t, mondayMorning.Add(time.Hour))
	ctx := context.Background()

	stored := &domain.Ticket{
		ID: 7, Title: "Acesso bloqueado", Requester: "ana",
		Priority: domain.PriorityNormal, Status: domain.StatusOpen, OpenedAt: mondayMorning,
	}

	h.tickets.On("GetByID", mock.Anything, int64(7)).Return(stored, nil)
	h.tickets.On("Update", mock.Anything, stored).Return(stored, nil)

	h.sla.On("SyncTicket", mock.Anything, stored, mock.MatchedBy(func(prev *domain.TicketStatus) bool {
		return prev != nil && *prev == domain.StatusOpen
	})).Return(nil).Once()
	h.metrics.On("InvalidateForTicket", mock.Anything, int64(7)).Once()
	h.metrics.On("UpdateForTicket", mock.Anything, mock.MatchedBy(func(c ports.TicketChange) bool {
		return c.FirstResponseStamped &&
			c.PreviousStatus != nil && *c.PreviousStatus == domain.StatusOpen &&
			!c.Created && !c.Deleted
	})).Return(nil).Once()
	h.broadcaster.On("Broadcast", eventOfType(domain.EventStatusUpdated)).Return(nil).Once()

	updated, err := h.service.UpdateStatus(ctx, 7, domain.StatusInProgress)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	require.NotNil(t, updated.FirstResponseAt)
	h.metrics.AssertExpectations(t)
}

func TestUpdateStatus_NormalizesLegacyStatus(t *testing.T) {
	h := newTicketHarness(t, mondayMorning.Add(time.Hour))

	stored := &domain.Ticket{
		ID: 7, Title: "Acesso bloqueado", Requester: "ana",
		Priority: domain.PriorityNormal, Status: domain.StatusOpen, OpenedAt: mondayMorning,
	}

	h.tickets.On("GetByID", mock.Anything, int64(7)).Return(stored, nil)
	h.tickets.On("Update", mock.Anything, stored).Return(stored, nil)
	h.sla.On("SyncTicket", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.metrics.On("InvalidateForTicket", mock.Anything, mock.Anything)
	h.metrics.On("UpdateForTicket", mock.Anything, mock.Anything).Return(nil)
	h.broadcaster.On("Broadcast", mock.Anything).Return(nil)

	updated, err := h.service.UpdateStatus(context.Background(), 7, domain.TicketStatus("Aguardando"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
}

func TestUpdateStatus_InvalidTransitionIsRejected(t *testing.T) {
	h := newTicketHarness(t, mondayMorning)

	resolvedAt := mondayMorning
	stored := &domain.Ticket{
		ID: 7, Title: "Encerrado", Requester: "ana",
		Priority: domain.PriorityNormal, Status: domain.StatusResolved,
		OpenedAt: mondayMorning.Add(-2 * time.Hour), ResolvedAt: &resolvedAt,
	}

	h.tickets.On("GetByID", mock.Anything, int64(7)).Return(stored, nil)

	_, err := h.service.UpdateStatus(context.Background(), 7, domain.StatusOpen)

	require.Error(t, err)
	h.tickets.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	h.metrics.AssertNotCalled(t, "UpdateForTicket", mock.Anything, mock.Anything)
}

func TestUpdateStatus_MetricsFailureDoesNotFailRequest(t *testing.T) {
	h := newTicketHarness(t, mondayMorning.Add(time.Hour))

	stored := &domain.Ticket{
		ID: 7, Title: "Acesso bloqueado", Requester: "ana",
		Priority: domain.PriorityNormal, Status: domain.StatusOpen, OpenedAt: mondayMorning,
	}

	h.tickets.On("GetByID", mock.Anything, int64(7)).Return(stored, nil)
	h.tickets.On("Update", mock.Anything, stored).Return(stored, nil)
	h.sla.On("SyncTicket", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.metrics.On("InvalidateForTicket", mock.Anything, mock.Anything)
	h.metrics.On("UpdateForTicket", mock.Anything, mock.Anything).Return(errors.New("cache backend down"))
	h.broadcaster.On("Broadcast", mock.Anything).Return(nil).Once()

	updated, err := h.service.UpdateStatus(context.Background(), 7, domain.StatusInProgress)

	// The write committed; a stale dashboard heals on the next rebuild.
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	h.broadcaster.AssertExpectations(t)
}

func TestDeleteTicket_OpenedTodayAdjustsCounter(t *testing.T) {
	now := mondayMorning.Add(4 * time.Hour)
	h := newTicketHarness(t, now)

	stored := &domain.Ticket{
		ID: 9, Title: "Duplicado", Requester: "ana",
		Priority: domain.PriorityLow, Status: domain.StatusOpen, OpenedAt: mondayMorning,
	}

	h.tickets.On("GetByID", mock.Anything, int64(9)).Return(stored, nil)
	h.tickets.On("SoftDelete", mock.Anything, int64(9), now.UTC()).Return(nil).Once()
	h.metrics.On("DecrementToday", mock.Anything).Return(int64(0)).Once()
	h.metrics.On("InvalidateForTicket", mock.Anything, int64(9)).Once()
	h.metrics.On("UpdateForTicket", mock.Anything, mock.MatchedBy(func(c ports.TicketChange) bool {
		return c.Deleted && c.Ticket.DeletedAt != nil
	})).Return(nil).Once()

	require.NoError(t, h.service.DeleteTicket(context.Background(), 9))
	h.tickets.AssertExpectations(t)
	h.metrics.AssertExpectations(t)
}

func TestDeleteTicket_OldTicketLeavesCounterAlone(t *testing.T) {
	h := newTicketHarness(t, mondayMorning)

	stored := &domain.Ticket{
		ID: 9, Title: "Antigo", Requester: "ana",
		Priority: domain.PriorityLow, Status: domain.StatusOpen,
		OpenedAt: mondayMorning.AddDate(0, 0, -3),
	}

	h.tickets.On("GetByID", mock.Anything, int64(9)).Return(stored, nil)
	h.tickets.On("SoftDelete", mock.Anything, int64(9), mock.Anything).Return(nil)
	h.metrics.On("InvalidateForTicket", mock.Anything, mock.Anything)
	h.metrics.On("UpdateForTicket", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, h.service.DeleteTicket(context.Background(), 9))
	h.metrics.AssertNotCalled(t, "DecrementToday", mock.Anything)
}

func TestDeleteTicket_NotFound(t *testing.T) {
	h := newTicketHarness(t, mondayMorning)

	h.tickets.On("GetByID", mock.Anything, int64(404)).Return(nil, apperrors.ErrTicketNotFound)

	err := h.service.DeleteTicket(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	h.tickets.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything, mock.Anything)
}

func TestListTickets_NormalizesStatusFilter(t *testing.T) {
	h := newTicketHarness(t, mondayMorning)

	h.tickets.On("ListPaginated", mock.Anything, ports.ListTicketsParams{
		Status: string(domain.StatusInProgress),
		Limit:  20,
	}).Return([]*domain.Ticket{}, nil).Once()

	_, err := h.service.ListTickets(context.Background(), ports.ListTicketsParams{
		Status: "Aguardando",
		Limit:  20,
	})

	require.NoError(t, err)
	h.tickets.AssertExpectations(t)
}

func TestGetTicketSLA(t *testing.T) {
	h := newTicketHarness(t, mondayMorning)

	stored := &domain.Ticket{
		ID: 3, Title: "VPN instavel", Requester: "ana",
		Priority: domain.PriorityHigh, Status: domain.StatusOpen, OpenedAt: mondayMorning,
	}
	snapshot := &domain.SLASnapshot{TicketID: 3}

	h.tickets.On("GetByID", mock.Anything, int64(3)).Return(stored, nil)
	h.sla.On("GetSLAStatus", mock.Anything, stored).Return(snapshot)

	got, err := h.service.GetTicketSLA(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.TicketID)
}
