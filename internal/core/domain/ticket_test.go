package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
)

func validParams() TicketParams {
	return TicketParams{
		Title:     "Printer on fire",
		Requester: "maria.silva",
		Priority:  PriorityHigh,
		OpenedAt:  time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewTicket(t *testing.T) {
	ticket, err := NewTicket(validParams())
	require.NoError(t, err)

	assert.Equal(t, "Printer on fire", ticket.Title)
	assert.Equal(t, StatusOpen, ticket.Status)
	assert.Nil(t, ticket.FirstResponseAt)
	assert.Nil(t, ticket.ResolvedAt)
}

func TestNewTicket_TrimsFields(t *testing.T) {
	params := validParams()
	params.Title = "  Printer on fire  "
	params.Requester = " maria.silva "

	ticket, err := NewTicket(params)
	require.NoError(t, err)

	assert.Equal(t, "Printer on fire", ticket.Title)
	assert.Equal(t, "maria.silva", ticket.Requester)
}

func TestNewTicket_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TicketParams)
		field  string
	}{
		{
			name:   "missing title",
			mutate: func(p *TicketParams) { p.Title = "   " },
			field:  "title",
		},
		{
			name:   "title too long",
			mutate: func(p *TicketParams) { p.Title = strings.Repeat("x", 256) },
			field:  "title",
		},
		{
			name:   "description too long",
			mutate: func(p *TicketParams) { p.Description = strings.Repeat("x", 10001) },
			field:  "description",
		},
		{
			name:   "missing requester",
			mutate: func(p *TicketParams) { p.Requester = "" },
			field:  "requester",
		},
		{
			name:   "invalid priority",
			mutate: func(p *TicketParams) { p.Priority = "Urgente" },
			field:  "priority",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)

			_, err := NewTicket(params)
			require.Error(t, err)

			var validationErrs *apperrors.ValidationErrors
			require.ErrorAs(t, err, &validationErrs)
			assert.Contains(t, validationErrs.Errors, tt.field)
		})
	}
}

func TestUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    TicketStatus
		to      TicketStatus
		wantErr error
	}{
		{name: "open to in progress", from: StatusOpen, to: StatusInProgress},
		{name: "open to resolved", from: StatusOpen, to: StatusResolved},
		{name: "in progress to analysis", from: StatusInProgress, to: StatusInAnalysis},
		{name: "analysis back to in progress", from: StatusInAnalysis, to: StatusInProgress},
		{name: "resolved is terminal", from: StatusResolved, to: StatusInProgress, wantErr: apperrors.ErrInvalidStatusTransition},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusOpen, wantErr: apperrors.ErrInvalidStatusTransition},
		{name: "unknown target status", from: StatusOpen, to: "Pendente", wantErr: apperrors.ErrInvalidStatus},
		{name: "in progress cannot reopen", from: StatusInProgress, to: StatusOpen, wantErr: apperrors.ErrInvalidStatusTransition},
	}

	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &Ticket{Status: tt.from, OpenedAt: now.Add(-time.Hour)}

			err := ticket.UpdateStatus(tt.to, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, ticket.Status)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, ticket.Status)
		})
	}
}

func TestUpdateStatus_StampsFirstResponse(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	ticket := &Ticket{Status: StatusOpen, OpenedAt: now.Add(-time.Hour)}
	require.NoError(t, ticket.UpdateStatus(StatusInProgress, now))

	require.NotNil(t, ticket.FirstResponseAt)
	assert.Equal(t, now, *ticket.FirstResponseAt)

	// Moving on does not move the anchor.
	later := now.Add(2 * time.Hour)
	require.NoError(t, ticket.UpdateStatus(StatusInAnalysis, later))
	assert.Equal(t, now, *ticket.FirstResponseAt)
}

func TestUpdateStatus_ResolutionStampedOnce(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	ticket := &Ticket{Status: StatusInProgress, OpenedAt: now.Add(-3 * time.Hour), ResolvedAt: &earlier}
	require.NoError(t, ticket.UpdateStatus(StatusResolved, now))

	// A pre-existing resolution timestamp is never overwritten.
	assert.Equal(t, earlier, *ticket.ResolvedAt)
}

func TestUpdateStatus_ResolvingDirectlyDoesNotStampFirstResponse(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	ticket := &Ticket{Status: StatusOpen, OpenedAt: now.Add(-time.Hour)}
	require.NoError(t, ticket.UpdateStatus(StatusResolved, now))

	assert.Nil(t, ticket.FirstResponseAt)
	require.NotNil(t, ticket.ResolvedAt)
}

func TestRecordFirstResponse_Idempotent(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	ticket := &Ticket{Status: StatusOpen, OpenedAt: now.Add(-time.Hour)}

	assert.True(t, ticket.RecordFirstResponse(now))
	assert.False(t, ticket.RecordFirstResponse(now.Add(time.Hour)))
	assert.Equal(t, now, *ticket.FirstResponseAt)
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want TicketStatus
	}{
		{"Aguardando", StatusInProgress},
		{"Aguardando Cliente", StatusInProgress},
		{"Concluido", StatusResolved},
		{"Concluído", StatusResolved},
		{" Aberto ", StatusOpen},
		{"Pendente", "Pendente"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestStatusIsClosed(t *testing.T) {
	assert.True(t, StatusResolved.IsClosed())
	assert.True(t, StatusCancelled.IsClosed())
	assert.True(t, TicketStatus("Concluido").IsClosed())
	assert.False(t, StatusOpen.IsClosed())
	assert.False(t, StatusInAnalysis.IsClosed())
}

func TestStatusIsPaused(t *testing.T) {
	assert.True(t, TicketStatus("Aguardando").IsPaused())
	assert.True(t, TicketStatus("Aguardando Cliente").IsPaused())
	assert.False(t, StatusInAnalysis.IsPaused())
	assert.False(t, StatusOpen.IsPaused())
}

func TestOpenedOn(t *testing.T) {
	opened := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	ticket := &Ticket{OpenedAt: opened}

	assert.True(t, ticket.OpenedOn(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)))
	assert.False(t, ticket.OpenedOn(time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC)))
}
