package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// SLAHistoryRepository is the secondary adapter for the per-ticket SLA
// record. The table holds one row per ticket; writes overwrite in place.
type SLAHistoryRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SLAHistoryRepository = (*SLAHistoryRepository)(nil)

// NewSLAHistoryRepository creates a new SLA history repository.
func NewSLAHistoryRepository(pool *pgxpool.Pool) *SLAHistoryRepository {
	return &SLAHistoryRepository{pool: pool}
}

// GetByTicket returns the current SLA record for a ticket.
func (r *SLAHistoryRepository) GetByTicket(ctx context.Context, ticketID int64) (*domain.SLAHistoryEntry, error) {
	const query = `
SELECT ticket_id, action, previous_status, new_status,
       response_hours, response_limit_hours,
       resolution_hours, resolution_limit_hours,
       sla_status, recorded_at
FROM sla_history
WHERE ticket_id = $1`

	var (
		entry          domain.SLAHistoryEntry
		previousStatus pgtype.Text
	)
	err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&entry.TicketID, &entry.Action, &previousStatus, &entry.NewStatus,
		&entry.ResponseHours, &entry.ResponseLimitHours,
		&entry.ResolutionHours, &entry.ResolutionLimitHours,
		&entry.SLAStatus, &entry.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrHistoryNotFound
		}
		return nil, err
	}

	if previousStatus.Valid {
		status := domain.TicketStatus(previousStatus.String)
		entry.PreviousStatus = &status
	}
	return &entry, nil
}

// Upsert stores the SLA record for a ticket, last write wins. The
// "criacao" action set by the first insert is preserved on overwrites,
// and a write without a previous status keeps the stored one: recompute
// passes refresh the figures without erasing the last real transition.
func (r *SLAHistoryRepository) Upsert(ctx context.Context, entry *domain.SLAHistoryEntry) error {
	const query = `
INSERT INTO sla_history (
    ticket_id, action, previous_status, new_status,
    response_hours, response_limit_hours,
    resolution_hours, resolution_limit_hours,
    sla_status, recorded_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (ticket_id) DO UPDATE
SET previous_status = COALESCE(EXCLUDED.previous_status, sla_history.previous_status),
    new_status = EXCLUDED.new_status,
    response_hours = EXCLUDED.response_hours,
    response_limit_hours = EXCLUDED.response_limit_hours,
    resolution_hours = EXCLUDED.resolution_hours,
    resolution_limit_hours = EXCLUDED.resolution_limit_hours,
    sla_status = EXCLUDED.sla_status,
    recorded_at = EXCLUDED.recorded_at`

	var previousStatus pgtype.Text
	if entry.PreviousStatus != nil {
		previousStatus = pgtype.Text{String: string(*entry.PreviousStatus), Valid: true}
	}

	_, err := r.pool.Exec(ctx, query,
		entry.TicketID, entry.Action, previousStatus, string(entry.NewStatus),
		entry.ResponseHours, entry.ResponseLimitHours,
		entry.ResolutionHours, entry.ResolutionLimitHours,
		string(entry.SLAStatus), entry.RecordedAt,
	)
	return err
}
