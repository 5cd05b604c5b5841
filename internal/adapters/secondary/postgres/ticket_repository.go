package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// TicketRepository is the secondary adapter for ticket persistence.
// Every query filters out soft-deleted rows.
type TicketRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, title, description, requester, priority, status,
opened_at, first_response_at, resolved_at, updated_at, deleted_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t               domain.Ticket
		description     pgtype.Text
		firstResponseAt pgtype.Timestamptz
		resolvedAt      pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
		deletedAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&t.ID, &t.Title, &description, &t.Requester, &t.Priority, &t.Status,
		&t.OpenedAt, &firstResponseAt, &resolvedAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = description.String
	}
	t.FirstResponseAt = timePtr(firstResponseAt)
	t.ResolvedAt = timePtr(resolvedAt)
	t.UpdatedAt = timePtr(updatedAt)
	t.DeletedAt = timePtr(deletedAt)

	return &t, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	value := ts.Time
	return &value
}

func timestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// Create persists a new ticket entity.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `
INSERT INTO tickets (title, description, requester, priority, status, opened_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + ticketColumns

	row := r.pool.QueryRow(ctx, query,
		ticket.Title,
		pgtype.Text{String: ticket.Description, Valid: ticket.Description != ""},
		ticket.Requester,
		string(ticket.Priority),
		string(ticket.Status),
		ticket.OpenedAt,
	)
	return scanTicket(row)
}

// GetByID retrieves a single live ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
SELECT ` + ticketColumns + `
FROM tickets
WHERE id = $1 AND deleted_at IS NULL`

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// Update persists changes to an existing ticket entity.
func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `
UPDATE tickets
SET status = $2,
    first_response_at = $3,
    resolved_at = $4,
    updated_at = $5
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + ticketColumns

	row := r.pool.QueryRow(ctx, query,
		ticket.ID,
		string(ticket.Status),
		timestamptz(ticket.FirstResponseAt),
		timestamptz(ticket.ResolvedAt),
		timestamptz(ticket.UpdatedAt),
	)

	updated, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return updated, nil
}

// SoftDelete marks a ticket as deleted without removing the row.
func (r *TicketRepository) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	const query = `
UPDATE tickets
SET deleted_at = $2
WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}

// ListPaginated retrieves live tickets with pagination and optional filters.
func (r *TicketRepository) ListPaginated(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	const query = `
SELECT ` + ticketColumns + `
FROM tickets
WHERE deleted_at IS NULL
  AND ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR priority = $2)
ORDER BY opened_at DESC
LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query,
		textOrNull(params.Status),
		textOrNull(params.Priority),
		params.Limit,
		params.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTickets(rows)
}

// ListAll retrieves every live ticket, ordered by ID for deterministic
// recompute passes.
func (r *TicketRepository) ListAll(ctx context.Context) ([]*domain.Ticket, error) {
	const query = `
SELECT ` + ticketColumns + `
FROM tickets
WHERE deleted_at IS NULL
ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTickets(rows)
}

func collectTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// CountOpenedBetween counts live tickets opened in [from, to).
func (r *TicketRepository) CountOpenedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	const query = `
SELECT COUNT(*)
FROM tickets
WHERE deleted_at IS NULL
  AND opened_at >= $1
  AND opened_at < $2`

	var count int64
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountActive counts live tickets in a non-terminal status.
func (r *TicketRepository) CountActive(ctx context.Context) (int64, error) {
	const query = `
SELECT COUNT(*)
FROM tickets
WHERE deleted_at IS NULL
  AND status NOT IN ('Concluído', 'Concluido', 'Cancelado')`

	var count int64
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
