package ports

import (
	"context"
	"time"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
)

// ListTicketsParams filters and paginates ticket listings.
type ListTicketsParams struct {
	Status   string
	Priority string
	Limit    int
	Offset   int
}

// TicketRepository is the secondary port for ticket persistence.
// Soft-deleted tickets are invisible to every method except SoftDelete.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	SoftDelete(ctx context.Context, id int64, now time.Time) error
	ListPaginated(ctx context.Context, params ListTicketsParams) ([]*domain.Ticket, error)
	// ListAll returns every live ticket, used by full metric rebuilds
	// and the daily recompute.
	ListAll(ctx context.Context) ([]*domain.Ticket, error)
	CountOpenedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

// SLAConfigRepository is the secondary port for SLA deadlines and the
// business-hours table.
type SLAConfigRepository interface {
	// GetByPriority returns apperrors.ErrSLAConfigNotFound when the
	// priority has no active row.
	GetByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLAConfig, error)
	List(ctx context.Context) ([]domain.SLAConfig, error)
	Upsert(ctx context.Context, cfg *domain.SLAConfig) (*domain.SLAConfig, error)

	ListWindows(ctx context.Context) ([]domain.BusinessWindow, error)
	UpsertWindow(ctx context.Context, window *domain.BusinessWindow) (*domain.BusinessWindow, error)
}

// SLAHistoryRepository is the secondary port for the per-ticket SLA
// record. One row per ticket, last write wins.
type SLAHistoryRepository interface {
	// GetByTicket returns apperrors.ErrHistoryNotFound when the ticket
	// has no row yet.
	GetByTicket(ctx context.Context, ticketID int64) (*domain.SLAHistoryEntry, error)
	Upsert(ctx context.Context, entry *domain.SLAHistoryEntry) error
}

// CacheStore is the secondary port for the persistent cache tier.
type CacheStore interface {
	// Get returns apperrors.ErrCacheMiss for absent keys; expired rows
	// are the caller's concern.
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	Set(ctx context.Context, entry domain.CacheEntry) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	// PurgeExpired removes rows past their lifetime, returning how many
	// were dropped.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
