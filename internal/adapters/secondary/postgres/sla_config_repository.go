package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// SLAConfigRepository is the secondary adapter for SLA deadlines and the
// business-hours calendar.
type SLAConfigRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SLAConfigRepository = (*SLAConfigRepository)(nil)

// NewSLAConfigRepository creates a new SLA configuration repository.
func NewSLAConfigRepository(pool *pgxpool.Pool) *SLAConfigRepository {
	return &SLAConfigRepository{pool: pool}
}

const slaConfigColumns = `id, priority, response_limit_hours, resolution_limit_hours, active, updated_at`

func scanSLAConfig(row pgx.Row) (*domain.SLAConfig, error) {
	var cfg domain.SLAConfig
	err := row.Scan(
		&cfg.ID, &cfg.Priority, &cfg.ResponseLimitHours,
		&cfg.ResolutionLimitHours, &cfg.Active, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetByPriority returns the active configuration row for a priority.
func (r *SLAConfigRepository) GetByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLAConfig, error) {
	const query = `
SELECT ` + slaConfigColumns + `
FROM sla_configurations
WHERE priority = $1 AND active = TRUE`

	cfg, err := scanSLAConfig(r.pool.QueryRow(ctx, query, string(priority)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSLAConfigNotFound
		}
		return nil, err
	}
	return cfg, nil
}

// List returns every configuration row, active or not.
func (r *SLAConfigRepository) List(ctx context.Context) ([]domain.SLAConfig, error) {
	const query = `
SELECT ` + slaConfigColumns + `
FROM sla_configurations
ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := make([]domain.SLAConfig, 0)
	for rows.Next() {
		cfg, err := scanSLAConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

// Upsert stores a configuration row, keyed by priority.
func (r *SLAConfigRepository) Upsert(ctx context.Context, cfg *domain.SLAConfig) (*domain.SLAConfig, error) {
	const query = `
INSERT INTO sla_configurations (priority, response_limit_hours, resolution_limit_hours, active, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (priority) DO UPDATE
SET response_limit_hours = EXCLUDED.response_limit_hours,
    resolution_limit_hours = EXCLUDED.resolution_limit_hours,
    active = EXCLUDED.active,
    updated_at = NOW()
RETURNING ` + slaConfigColumns

	return scanSLAConfig(r.pool.QueryRow(ctx, query,
		string(cfg.Priority),
		cfg.ResponseLimitHours,
		cfg.ResolutionLimitHours,
		cfg.Active,
	))
}

// ListWindows returns every business-hours row ordered by weekday.
func (r *SLAConfigRepository) ListWindows(ctx context.Context) ([]domain.BusinessWindow, error) {
	const query = `
SELECT weekday, start_time, end_time, active
FROM sla_business_hours
ORDER BY weekday`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := make([]domain.BusinessWindow, 0)
	for rows.Next() {
		var w domain.BusinessWindow
		if err := rows.Scan(&w.Weekday, &w.Start, &w.End, &w.Active); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}

// UpsertWindow stores a business-hours row, keyed by weekday.
func (r *SLAConfigRepository) UpsertWindow(ctx context.Context, window *domain.BusinessWindow) (*domain.BusinessWindow, error) {
	const query = `
INSERT INTO sla_business_hours (weekday, start_time, end_time, active)
VALUES ($1, $2, $3, $4)
ON CONFLICT (weekday) DO UPDATE
SET start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    active = EXCLUDED.active
RETURNING weekday, start_time, end_time, active`

	var stored domain.BusinessWindow
	err := r.pool.QueryRow(ctx, query,
		window.Weekday, window.Start, window.End, window.Active,
	).Scan(&stored.Weekday, &stored.Start, &stored.End, &stored.Active)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
