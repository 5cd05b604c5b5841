package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
)

// CacheRepository is the persistent cache tier, backed by the
// metrics_cache table. Values are opaque JSON; expiry is enforced lazily
// by the cache layer, with PurgeExpired available for hygiene.
type CacheRepository struct {
	pool *pgxpool.Pool
}

var _ ports.CacheStore = (*CacheRepository)(nil)

// NewCacheRepository creates a new persistent cache store.
func NewCacheRepository(pool *pgxpool.Pool) *CacheRepository {
	return &CacheRepository{pool: pool}
}

// Get returns the stored entry for a key, expired or not.
func (r *CacheRepository) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	const query = `
SELECT cache_key, cache_value, calculated_at, expires_at
FROM metrics_cache
WHERE cache_key = $1`

	var entry domain.CacheEntry
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&entry.Key, &entry.Value, &entry.ComputedAt, &entry.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCacheMiss
		}
		return nil, err
	}
	return &entry, nil
}

// Set stores an entry, overwriting any existing row for the key.
func (r *CacheRepository) Set(ctx context.Context, entry domain.CacheEntry) error {
	const query = `
INSERT INTO metrics_cache (cache_key, cache_value, calculated_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cache_key) DO UPDATE
SET cache_value = EXCLUDED.cache_value,
    calculated_at = EXCLUDED.calculated_at,
    expires_at = EXCLUDED.expires_at`

	_, err := r.pool.Exec(ctx, query, entry.Key, entry.Value, entry.ComputedAt, entry.ExpiresAt)
	return err
}

// Delete removes the given keys.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	const query = `DELETE FROM metrics_cache WHERE cache_key = ANY($1)`
	_, err := r.pool.Exec(ctx, query, keys)
	return err
}

// DeleteByPrefix removes every key starting with prefix.
func (r *CacheRepository) DeleteByPrefix(ctx context.Context, prefix string) error {
	const query = `DELETE FROM metrics_cache WHERE cache_key LIKE $1 || '%'`
	_, err := r.pool.Exec(ctx, query, prefix)
	return err
}

// PurgeExpired removes rows past their lifetime.
func (r *CacheRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM metrics_cache WHERE expires_at <= $1`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
