package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"fishcast/internal/types"
)

// Entry is one row of the forecast_cache table.
type Entry struct {
	Key          string
	Payload      []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
	TTLSeconds   int64
	HitCount     int64
	LastAccessed time.Time
}

// Repository provides data access for the forecast_cache and cache_ttl_config
// tables.
type Repository struct {
	db DBTX
}

// NewRepository creates a Repository backed by the given database connection
// (pool or transaction).
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

const entryColumns = `cache_key, payload, created_at, expires_at, ttl_seconds, hit_count, last_accessed`

// Get retrieves an entry by key. Returns (nil, nil) when absent; a missing
// key is a cache miss, not an error.
func (r *Repository) Get(ctx context.Context, key string) (*Entry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+entryColumns+`
		 FROM forecast_cache
		 WHERE cache_key = $1`,
		key,
	)

	var e Entry
	err := row.Scan(&e.Key, &e.Payload, &e.CreatedAt, &e.ExpiresAt, &e.TTLSeconds, &e.HitCount, &e.LastAccessed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read cache entry", err)
	}
	return &e, nil
}

// Upsert writes an entry by key, replacing any previous payload and resetting
// the bookkeeping columns. Idempotent by cache_key.
func (r *Repository) Upsert(ctx context.Context, e *Entry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO forecast_cache (`+entryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, 0, $3)
		 ON CONFLICT (cache_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			ttl_seconds = EXCLUDED.ttl_seconds,
			hit_count = 0,
			last_accessed = EXCLUDED.created_at`,
		e.Key, e.Payload, e.CreatedAt, e.ExpiresAt, e.TTLSeconds,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert cache entry", err)
	}
	return nil
}

// TouchHit increments the hit counter and refreshes last_accessed.
func (r *Repository) TouchHit(ctx context.Context, key string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE forecast_cache SET
			hit_count = hit_count + 1,
			last_accessed = $2
		 WHERE cache_key = $1`,
		key, at,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to touch cache entry", err)
	}
	return nil
}

// DeleteExpired removes every entry whose expiry has passed. Returns the
// number of rows removed.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM forecast_cache WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete expired cache entries", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of live entries.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM forecast_cache`).Scan(&n)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count cache entries", err)
	}
	return n, nil
}

// DeleteLRUOverflow removes least-recently-accessed entries until at most
// keep remain. Returns the number of rows removed.
func (r *Repository) DeleteLRUOverflow(ctx context.Context, keep int64) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM forecast_cache
		 WHERE cache_key IN (
			SELECT cache_key FROM forecast_cache
			ORDER BY last_accessed ASC
			OFFSET 0
			LIMIT GREATEST((SELECT COUNT(*) FROM forecast_cache) - $1, 0)
		 )`,
		keep,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to evict cache overflow", err)
	}
	return tag.RowsAffected(), nil
}

// TTLFor resolves the configured TTL for a (location, hotspot) pair, or
// (0, false) when no row exists and the caller should use the default.
func (r *Repository) TTLFor(ctx context.Context, location, hotspot string) (time.Duration, bool, error) {
	var seconds int64
	err := r.db.QueryRow(ctx,
		`SELECT ttl_seconds FROM cache_ttl_config
		 WHERE location = $1 AND hotspot = $2`,
		location, hotspot,
	).Scan(&seconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, types.NewAppError(types.ErrCodeInternalDB, "failed to resolve cache TTL", err)
	}
	return time.Duration(seconds) * time.Second, true, nil
}
