// Package cache implements the PostgreSQL-backed forecast cache: a key-value
// store keyed by (location, hotspot, species, date) with TTL expiry and LRU
// overflow eviction. Payloads are zstd-compressed JSON. When no backing store
// is configured the cache runs disabled: every read misses and every write is
// a no-op success, so the rest of the system stays correct, only slower.
package cache

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx. The
// repository accepts this so the same code works inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
