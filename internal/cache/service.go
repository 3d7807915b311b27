package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fishcast/internal/confidence"
	"fishcast/internal/types"
)

// Default cache sizing. Overridable via options.
const (
	DefaultTTL        = 6 * time.Hour
	DefaultMaxEntries = 1000

	// sweepBuffer is the slack above the entry cap before a write triggers
	// an eviction sweep, so not every write pays for one.
	sweepBuffer = 10

	touchTimeout = 2 * time.Second
)

// ForecastPayload is the cached value: the aggregated bundle plus the score
// series and confidence derived from it.
type ForecastPayload struct {
	Bundle      types.ForecastDataBundle `json:"bundle"`
	Slots       []types.ScoredSlot       `json:"slots"`
	Confidence  confidence.Breakdown     `json:"confidence"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// repository is the data-access surface the service needs. Satisfied by
// *Repository; declared here so tests can substitute a double.
type repository interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Upsert(ctx context.Context, e *Entry) error
	TouchHit(ctx context.Context, key string, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	DeleteLRUOverflow(ctx context.Context, keep int64) (int64, error)
	TTLFor(ctx context.Context, location, hotspot string) (time.Duration, bool, error)
}

// Service is the forecast cache. A nil repository puts it in disabled mode:
// every read misses, every write succeeds without storing, and the condition
// is logged once at construction rather than on every call.
type Service struct {
	repo       repository
	logger     *slog.Logger
	nowFn      func() time.Time
	defaultTTL time.Duration
	maxEntries int64
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultTTL overrides the TTL used when no per-spot config row exists.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Service) { s.defaultTTL = ttl }
}

// WithMaxEntries overrides the entry cap enforced by the eviction sweep.
func WithMaxEntries(n int64) Option {
	return func(s *Service) { s.maxEntries = n }
}

// WithNowFunc overrides the clock for tests.
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Service) { s.nowFn = fn }
}

// NewService creates the cache service. Pass a nil repo to run disabled.
func NewService(repo *Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		logger:     logger,
		nowFn:      time.Now,
		defaultTTL: DefaultTTL,
		maxEntries: DefaultMaxEntries,
	}
	if repo != nil {
		s.repo = repo
	} else {
		logger.Warn("forecast cache disabled: no backing store configured")
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newServiceWithRepo is the test seam for substituting a repository double.
func newServiceWithRepo(repo repository, logger *slog.Logger, opts ...Option) *Service {
	s := NewService(nil, logger, opts...)
	s.repo = repo
	return s
}

// Enabled reports whether a backing store is configured.
func (s *Service) Enabled() bool { return s.repo != nil }

// Key derives the deterministic cache key for a request. A nil species means
// the all-species forecast.
func Key(location, hotspot string, species *types.Species, date time.Time) string {
	sp := "no-species"
	if species != nil {
		sp = string(*species)
	}
	return fmt.Sprintf("%s|%s|%s|%s", location, hotspot, sp, date.UTC().Format("2006-01-02"))
}

// GetCachedForecast looks up a payload. The second return is true only for a
// live hit; repository failures and expired entries both read as misses. A
// hit fires an async best-effort bookkeeping update that can never block or
// fail the read.
func (s *Service) GetCachedForecast(ctx context.Context, location, hotspot string, species *types.Species, date time.Time) (*ForecastPayload, bool) {
	if s.repo == nil {
		return nil, false
	}
	key := Key(location, hotspot, species, date)

	entry, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if entry == nil || !s.nowFn().Before(entry.ExpiresAt) {
		return nil, false
	}

	var payload ForecastPayload
	if err := decodePayload(entry.Payload, &payload); err != nil {
		s.logger.WarnContext(ctx, "cache payload corrupt, treating as miss", "key", key, "error", err)
		return nil, false
	}

	s.touchAsync(key)
	return &payload, true
}

// touchAsync updates hit bookkeeping off the read path.
func (s *Service) touchAsync(key string) {
	now := s.nowFn()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()
		if err := s.repo.TouchHit(ctx, key, now); err != nil {
			s.logger.Warn("cache hit bookkeeping failed", "key", key, "error", err)
		}
	}()
}

// StoreForecastCache writes a payload under the derived key, resolving the
// per-spot TTL, then runs the eviction sweep. In disabled mode it is a no-op
// success.
func (s *Service) StoreForecastCache(ctx context.Context, location, hotspot string, species *types.Species, date time.Time, payload *ForecastPayload) error {
	if s.repo == nil {
		return nil
	}
	key := Key(location, hotspot, species, date)

	ttl := s.defaultTTL
	if configured, ok, err := s.repo.TTLFor(ctx, location, hotspot); err != nil {
		s.logger.WarnContext(ctx, "cache TTL lookup failed, using default", "key", key, "error", err)
	} else if ok {
		ttl = configured
	}

	data, err := encodePayload(payload)
	if err != nil {
		return types.NewAppError(types.ErrCodeCacheUnavailable, "failed to encode cache payload", err)
	}

	now := s.nowFn()
	entry := &Entry{
		Key:        key,
		Payload:    data,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		TTLSeconds: int64(ttl / time.Second),
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return err
	}

	s.sweep(ctx)
	return nil
}

// sweep enforces TTL and the entry cap: expired entries go first, then
// least-recently-accessed entries until the count is back under the cap.
// Sweep failures are logged, never returned; the write already succeeded.
func (s *Service) sweep(ctx context.Context) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "cache sweep count failed", "error", err)
		return
	}
	if n <= s.maxEntries+sweepBuffer {
		return
	}

	removed, err := s.repo.DeleteExpired(ctx, s.nowFn())
	if err != nil {
		s.logger.WarnContext(ctx, "cache sweep expiry pass failed", "error", err)
		return
	}
	if n-removed <= s.maxEntries {
		return
	}

	evicted, err := s.repo.DeleteLRUOverflow(ctx, s.maxEntries)
	if err != nil {
		s.logger.WarnContext(ctx, "cache sweep eviction pass failed", "error", err)
		return
	}
	s.logger.InfoContext(ctx, "cache sweep complete", "expired", removed, "evicted", evicted)
}
