// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatewaylabs/creditmeter/adapters/memory"
	"github.com/gatewaylabs/creditmeter/adapters/metrics"
	"github.com/gatewaylabs/creditmeter/domain/limits"
	"github.com/gatewaylabs/creditmeter/domain/usage"
	"github.com/gatewaylabs/creditmeter/ports"
)

// SnapshotTTL is how long a usage snapshot stays fresh.
const SnapshotTTL = 60 * time.Second

// Snapshot is a principal's aggregated usage joined with the effective
// limit and the derived verdict.
type Snapshot struct {
	Totals    usage.Totals
	Limit     limits.Limit
	Exceeded  []string
	OverLimit bool
}

// UsageLimitsDeps contains dependencies for UsageLimitsService.
type UsageLimitsDeps struct {
	Usage   ports.UsageStore
	Limits  ports.LimitStore
	Clock   ports.Clock
	Logger  zerolog.Logger
	Metrics *metrics.Collector // optional
}

// UsageLimitsService computes usage snapshots behind a process-wide
// 60-second cache. It fails open: a broken store yields the safe
// "zero usage, default limits, not over" snapshot, never an error -
// the credit and message-cap paths remain the real gate.
type UsageLimitsService struct {
	usage   ports.UsageStore
	limits  ports.LimitStore
	clock   ports.Clock
	logger  zerolog.Logger
	metrics *metrics.Collector

	cache *memory.TTLCache[string, Snapshot]
}

// NewUsageLimitsService creates the service with the given snapshot TTL
// (SnapshotTTL when ttl <= 0).
func NewUsageLimitsService(deps UsageLimitsDeps, ttl time.Duration) *UsageLimitsService {
	if ttl <= 0 {
		ttl = SnapshotTTL
	}
	return &UsageLimitsService{
		usage:   deps.Usage,
		limits:  deps.Limits,
		clock:   deps.Clock,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		cache:   memory.NewTTLCache[string, Snapshot](ttl, deps.Clock),
	}
}

// Snapshot returns the principal's usage and limits. Total function:
// every failure degrades to the safe default snapshot.
func (s *UsageLimitsService) Snapshot(ctx context.Context, userID string) Snapshot {
	if snap, ok := s.cache.Get(userID); ok {
		s.countCache("snapshot", true)
		return snap
	}
	s.countCache("snapshot", false)

	snap, err := s.compute(ctx, userID)
	if err != nil {
		// Fail open. The degraded snapshot is not cached so the next
		// call retries the stores.
		s.logger.Warn().Err(err).Str("user_id", userID).
			Msg("usage snapshot failed, failing open")
		if s.metrics != nil {
			s.metrics.StoreErrors.WithLabelValues("usage").Inc()
		}
		return safeSnapshot()
	}

	s.cache.Set(userID, snap)
	return snap
}

// InvalidateUser drops the principal's cached snapshot. Must be called by
// the writer right after persisting a new usage event. Idempotent: an
// absent entry is a no-op.
func (s *UsageLimitsService) InvalidateUser(userID string) {
	s.cache.Delete(userID)
	if s.metrics != nil {
		s.metrics.CacheInvalidations.Inc()
	}
}

// Sweep drops stale snapshot entries; called by the janitor.
func (s *UsageLimitsService) Sweep() int {
	n := s.cache.Sweep()
	if s.metrics != nil {
		s.metrics.CacheSweeps.WithLabelValues("snapshot").Add(float64(n))
	}
	return n
}

func (s *UsageLimitsService) compute(ctx context.Context, userID string) (Snapshot, error) {
	limit, err := s.resolve(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	now := s.clock.Now()
	totals, err := s.usage.Totals(ctx, userID, usage.DayStart(now), usage.MonthStart(now))
	if err != nil {
		return Snapshot{}, err
	}

	exceeded := limits.Exceeded(totals, limit)
	return Snapshot{
		Totals:    totals,
		Limit:     limit,
		Exceeded:  exceeded,
		OverLimit: len(exceeded) > 0,
	}, nil
}

// resolve returns the effective limit for a principal: the active
// user-scoped row, else the active global row, else the built-in default.
// Resolution short-circuits - lower-priority scopes are not queried once a
// higher-priority row is found.
func (s *UsageLimitsService) resolve(ctx context.Context, userID string) (limits.Limit, error) {
	if userID != "" {
		l, ok, err := s.limits.GetForUser(ctx, userID)
		if err != nil {
			return limits.Limit{}, err
		}
		if ok {
			return l, nil
		}
	}

	l, ok, err := s.limits.GetGlobal(ctx)
	if err != nil {
		return limits.Limit{}, err
	}
	if ok {
		return l, nil
	}

	return limits.Default(), nil
}

func (s *UsageLimitsService) countCache(name string, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHits.WithLabelValues(name).Inc()
	} else {
		s.metrics.CacheMisses.WithLabelValues(name).Inc()
	}
}

func safeSnapshot() Snapshot {
	return Snapshot{
		Limit:     limits.Default(),
		OverLimit: false,
	}
}
