package app_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatewaylabs/creditmeter/adapters/clock"
	"github.com/gatewaylabs/creditmeter/adapters/memory"
	"github.com/gatewaylabs/creditmeter/app"
	"github.com/gatewaylabs/creditmeter/domain/limits"
	"github.com/gatewaylabs/creditmeter/domain/usage"
	"github.com/gatewaylabs/creditmeter/ports"
)

type countingUsageStore struct {
	*memory.UsageStore
	totalsCalls int
	failWith    error
}

func (s *countingUsageStore) Totals(ctx context.Context, userID string, dayStart, monthStart time.Time) (usage.Totals, error) {
	s.totalsCalls++
	if s.failWith != nil {
		return usage.Totals{}, s.failWith
	}
	return s.UsageStore.Totals(ctx, userID, dayStart, monthStart)
}

type countingLimitStore struct {
	*memory.LimitStore
	userCalls   int
	globalCalls int
}

func (s *countingLimitStore) GetForUser(ctx context.Context, userID string) (limits.Limit, bool, error) {
	s.userCalls++
	return s.LimitStore.GetForUser(ctx, userID)
}

func (s *countingLimitStore) GetGlobal(ctx context.Context) (limits.Limit, bool, error) {
	s.globalCalls++
	return s.LimitStore.GetGlobal(ctx)
}

type limitsHarness struct {
	svc    *app.UsageLimitsService
	usage  *countingUsageStore
	limits *countingLimitStore
	clock  *clock.Fake
}

func newLimitsHarness(t *testing.T) *limitsHarness {
	t.Helper()

	h := &limitsHarness{
		usage:  &countingUsageStore{UsageStore: memory.NewUsageStore()},
		limits: &countingLimitStore{LimitStore: memory.NewLimitStore()},
		clock:  clock.NewFake(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)),
	}
	h.svc = app.NewUsageLimitsService(app.UsageLimitsDeps{
		Usage:  h.usage,
		Limits: h.limits,
		Clock:  h.clock,
		Logger: zerolog.Nop(),
	}, 0)
	return h
}

func (h *limitsHarness) record(t *testing.T, tokens int64, cost float64) {
	t.Helper()
	e := usage.NewEvent("e", "u1", "m", "p", tokens, 0, cost, h.clock.Now())
	if err := h.usage.Record(context.Background(), e); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestSnapshot_CachedWithinTTL(t *testing.T) {
	h := newLimitsHarness(t)
	ctx := context.Background()

	h.record(t, 1000, 0.5)

	for i := 0; i < 5; i++ {
		snap := h.svc.Snapshot(ctx, "u1")
		if snap.Totals.DailyTokens != 1000 {
			t.Fatalf("DailyTokens = %d, want 1000", snap.Totals.DailyTokens)
		}
		h.clock.Advance(10 * time.Second)
	}

	if h.usage.totalsCalls != 1 {
		t.Errorf("totals calls = %d within TTL, want 1", h.usage.totalsCalls)
	}
}

func TestSnapshot_RecomputedAfterTTL(t *testing.T) {
	h := newLimitsHarness(t)
	ctx := context.Background()

	h.svc.Snapshot(ctx, "u1")
	h.clock.Advance(61 * time.Second)
	h.svc.Snapshot(ctx, "u1")

	if h.usage.totalsCalls != 2 {
		t.Errorf("totals calls = %d after TTL, want 2", h.usage.totalsCalls)
	}
}

func TestSnapshot_InvalidateForcesRecompute(t *testing.T) {
	h := newLimitsHarness(t)
	ctx := context.Background()

	snap := h.svc.Snapshot(ctx, "u1")
	if snap.Totals.DailyTokens != 0 {
		t.Fatalf("initial DailyTokens = %d", snap.Totals.DailyTokens)
	}

	h.record(t, 2000, 0.1)
	h.svc.InvalidateUser("u1")

	snap = h.svc.Snapshot(ctx, "u1")
	if snap.Totals.DailyTokens != 2000 {
		t.Errorf("DailyTokens after invalidate = %d, want 2000", snap.Totals.DailyTokens)
	}

	// Invalidating an absent entry is a no-op.
	h.svc.InvalidateUser("u1")
	h.svc.InvalidateUser("never-seen")
}

func TestSnapshot_ExceededDailyTokens(t *testing.T) {
	h := newLimitsHarness(t)

	h.record(t, 52_000, 1.0)

	snap := h.svc.Snapshot(context.Background(), "u1")
	if !snap.OverLimit {
		t.Fatal("OverLimit = false for 52k daily tokens against the 50k default")
	}
	if !reflect.DeepEqual(snap.Exceeded, []string{limits.ExceededDailyTokens}) {
		t.Errorf("Exceeded = %v, want [daily_tokens]", snap.Exceeded)
	}
}

func TestSnapshot_ExactlyAtCapIsWithin(t *testing.T) {
	h := newLimitsHarness(t)

	h.record(t, 50_000, 0)

	snap := h.svc.Snapshot(context.Background(), "u1")
	if snap.OverLimit {
		t.Errorf("OverLimit = true at exactly the cap; Exceeded = %v", snap.Exceeded)
	}
}

func TestSnapshot_ResolutionShortCircuits(t *testing.T) {
	h := newLimitsHarness(t)
	ctx := context.Background()

	userRow := limits.Default()
	userRow.ID = "r1"
	userRow.UserID = "u1"
	userRow.DailyTokens = 10_000
	h.limits.Upsert(ctx, userRow)

	snap := h.svc.Snapshot(ctx, "u1")
	if snap.Limit.DailyTokens != 10_000 {
		t.Errorf("Limit.DailyTokens = %d, want the user row's 10000", snap.Limit.DailyTokens)
	}
	if h.limits.globalCalls != 0 {
		t.Errorf("global queried %d times despite user row, want 0", h.limits.globalCalls)
	}
}

func TestSnapshot_FallsBackGlobalThenDefault(t *testing.T) {
	h := newLimitsHarness(t)
	ctx := context.Background()

	// No rows at all: built-in default.
	snap := h.svc.Snapshot(ctx, "u1")
	if snap.Limit.DailyTokens != limits.Default().DailyTokens {
		t.Errorf("default limit not applied: %+v", snap.Limit)
	}

	globalRow := limits.Default()
	globalRow.ID = "g1"
	globalRow.DailyTokens = 75_000
	h.limits.Upsert(ctx, globalRow)
	h.svc.InvalidateUser("u1")

	snap = h.svc.Snapshot(ctx, "u1")
	if snap.Limit.DailyTokens != 75_000 {
		t.Errorf("Limit.DailyTokens = %d, want the global row's 75000", snap.Limit.DailyTokens)
	}
}

func TestSnapshot_FailsOpenAndDoesNotCacheFailure(t *testing.T) {
	h := newLimitsHarness(t)
	ctx := context.Background()

	h.usage.failWith = errors.New("db gone")

	snap := h.svc.Snapshot(ctx, "u1")
	if snap.OverLimit {
		t.Error("degraded snapshot must not block")
	}
	if snap.Limit.DailyTokens != limits.Default().DailyTokens {
		t.Errorf("degraded snapshot limit = %+v, want default", snap.Limit)
	}

	// The failure is not cached: the store recovers and the next call
	// sees real data without waiting out a TTL.
	h.usage.failWith = nil
	h.record(t, 3000, 0.2)

	snap = h.svc.Snapshot(ctx, "u1")
	if snap.Totals.DailyTokens != 3000 {
		t.Errorf("DailyTokens after recovery = %d, want 3000", snap.Totals.DailyTokens)
	}
}

func TestSnapshot_Sweep(t *testing.T) {
	h := newLimitsHarness(t)
	ctx := context.Background()

	h.svc.Snapshot(ctx, "u1")
	h.svc.Snapshot(ctx, "u2")
	h.clock.Advance(61 * time.Second)
	h.svc.Snapshot(ctx, "u3")

	if n := h.svc.Sweep(); n != 2 {
		t.Errorf("Sweep = %d, want 2", n)
	}
}

// Interface checks for the counting doubles.
var (
	_ ports.UsageStore = (*countingUsageStore)(nil)
	_ ports.LimitStore = (*countingLimitStore)(nil)
)
