package usage_test

import (
	"testing"
	"time"

	"github.com/gatewaylabs/creditmeter/domain/usage"
)

func TestDayStart(t *testing.T) {
	in := time.Date(2025, 3, 15, 18, 42, 11, 500, time.UTC)
	want := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := usage.DayStart(in); !got.Equal(want) {
		t.Errorf("DayStart = %v, want %v", got, want)
	}
}

func TestDayStart_NormalizesZone(t *testing.T) {
	// 01:30 on Mar 16 in UTC+5 is 20:30 on Mar 15 UTC; the window is the
	// UTC day.
	zone := time.FixedZone("plus5", 5*3600)
	in := time.Date(2025, 3, 16, 1, 30, 0, 0, zone)
	want := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := usage.DayStart(in); !got.Equal(want) {
		t.Errorf("DayStart = %v, want %v", got, want)
	}
}

func TestMonthStart(t *testing.T) {
	in := time.Date(2025, 3, 15, 18, 42, 11, 0, time.UTC)
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := usage.MonthStart(in); !got.Equal(want) {
		t.Errorf("MonthStart = %v, want %v", got, want)
	}
}

func TestNewEvent_TotalInvariant(t *testing.T) {
	e := usage.NewEvent("id1", "u1", "m1", "openai", 120, 80, 0.02, time.Now())
	if e.TotalTokens != 200 {
		t.Errorf("TotalTokens = %d, want 200", e.TotalTokens)
	}
	if e.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location = %v, want UTC", e.CreatedAt.Location())
	}
}

func TestAggregate(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	mk := func(at time.Time, tokens int64, cost float64) usage.Event {
		return usage.NewEvent("id", "u1", "m1", "p", tokens, 0, cost, at)
	}

	events := []usage.Event{
		// Today.
		mk(now.Add(-time.Hour), 1000, 0.25),
		mk(usage.DayStart(now), 500, 0.5), // boundary: counts as today
		// Earlier this month.
		mk(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), 2000, 0.25),
		// Previous month: excluded entirely.
		mk(time.Date(2025, 2, 27, 9, 0, 0, 0, time.UTC), 9999, 9.99),
	}

	got := usage.Aggregate(events, now)

	if got.DailyTokens != 1500 {
		t.Errorf("DailyTokens = %d, want 1500", got.DailyTokens)
	}
	if got.MonthlyTokens != 3500 {
		t.Errorf("MonthlyTokens = %d, want 3500", got.MonthlyTokens)
	}
	if got.DailyCost != 0.75 {
		t.Errorf("DailyCost = %v, want 0.75", got.DailyCost)
	}
	if got.MonthlyCost != 1.0 {
		t.Errorf("MonthlyCost = %v, want 1.0", got.MonthlyCost)
	}
}

func TestAggregate_Empty(t *testing.T) {
	got := usage.Aggregate(nil, time.Now())
	if got != (usage.Totals{}) {
		t.Errorf("Aggregate(nil) = %+v, want zero totals", got)
	}
}
