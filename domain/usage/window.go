package usage

import "time"

// DayStart returns midnight UTC of the day containing t.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first instant of the calendar month containing t,
// in UTC.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Aggregate computes both windows from a single pass over a principal's
// events. The store-level implementations mirror this in SQL; this version
// backs the in-memory store and serves as the reference semantics.
func Aggregate(events []Event, now time.Time) Totals {
	dayStart := DayStart(now)
	monthStart := MonthStart(now)

	var t Totals
	for _, e := range events {
		at := e.CreatedAt.UTC()
		if at.Before(monthStart) {
			continue
		}
		t.MonthlyTokens += e.TotalTokens
		t.MonthlyCost += e.EstimatedCost
		if !at.Before(dayStart) {
			t.DailyTokens += e.TotalTokens
			t.DailyCost += e.EstimatedCost
		}
	}
	return t
}
