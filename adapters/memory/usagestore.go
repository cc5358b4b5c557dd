package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gatewaylabs/creditmeter/domain/usage"
	"github.com/gatewaylabs/creditmeter/ports"
)

// UsageStore is an in-memory implementation of ports.UsageStore.
type UsageStore struct {
	mu     sync.RWMutex
	events []usage.Event
}

// NewUsageStore creates a new in-memory usage store.
func NewUsageStore() *UsageStore {
	return &UsageStore{events: make([]usage.Event, 0)}
}

// Record appends one usage event.
func (s *UsageStore) Record(ctx context.Context, e usage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Totals aggregates both windows in one pass over the principal's events.
func (s *UsageStore) Totals(ctx context.Context, userID string, dayStart, monthStart time.Time) (usage.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t usage.Totals
	for _, e := range s.events {
		if e.UserID != userID || e.CreatedAt.Before(monthStart) {
			continue
		}
		t.MonthlyTokens += e.TotalTokens
		t.MonthlyCost += e.EstimatedCost
		if !e.CreatedAt.Before(dayStart) {
			t.DailyTokens += e.TotalTokens
			t.DailyCost += e.EstimatedCost
		}
	}
	return t, nil
}

// Recent returns the principal's latest events, newest first.
func (s *UsageStore) Recent(ctx context.Context, userID string, limit int) ([]usage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []usage.Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].UserID == userID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

// All returns every event (for testing).
func (s *UsageStore) All() []usage.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]usage.Event{}, s.events...)
}

// Clear removes all events (for testing).
func (s *UsageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}

// Ensure interface compliance.
var _ ports.UsageStore = (*UsageStore)(nil)
