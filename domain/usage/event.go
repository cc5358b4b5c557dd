// Package usage provides usage event types, time-window math and
// aggregation. All functions are pure - no side effects.
package usage

import "time"

// Event is one completed model call (immutable, append-only fact).
type Event struct {
	ID            string
	UserID        string
	ModelID       string
	Provider      string
	InputTokens   int64
	OutputTokens  int64
	TotalTokens   int64 // always InputTokens + OutputTokens
	EstimatedCost float64
	CreatedAt     time.Time
}

// NewEvent builds an event, enforcing the TotalTokens invariant.
func NewEvent(id, userID, modelID, provider string, inputTokens, outputTokens int64, estimatedCost float64, at time.Time) Event {
	return Event{
		ID:            id,
		UserID:        userID,
		ModelID:       modelID,
		Provider:      provider,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		TotalTokens:   inputTokens + outputTokens,
		EstimatedCost: estimatedCost,
		CreatedAt:     at.UTC(),
	}
}

// Totals is a principal's consumption over the rolling daily and
// calendar-month windows (value type).
type Totals struct {
	DailyTokens   int64
	MonthlyTokens int64
	DailyCost     float64
	MonthlyCost   float64
}
