package sqlite

import (
	"context"
	"time"

	"github.com/gatewaylabs/creditmeter/domain/usage"
	"github.com/gatewaylabs/creditmeter/ports"
)

// UsageStore implements ports.UsageStore using SQLite.
type UsageStore struct {
	db *DB
}

// NewUsageStore creates a new SQLite usage store.
func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db}
}

// Record appends one usage event. Events are immutable once written.
func (s *UsageStore) Record(ctx context.Context, e usage.Event) error {
	// Store timestamp in UTC for consistent window querying
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_events (
			id, user_id, model_id, provider, input_tokens, output_tokens,
			total_tokens, estimated_cost, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.ModelID, e.Provider, e.InputTokens, e.OutputTokens,
		e.TotalTokens, e.EstimatedCost, e.CreatedAt.UTC())
	return err
}

// Totals returns both windows from a single aggregation pass. The scan is
// bounded by the month window; the daily sums are conditional so no second
// query is needed. Principals with no events get zeros.
func (s *UsageStore) Totals(ctx context.Context, userID string, dayStart, monthStart time.Time) (usage.Totals, error) {
	dayStr := dayStart.UTC().Format("2006-01-02 15:04:05")
	monthStr := monthStart.UTC().Format("2006-01-02 15:04:05")

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN datetime(created_at) >= datetime(?) THEN total_tokens ELSE 0 END), 0) AS daily_tokens,
			COALESCE(SUM(total_tokens), 0) AS monthly_tokens,
			COALESCE(SUM(CASE WHEN datetime(created_at) >= datetime(?) THEN estimated_cost ELSE 0 END), 0) AS daily_cost,
			COALESCE(SUM(estimated_cost), 0) AS monthly_cost
		FROM usage_events
		WHERE user_id = ? AND datetime(created_at) >= datetime(?)
	`, dayStr, dayStr, userID, monthStr)

	var t usage.Totals
	err := row.Scan(&t.DailyTokens, &t.MonthlyTokens, &t.DailyCost, &t.MonthlyCost)
	if err != nil {
		return usage.Totals{}, err
	}
	return t, nil
}

// Recent returns the principal's latest events, newest first.
func (s *UsageStore) Recent(ctx context.Context, userID string, limit int) ([]usage.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, model_id, provider, input_tokens, output_tokens,
		       total_tokens, estimated_cost, created_at
		FROM usage_events
		WHERE user_id = ?
		ORDER BY datetime(created_at) DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []usage.Event
	for rows.Next() {
		var e usage.Event
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ModelID, &e.Provider, &e.InputTokens,
			&e.OutputTokens, &e.TotalTokens, &e.EstimatedCost, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// Ensure interface compliance.
var _ ports.UsageStore = (*UsageStore)(nil)
