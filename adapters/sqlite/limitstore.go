package sqlite

import (
	"context"
	"database/sql"

	"github.com/gatewaylabs/creditmeter/domain/limits"
	"github.com/gatewaylabs/creditmeter/ports"
)

// LimitStore implements ports.LimitStore using SQLite.
type LimitStore struct {
	db *DB
}

// NewLimitStore creates a new SQLite limit store.
func NewLimitStore(db *DB) *LimitStore {
	return &LimitStore{db: db}
}

const limitColumns = `id, COALESCE(user_id, ''), COALESCE(model_id, ''), COALESCE(provider, ''),
	daily_tokens, monthly_tokens, daily_cost, monthly_cost,
	requests_per_minute, currency, is_active, created_at, updated_at`

// GetForUser returns the active user-scoped row, if any.
func (s *LimitStore) GetForUser(ctx context.Context, userID string) (limits.Limit, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+limitColumns+`
		FROM usage_limits
		WHERE user_id = ? AND is_active = 1
		LIMIT 1
	`, userID)
	return scanLimit(row)
}

// GetGlobal returns the active global (scope-less) row, if any.
func (s *LimitStore) GetGlobal(ctx context.Context) (limits.Limit, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+limitColumns+`
		FROM usage_limits
		WHERE user_id IS NULL AND model_id IS NULL AND is_active = 1
		LIMIT 1
	`)
	return scanLimit(row)
}

// Upsert stores a row, deactivating any previously active row for the same
// scope inside one transaction so the one-active-row invariant holds.
func (s *LimitStore) Upsert(ctx context.Context, l limits.Limit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if l.Active {
		_, err = tx.ExecContext(ctx, `
			UPDATE usage_limits SET is_active = 0, updated_at = ?
			WHERE is_active = 1 AND id != ?
			  AND COALESCE(user_id, '') = ? AND COALESCE(model_id, '') = ? AND COALESCE(provider, '') = ?
		`, l.UpdatedAt.UTC(), l.ID, l.UserID, l.ModelID, l.Provider)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO usage_limits (
			id, user_id, model_id, provider, daily_tokens, monthly_tokens,
			daily_cost, monthly_cost, requests_per_minute, currency,
			is_active, created_at, updated_at
		) VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			daily_tokens = excluded.daily_tokens,
			monthly_tokens = excluded.monthly_tokens,
			daily_cost = excluded.daily_cost,
			monthly_cost = excluded.monthly_cost,
			requests_per_minute = excluded.requests_per_minute,
			currency = excluded.currency,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`, l.ID, l.UserID, l.ModelID, l.Provider, l.DailyTokens, l.MonthlyTokens,
		l.DailyCost, l.MonthlyCost, l.RequestsPerMinute, l.Currency,
		boolToInt(l.Active), l.CreatedAt.UTC(), l.UpdatedAt.UTC())
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Deactivate marks a row inactive. Rows are never deleted.
func (s *LimitStore) Deactivate(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE usage_limits SET is_active = 0 WHERE id = ?
	`, id)
	return err
}

func scanLimit(row *sql.Row) (limits.Limit, bool, error) {
	var l limits.Limit
	var active int
	err := row.Scan(
		&l.ID, &l.UserID, &l.ModelID, &l.Provider,
		&l.DailyTokens, &l.MonthlyTokens, &l.DailyCost, &l.MonthlyCost,
		&l.RequestsPerMinute, &l.Currency, &active, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return limits.Limit{}, false, nil
	}
	if err != nil {
		return limits.Limit{}, false, err
	}
	l.Active = active != 0
	return l, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure interface compliance.
var _ ports.LimitStore = (*LimitStore)(nil)
