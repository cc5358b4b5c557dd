// Package limits provides usage-limit configuration and pure enforcement
// math. All functions are deterministic with no side effects.
package limits

import (
	"time"

	"github.com/gatewaylabs/creditmeter/domain/usage"
)

// Names of the individual caps, reported when a cap is exceeded.
const (
	ExceededDailyTokens   = "daily_tokens"
	ExceededMonthlyTokens = "monthly_tokens"
	ExceededDailyCost     = "daily_cost"
	ExceededMonthlyCost   = "monthly_cost"
)

// Limit is a usage-limit configuration row (value type).
//
// Scope is exactly one of: UserID set (user scope), ModelID+Provider set
// (model scope), or neither (the global default row). At most one active
// row exists per scope tuple.
type Limit struct {
	ID       string
	UserID   string
	ModelID  string
	Provider string

	DailyTokens   int64
	MonthlyTokens int64
	DailyCost     float64
	MonthlyCost   float64

	RequestsPerMinute int // advisory; not enforced by this engine
	Currency          string

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Default returns the built-in limit used when no configured row applies.
func Default() Limit {
	return Limit{
		DailyTokens:       50_000,
		MonthlyTokens:     1_000_000,
		DailyCost:         10,
		MonthlyCost:       100,
		RequestsPerMinute: 60,
		Currency:          "USD",
		Active:            true,
	}
}

// IsUserScoped reports whether the row applies to a single user.
func (l Limit) IsUserScoped() bool {
	return l.UserID != ""
}

// IsModelScoped reports whether the row applies to a model/provider pair.
func (l Limit) IsModelScoped() bool {
	return l.ModelID != "" && l.Provider != ""
}

// IsGlobal reports whether the row is the global default row.
func (l Limit) IsGlobal() bool {
	return !l.IsUserScoped() && !l.IsModelScoped()
}

// Exceeded returns the caps that usage strictly exceeds (> not >=),
// in a fixed order. Empty result means the principal is within limits.
func Exceeded(t usage.Totals, l Limit) []string {
	var out []string
	if t.DailyTokens > l.DailyTokens {
		out = append(out, ExceededDailyTokens)
	}
	if t.MonthlyTokens > l.MonthlyTokens {
		out = append(out, ExceededMonthlyTokens)
	}
	if t.DailyCost > l.DailyCost {
		out = append(out, ExceededDailyCost)
	}
	if t.MonthlyCost > l.MonthlyCost {
		out = append(out, ExceededMonthlyCost)
	}
	return out
}
