// Package decision provides the per-request allow/deny decision types.
// Decisions are derived, ephemeral values - recomputed every request.
package decision

import "github.com/gatewaylabs/creditmeter/domain/credit"

// Reason explains which resource pool governed a decision.
type Reason string

const (
	ReasonOwnAPIKey         Reason = "own_api_key"
	ReasonFreeModel         Reason = "free_model"
	ReasonSufficientCredits Reason = "sufficient_credits"
	ReasonDailyMessageCap   Reason = "daily_message_cap"
	ReasonUsageLimitEx      Reason = "usage_limit_exceeded"
)

// Decision is the outcome of evaluating an inbound chat request.
// Not persisted; callers map it onto a 200/402/429-style response.
type Decision struct {
	Allowed bool
	Reason  Reason

	// Exceeded lists which caps were blown when Reason is
	// ReasonUsageLimitEx (daily_tokens, monthly_tokens, ...).
	Exceeded []string

	// Remaining is the messages (or credits) left for display purposes.
	Remaining int64
}

// CreditCheck is the orchestrator's credit verdict (value type).
type CreditCheck struct {
	HasCredits  bool
	Credits     credit.Balance
	UsingOwnKey bool
	FreeModel   bool
}

// MessageLimit is the anonymous/no-credit gate verdict (value type).
type MessageLimit struct {
	Reached     bool
	Limit       int64
	Remaining   int64
	Credits     credit.Balance // zero value when the ledger was not consulted
	UsedCredits bool
}

// BlockNegative reports whether a balance must be turned into a hard
// rejection regardless of any other check. This is a PURE function.
func BlockNegative(b credit.Balance) bool {
	return b.Negative()
}
