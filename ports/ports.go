// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/gatewaylabs/creditmeter/domain/credit"
	"github.com/gatewaylabs/creditmeter/domain/limits"
	"github.com/gatewaylabs/creditmeter/domain/model"
	"github.com/gatewaylabs/creditmeter/domain/usage"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// CreditLedger reads a principal's remaining prepaid credits from the
// external billing provider. A Balance with Found=false means "no ledger
// entry exists", which is distinct from a zero balance.
type CreditLedger interface {
	// RemainingByExternalID looks up the balance by our internal user id.
	// This path is authoritative and is always tried first.
	RemainingByExternalID(ctx context.Context, userID string) (credit.Balance, error)

	// RemainingByCustomerID looks up the balance by the legacy billing
	// provider customer id.
	RemainingByCustomerID(ctx context.Context, customerID string) (credit.Balance, error)
}

// ModelCatalog resolves model metadata (pricing, premium flag) by model id.
type ModelCatalog interface {
	Get(ctx context.Context, modelID string) (model.Info, error)
}

// TokenEstimator estimates the token count of raw prompt text, used to
// build the estimated usage attached to an evaluation request.
type TokenEstimator interface {
	Estimate(modelID, text string) int
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// UsageStore persists append-only usage events and answers the two-window
// aggregation in a single round trip.
type UsageStore interface {
	// Record appends one completed model call.
	Record(ctx context.Context, e usage.Event) error

	// Totals returns the principal's consumption since dayStart and
	// monthStart, computed in one aggregation pass. Principals with no
	// events get zeros, not an error.
	Totals(ctx context.Context, userID string, dayStart, monthStart time.Time) (usage.Totals, error)

	// Recent returns the principal's latest events, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]usage.Event, error)
}

// LimitStore reads and writes usage-limit configuration rows.
type LimitStore interface {
	// GetForUser returns the active user-scoped row, if any.
	GetForUser(ctx context.Context, userID string) (limits.Limit, bool, error)

	// GetGlobal returns the active global (scope-less) row, if any.
	GetGlobal(ctx context.Context) (limits.Limit, bool, error)

	// Upsert stores a row, deactivating any previously active row for the
	// same scope so that at most one active row exists per scope tuple.
	Upsert(ctx context.Context, l limits.Limit) error

	// Deactivate marks a row inactive. Rows are never deleted.
	Deactivate(ctx context.Context, id string) error
}

// User is the slice of the user record this engine needs.
type User struct {
	ID              string
	CustomerID      string // legacy billing provider customer id, "" if none
	MessageLimit    int64  // per-user daily message override
	MessageLimitSet bool   // false = no override, use the built-in default
}

// UserStore reads user records.
type UserStore interface {
	Get(ctx context.Context, id string) (User, error)
}

// ChatStore answers the daily message-count questions for the message cap.
type ChatStore interface {
	// ChatIDsCreatedSince returns ids of chats the principal created at or
	// after since.
	ChatIDsCreatedSince(ctx context.Context, userID string, since time.Time) ([]string, error)

	// CountUserMessages counts user-role messages in the given chats
	// created at or after since.
	CountUserMessages(ctx context.Context, chatIDs []string, since time.Time) (int64, error)

	// CountUserMessagesByOwner is the join-based equivalent of the
	// two-step count above. It must produce the identical number; it backs
	// the optimized path as a correctness safety net.
	CountUserMessagesByOwner(ctx context.Context, userID string, since time.Time) (int64, error)
}
