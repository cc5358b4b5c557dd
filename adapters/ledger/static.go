package ledger

import (
	"context"
	"sync"

	"github.com/gatewaylabs/creditmeter/domain/credit"
	"github.com/gatewaylabs/creditmeter/ports"
)

// Static is a fixed in-memory ledger for tests and local development.
// Principals not present have no ledger entry.
type Static struct {
	mu          sync.RWMutex
	byExternal  map[string]int64
	byCustomer  map[string]int64
	failWith    error
	lookupCount int
}

// NewStatic creates an empty static ledger.
func NewStatic() *Static {
	return &Static{
		byExternal: make(map[string]int64),
		byCustomer: make(map[string]int64),
	}
}

// SetExternal sets a balance keyed by internal user id.
func (l *Static) SetExternal(userID string, credits int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byExternal[userID] = credits
}

// SetCustomer sets a balance keyed by legacy customer id.
func (l *Static) SetCustomer(customerID string, credits int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byCustomer[customerID] = credits
}

// FailWith makes every lookup return err (for testing fail-open paths).
func (l *Static) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failWith = err
}

// Lookups returns how many lookups were performed (for testing).
func (l *Static) Lookups() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lookupCount
}

// RemainingByExternalID looks up the balance by internal user id.
func (l *Static) RemainingByExternalID(ctx context.Context, userID string) (credit.Balance, error) {
	return l.lookup(l.byExternal, userID)
}

// RemainingByCustomerID looks up the balance by legacy customer id.
func (l *Static) RemainingByCustomerID(ctx context.Context, customerID string) (credit.Balance, error) {
	return l.lookup(l.byCustomer, customerID)
}

func (l *Static) lookup(m map[string]int64, key string) (credit.Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lookupCount++
	if l.failWith != nil {
		return credit.None(), l.failWith
	}
	if n, ok := m[key]; ok {
		return credit.Of(n), nil
	}
	return credit.None(), nil
}

// Ensure interface compliance.
var _ ports.CreditLedger = (*Static)(nil)
