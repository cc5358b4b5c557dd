package memory

import (
	"context"
	"sync"

	"github.com/gatewaylabs/creditmeter/domain/credit"
	"github.com/gatewaylabs/creditmeter/domain/model"
	"github.com/gatewaylabs/creditmeter/ports"
)

// RequestCache memoizes external lookups for the lifetime of one inbound
// request: credit balances by external id and by legacy customer id, and
// model metadata by model id. Each distinct key hits the upstream source
// at most once per request, errors included. Constructed at request start,
// discarded at request end; never shared across requests, so there is no
// TTL and no invalidation.
//
// It implements ports.CreditLedger and ports.ModelCatalog so services can
// take it wherever they would take the real collaborators.
type RequestCache struct {
	ledger  ports.CreditLedger
	catalog ports.ModelCatalog

	mu         sync.Mutex
	byExternal map[string]balanceResult
	byCustomer map[string]balanceResult
	models     map[string]modelResult
}

type balanceResult struct {
	balance credit.Balance
	err     error
}

type modelResult struct {
	info model.Info
	err  error
}

// NewRequestCache creates a cache wrapping the given collaborators.
func NewRequestCache(ledger ports.CreditLedger, catalog ports.ModelCatalog) *RequestCache {
	return &RequestCache{
		ledger:     ledger,
		catalog:    catalog,
		byExternal: make(map[string]balanceResult),
		byCustomer: make(map[string]balanceResult),
		models:     make(map[string]modelResult),
	}
}

// RemainingByExternalID resolves a balance by internal user id, at most
// once per request.
func (c *RequestCache) RemainingByExternalID(ctx context.Context, userID string) (credit.Balance, error) {
	c.mu.Lock()
	if r, ok := c.byExternal[userID]; ok {
		c.mu.Unlock()
		return r.balance, r.err
	}
	c.mu.Unlock()

	b, err := c.ledger.RemainingByExternalID(ctx, userID)

	c.mu.Lock()
	c.byExternal[userID] = balanceResult{balance: b, err: err}
	c.mu.Unlock()
	return b, err
}

// RemainingByCustomerID resolves a balance by legacy customer id, at most
// once per request.
func (c *RequestCache) RemainingByCustomerID(ctx context.Context, customerID string) (credit.Balance, error) {
	c.mu.Lock()
	if r, ok := c.byCustomer[customerID]; ok {
		c.mu.Unlock()
		return r.balance, r.err
	}
	c.mu.Unlock()

	b, err := c.ledger.RemainingByCustomerID(ctx, customerID)

	c.mu.Lock()
	c.byCustomer[customerID] = balanceResult{balance: b, err: err}
	c.mu.Unlock()
	return b, err
}

// Get resolves model metadata, at most once per request.
func (c *RequestCache) Get(ctx context.Context, modelID string) (model.Info, error) {
	c.mu.Lock()
	if r, ok := c.models[modelID]; ok {
		c.mu.Unlock()
		return r.info, r.err
	}
	c.mu.Unlock()

	info, err := c.catalog.Get(ctx, modelID)

	c.mu.Lock()
	c.models[modelID] = modelResult{info: info, err: err}
	c.mu.Unlock()
	return info, err
}

// Ensure interface compliance.
var (
	_ ports.CreditLedger = (*RequestCache)(nil)
	_ ports.ModelCatalog = (*RequestCache)(nil)
)
