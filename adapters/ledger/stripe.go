// Package ledger provides CreditLedger adapters for the external billing
// provider.
package ledger

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"

	"github.com/gatewaylabs/creditmeter/domain/credit"
	"github.com/gatewaylabs/creditmeter/ports"
)

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	SecretKey string
}

// StripeLedger reads remaining prepaid credits from Stripe.
//
// Credits map onto the Stripe customer balance: Stripe stores customer
// credit as a negative balance, so remaining credits = -Balance. A positive
// Stripe balance is money owed, which surfaces here as negative credits
// ("in debt"). Customers are located either directly by customer id or by
// the external_id metadata key our provisioning writes at creation time.
type StripeLedger struct {
	config StripeConfig
}

// NewStripeLedger creates a new Stripe-backed credit ledger.
func NewStripeLedger(config StripeConfig) *StripeLedger {
	stripe.Key = config.SecretKey
	return &StripeLedger{config: config}
}

// RemainingByExternalID looks up the balance by our internal user id via
// customer metadata search.
func (l *StripeLedger) RemainingByExternalID(ctx context.Context, userID string) (credit.Balance, error) {
	params := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   fmt.Sprintf("metadata['external_id']:'%s'", userID),
			Context: ctx,
		},
	}

	iter := customer.Search(params)
	if iter.Next() {
		return balanceOf(iter.Customer()), nil
	}
	if err := iter.Err(); err != nil {
		return credit.None(), fmt.Errorf("search customer by external id: %w", err)
	}

	// No customer carries this external id: no ledger entry.
	return credit.None(), nil
}

// RemainingByCustomerID looks up the balance by the legacy Stripe customer
// id.
func (l *StripeLedger) RemainingByCustomerID(ctx context.Context, customerID string) (credit.Balance, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := customer.Get(customerID, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return credit.None(), nil
		}
		return credit.None(), fmt.Errorf("get customer: %w", err)
	}
	return balanceOf(c), nil
}

func balanceOf(c *stripe.Customer) credit.Balance {
	if c == nil || c.Deleted {
		return credit.None()
	}
	return credit.Of(-c.Balance)
}

// Ensure interface compliance.
var _ ports.CreditLedger = (*StripeLedger)(nil)
