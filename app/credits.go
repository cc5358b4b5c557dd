package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gatewaylabs/creditmeter/adapters/metrics"
	"github.com/gatewaylabs/creditmeter/domain/credit"
	"github.com/gatewaylabs/creditmeter/domain/decision"
	"github.com/gatewaylabs/creditmeter/domain/model"
	"github.com/gatewaylabs/creditmeter/ports"
)

// CreditRequest is the input to a credit check.
type CreditRequest struct {
	UserID string
	Model  model.Info

	// APIKeys maps provider name to the principal's own API key for that
	// provider, when supplied.
	APIKeys map[string]string

	// Ledger is the request-scoped cache wrapping the credit ledger; nil
	// falls back to the service's own ledger.
	Ledger ports.CreditLedger
}

// creditStrategy is one step of the ordered credit-check chain. ok=false
// means "defer to the next strategy".
type creditStrategy interface {
	name() string
	check(ctx context.Context, s *CreditService, req CreditRequest) (decision.CreditCheck, bool)
}

// CreditServiceDeps contains dependencies for CreditService.
type CreditServiceDeps struct {
	Ledger  ports.CreditLedger
	Users   ports.UserStore
	Logger  zerolog.Logger
	Metrics *metrics.Collector // optional
}

// CreditService decides whether a principal's credits cover a message.
// Checks run as an ordered strategy chain - own API key, free model,
// ledger balance - and the first definitive verdict wins. Ledger failures
// fail open: a metering outage must never be a user-facing outage.
type CreditService struct {
	ledger  ports.CreditLedger
	users   ports.UserStore
	logger  zerolog.Logger
	metrics *metrics.Collector

	chain []creditStrategy
}

// NewCreditService creates the service with the default strategy chain.
func NewCreditService(deps CreditServiceDeps) *CreditService {
	return &CreditService{
		ledger:  deps.Ledger,
		users:   deps.Users,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		chain: []creditStrategy{
			ownKeyStrategy{},
			freeModelStrategy{},
			balanceStrategy{},
		},
	}
}

// Check runs the strategy chain. Total function: always returns a verdict.
func (s *CreditService) Check(ctx context.Context, req CreditRequest) decision.CreditCheck {
	for _, strat := range s.chain {
		if verdict, ok := strat.check(ctx, s, req); ok {
			s.logger.Debug().
				Str("strategy", strat.name()).
				Str("user_id", req.UserID).
				Str("model", req.Model.ID).
				Bool("has_credits", verdict.HasCredits).
				Msg("credit check decided")
			return verdict
		}
	}
	// The balance strategy is terminal, so the chain cannot fall through;
	// keep a safe verdict anyway.
	return decision.CreditCheck{HasCredits: true}
}

// ShouldBlockNegative reports whether the balance must become a hard
// payment-required rejection even when other checks would pass.
func (s *CreditService) ShouldBlockNegative(b credit.Balance) bool {
	return decision.BlockNegative(b)
}

// balance resolves the principal's balance: external id first, then the
// legacy customer id from the user record.
func (s *CreditService) balance(ctx context.Context, req CreditRequest) (credit.Balance, error) {
	ledger := req.Ledger
	if ledger == nil {
		ledger = s.ledger
	}

	b, err := ledger.RemainingByExternalID(ctx, req.UserID)
	if err != nil {
		return credit.None(), err
	}
	if b.Found {
		return b, nil
	}

	u, err := s.users.Get(ctx, req.UserID)
	if err != nil || u.CustomerID == "" {
		return credit.None(), nil
	}
	return ledger.RemainingByCustomerID(ctx, u.CustomerID)
}

// ownKeyStrategy: a principal using their own provider key pays their own
// bill; no further checks run.
type ownKeyStrategy struct{}

func (ownKeyStrategy) name() string { return "own_api_key" }

func (ownKeyStrategy) check(ctx context.Context, s *CreditService, req CreditRequest) (decision.CreditCheck, bool) {
	if req.APIKeys[req.Model.Provider] == "" {
		return decision.CreditCheck{}, false
	}
	return decision.CreditCheck{HasCredits: true, UsingOwnKey: true}, true
}

// freeModelStrategy: free-tier models skip the credit check but are NOT
// forced through - the daily message cap still applies to them, so the
// verdict only flags the model as free.
type freeModelStrategy struct{}

func (freeModelStrategy) name() string { return "free_model" }

func (freeModelStrategy) check(ctx context.Context, s *CreditService, req CreditRequest) (decision.CreditCheck, bool) {
	if !req.Model.Free() {
		return decision.CreditCheck{}, false
	}
	return decision.CreditCheck{FreeModel: true}, true
}

// balanceStrategy: compare the ledger balance against the model's credit
// cost. Terminal - always returns a verdict, failing open on ledger
// errors.
type balanceStrategy struct{}

func (balanceStrategy) name() string { return "balance" }

func (balanceStrategy) check(ctx context.Context, s *CreditService, req CreditRequest) (decision.CreditCheck, bool) {
	b, err := s.balance(ctx, req)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", req.UserID).
			Msg("credit check failed, failing open")
		if s.metrics != nil {
			s.metrics.LedgerErrors.Inc()
		}
		return decision.CreditCheck{HasCredits: true}, true
	}

	return decision.CreditCheck{
		HasCredits: b.Covers(req.Model.CreditCost()),
		Credits:    b,
	}, true
}
