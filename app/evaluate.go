package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gatewaylabs/creditmeter/adapters/memory"
	"github.com/gatewaylabs/creditmeter/adapters/metrics"
	"github.com/gatewaylabs/creditmeter/domain/decision"
	"github.com/gatewaylabs/creditmeter/domain/model"
	"github.com/gatewaylabs/creditmeter/domain/usage"
	"github.com/gatewaylabs/creditmeter/ports"
)

// Request is one inbound chat request to evaluate.
type Request struct {
	UserID    string
	Anonymous bool
	ModelID   string

	// APIKeys maps provider name to the principal's own key, if supplied.
	APIKeys map[string]string

	// EstimatedTokens is the estimated input size of the request,
	// advisory only (see ports.TokenEstimator).
	EstimatedTokens int64
}

// MeterDeps contains dependencies for Meter.
type MeterDeps struct {
	Credits     *CreditService
	Messages    *MessageLimitService
	UsageLimits *UsageLimitsService
	Usage       ports.UsageStore
	Ledger      ports.CreditLedger
	Catalog     ports.ModelCatalog
	Clock       ports.Clock
	Logger      zerolog.Logger
	Metrics     *metrics.Collector // optional
}

// Meter is the engine's entry point: one Evaluate per inbound chat request
// and one RecordUsage per completed model call.
type Meter struct {
	credits     *CreditService
	messages    *MessageLimitService
	usageLimits *UsageLimitsService
	usage       ports.UsageStore
	ledger      ports.CreditLedger
	catalog     ports.ModelCatalog
	clock       ports.Clock
	logger      zerolog.Logger
	metrics     *metrics.Collector
}

// NewMeter creates the orchestrator.
func NewMeter(deps MeterDeps) *Meter {
	return &Meter{
		credits:     deps.Credits,
		messages:    deps.Messages,
		usageLimits: deps.UsageLimits,
		usage:       deps.Usage,
		ledger:      deps.Ledger,
		catalog:     deps.Catalog,
		clock:       deps.Clock,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// Evaluate decides whether the request may proceed and which resource pool
// governed the decision. Total function: every internal failure degrades
// toward "allowed" (availability over strict enforcement); the only denials
// are the three user-visible ones - negative or insufficient credits, usage
// limits exceeded, daily message cap reached.
//
// Decision.Reason always names the governing pool, for allows and denials
// alike: an allow with ReasonDailyMessageCap means "within the daily
// allowance", a denial with ReasonSufficientCredits means the credit pool
// rejected the request.
func (m *Meter) Evaluate(ctx context.Context, req Request) decision.Decision {
	start := m.clock.Now()

	// One request-scoped cache so every internal call site shares a single
	// ledger and catalog resolution per key.
	cache := memory.NewRequestCache(m.ledger, m.catalog)

	info := m.modelInfo(ctx, cache, req.ModelID)

	check := m.credits.Check(ctx, CreditRequest{
		UserID:  req.UserID,
		Model:   info,
		APIKeys: req.APIKeys,
		Ledger:  cache,
	})

	d := m.decide(ctx, req, cache, check)

	if m.metrics != nil {
		m.metrics.DecisionsTotal.WithLabelValues(
			fmt.Sprintf("%t", d.Allowed), string(d.Reason)).Inc()
		m.metrics.EvaluateDuration.Observe(m.clock.Now().Sub(start).Seconds())
	}
	m.logger.Debug().
		Str("user_id", req.UserID).
		Str("model", req.ModelID).
		Bool("allowed", d.Allowed).
		Str("reason", string(d.Reason)).
		Int64("estimated_tokens", req.EstimatedTokens).
		Msg("request evaluated")
	return d
}

func (m *Meter) decide(ctx context.Context, req Request, cache *memory.RequestCache, check decision.CreditCheck) decision.Decision {
	// Own provider key: billing is the principal's own business.
	if check.UsingOwnKey {
		return decision.Decision{Allowed: true, Reason: decision.ReasonOwnAPIKey}
	}

	ml := m.messages.Check(ctx, req.UserID, req.Anonymous, cache)

	// A negative balance is a hard block regardless of anything else.
	if m.credits.ShouldBlockNegative(check.Credits) || m.credits.ShouldBlockNegative(ml.Credits) {
		return decision.Decision{Allowed: false, Reason: decision.ReasonSufficientCredits}
	}

	// Daily/monthly token and cost caps.
	snap := m.usageLimits.Snapshot(ctx, req.UserID)
	if snap.OverLimit {
		return decision.Decision{
			Allowed:  false,
			Reason:   decision.ReasonUsageLimitEx,
			Exceeded: snap.Exceeded,
		}
	}

	// Free models skip the credit comparison but not the message cap.
	if check.FreeModel {
		if ml.Reached {
			return decision.Decision{Allowed: false, Reason: decision.ReasonDailyMessageCap}
		}
		return decision.Decision{
			Allowed:   true,
			Reason:    decision.ReasonFreeModel,
			Remaining: ml.Remaining,
		}
	}

	// A known balance that covers the model's cost wins.
	if check.HasCredits && check.Credits.Found {
		return decision.Decision{
			Allowed:   true,
			Reason:    decision.ReasonSufficientCredits,
			Remaining: check.Credits.Credits,
		}
	}

	// A known positive balance that does not cover this model's cost is a
	// credit rejection, not a message-cap one.
	if ml.UsedCredits && !check.HasCredits {
		return decision.Decision{Allowed: false, Reason: decision.ReasonSufficientCredits}
	}

	// Daily message allowance governs everyone left (including the
	// fail-open path of a broken ledger).
	if ml.Reached {
		return decision.Decision{Allowed: false, Reason: decision.ReasonDailyMessageCap}
	}
	return decision.Decision{
		Allowed:   true,
		Reason:    decision.ReasonDailyMessageCap,
		Remaining: ml.Remaining,
	}
}

// RecordUsage appends a completed model call and drops the writer's cached
// snapshot so the next check sees it. This is the two-step write path every
// successful model call must perform.
func (m *Meter) RecordUsage(ctx context.Context, e usage.Event) error {
	if err := m.usage.Record(ctx, e); err != nil {
		if m.metrics != nil {
			m.metrics.StoreErrors.WithLabelValues("usage").Inc()
		}
		return fmt.Errorf("record usage: %w", err)
	}

	m.usageLimits.InvalidateUser(e.UserID)
	if m.metrics != nil {
		m.metrics.UsageRecorded.Inc()
	}
	return nil
}

// Snapshot exposes the usage/limits snapshot for read surfaces.
func (m *Meter) Snapshot(ctx context.Context, userID string) Snapshot {
	return m.usageLimits.Snapshot(ctx, userID)
}

// modelInfo resolves model metadata through the request cache. Unknown
// models degrade to metadata-free info, which the calculator maps to the
// cheapest tier.
func (m *Meter) modelInfo(ctx context.Context, cache *memory.RequestCache, modelID string) model.Info {
	info, err := cache.Get(ctx, modelID)
	if err != nil {
		m.logger.Warn().Err(err).Str("model", modelID).
			Msg("model metadata lookup failed, using defaults")
		return model.Info{ID: modelID}
	}
	return info
}
