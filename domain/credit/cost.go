// Package credit provides pure functions for credit cost tiers and
// balance semantics. All functions are deterministic with no side effects.
package credit

// Tier values are credits charged per message for a model.
const (
	TierBase = 1  // non-premium and cheap premium models
	TierLow  = 2  // moderately priced premium models
	TierMid  = 5  // expensive premium models
	TierHigh = 15 // very expensive premium models
	TierTop  = 30 // frontier-priced premium models
)

// Pricing describes a model's per-token prices in USD.
// Missing prices are represented as zero.
type Pricing struct {
	Premium        bool
	InputPerToken  float64
	OutputPerToken float64
}

// InputPerMillion returns the input price per million tokens.
func (p Pricing) InputPerMillion() float64 {
	return p.InputPerToken * 1e6
}

// OutputPerMillion returns the output price per million tokens.
func (p Pricing) OutputPerMillion() float64 {
	return p.OutputPerToken * 1e6
}

// Cost maps a model's pricing to its credit cost per message.
// Non-premium models always cost TierBase. For premium models the tier is
// driven by max(input price, 0.5 * output price) per million tokens; output
// is weighted down because output volume carries less of the bill.
// This is a PURE, total function: missing pricing lands in the cheapest
// tier consistent with the premium flag.
func Cost(p Pricing) int {
	if !p.Premium {
		return TierBase
	}

	in := p.InputPerMillion()
	out := p.OutputPerMillion()

	maxPrice := in
	if half := out / 2; half > maxPrice {
		maxPrice = half
	}

	switch {
	case maxPrice >= 100:
		return TierTop
	case maxPrice >= 50:
		return TierHigh
	case maxPrice >= 15:
		return TierMid
	}

	if in >= 3 || out >= 5 {
		return TierLow
	}
	return TierBase
}
