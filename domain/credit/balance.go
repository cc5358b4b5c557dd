package credit

// Balance is a principal's remaining prepaid credits as reported by the
// external ledger (value type).
//
// Found=false means the ledger has no entry for the principal at all, which
// is a different state from a numeric zero. Negative amounts are valid and
// mean the principal is in debt.
type Balance struct {
	Credits int64
	Found   bool
}

// None returns the "no ledger entry" balance.
func None() Balance {
	return Balance{}
}

// Of returns a known balance.
func Of(n int64) Balance {
	return Balance{Credits: n, Found: true}
}

// Negative reports whether the principal is in debt.
func (b Balance) Negative() bool {
	return b.Found && b.Credits < 0
}

// Positive reports whether the principal holds usable credits.
func (b Balance) Positive() bool {
	return b.Found && b.Credits > 0
}

// Covers reports whether the balance covers a per-message credit cost.
func (b Balance) Covers(cost int) bool {
	return b.Found && b.Credits >= int64(cost)
}
