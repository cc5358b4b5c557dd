package limits_test

import (
	"reflect"
	"testing"

	"github.com/gatewaylabs/creditmeter/domain/limits"
	"github.com/gatewaylabs/creditmeter/domain/usage"
)

func TestDefault(t *testing.T) {
	d := limits.Default()

	if d.DailyTokens != 50_000 {
		t.Errorf("DailyTokens = %d, want 50000", d.DailyTokens)
	}
	if d.MonthlyTokens != 1_000_000 {
		t.Errorf("MonthlyTokens = %d, want 1000000", d.MonthlyTokens)
	}
	if d.DailyCost != 10 {
		t.Errorf("DailyCost = %v, want 10", d.DailyCost)
	}
	if d.MonthlyCost != 100 {
		t.Errorf("MonthlyCost = %v, want 100", d.MonthlyCost)
	}
	if d.RequestsPerMinute != 60 {
		t.Errorf("RequestsPerMinute = %d, want 60", d.RequestsPerMinute)
	}
	if d.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", d.Currency)
	}
	if !d.IsGlobal() {
		t.Error("Default() must be global-scoped")
	}
}

func TestScopePredicates(t *testing.T) {
	user := limits.Limit{UserID: "u1"}
	if !user.IsUserScoped() || user.IsGlobal() || user.IsModelScoped() {
		t.Error("user row scope predicates wrong")
	}

	mdl := limits.Limit{ModelID: "m1", Provider: "openai"}
	if !mdl.IsModelScoped() || mdl.IsGlobal() || mdl.IsUserScoped() {
		t.Error("model row scope predicates wrong")
	}

	// A model id without a provider is not a valid model scope.
	half := limits.Limit{ModelID: "m1"}
	if half.IsModelScoped() {
		t.Error("model scope requires both model id and provider")
	}

	global := limits.Limit{}
	if !global.IsGlobal() {
		t.Error("empty scope must be global")
	}
}

func TestExceeded_StrictlyGreater(t *testing.T) {
	l := limits.Default()

	// Exactly at the cap is within limits.
	at := usage.Totals{
		DailyTokens:   50_000,
		MonthlyTokens: 1_000_000,
		DailyCost:     10,
		MonthlyCost:   100,
	}
	if got := limits.Exceeded(at, l); len(got) != 0 {
		t.Errorf("Exceeded(at cap) = %v, want empty", got)
	}

	over := usage.Totals{DailyTokens: 50_001}
	if got := limits.Exceeded(over, l); !reflect.DeepEqual(got, []string{limits.ExceededDailyTokens}) {
		t.Errorf("Exceeded(50001 daily) = %v, want [daily_tokens]", got)
	}
}

func TestExceeded_AllCapsInOrder(t *testing.T) {
	l := limits.Default()
	over := usage.Totals{
		DailyTokens:   52_000,
		MonthlyTokens: 1_200_000,
		DailyCost:     11,
		MonthlyCost:   150,
	}

	want := []string{
		limits.ExceededDailyTokens,
		limits.ExceededMonthlyTokens,
		limits.ExceededDailyCost,
		limits.ExceededMonthlyCost,
	}
	if got := limits.Exceeded(over, l); !reflect.DeepEqual(got, want) {
		t.Errorf("Exceeded = %v, want %v", got, want)
	}
}

func TestExceeded_ZeroUsageNeverExceeds(t *testing.T) {
	if got := limits.Exceeded(usage.Totals{}, limits.Default()); len(got) != 0 {
		t.Errorf("Exceeded(zero usage) = %v, want empty", got)
	}
}
