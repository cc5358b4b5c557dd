package model_test

import (
	"testing"

	"github.com/gatewaylabs/creditmeter/domain/credit"
	"github.com/gatewaylabs/creditmeter/domain/model"
)

func TestFree(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"meta-llama/llama-3-8b:free", true},
		{"gpt-4o", false},
		{"freemodel", false},
		{":free", true},
		{"", false},
	}

	for _, tt := range tests {
		if got := (model.Info{ID: tt.id}).Free(); got != tt.want {
			t.Errorf("Free(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestCreditCost(t *testing.T) {
	frontier := model.Info{
		ID:             "frontier-large",
		Premium:        true,
		InputPerToken:  120.0 / 1e6,
		OutputPerToken: 40.0 / 1e6,
	}
	if got := frontier.CreditCost(); got != credit.TierTop {
		t.Errorf("CreditCost(frontier) = %d, want %d", got, credit.TierTop)
	}

	// Unknown model metadata degrades to the cheapest tier.
	unknown := model.Info{ID: "mystery"}
	if got := unknown.CreditCost(); got != credit.TierBase {
		t.Errorf("CreditCost(unknown) = %d, want %d", got, credit.TierBase)
	}
}
