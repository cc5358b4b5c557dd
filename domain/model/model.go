// Package model provides model metadata value types.
package model

import (
	"strings"

	"github.com/gatewaylabs/creditmeter/domain/credit"
)

// FreeSuffix marks free-tier model ids (e.g. "meta-llama/llama-3-8b:free").
const FreeSuffix = ":free"

// Info is a model's metadata as reported by the catalog (value type).
type Info struct {
	ID             string
	Provider       string
	Premium        bool
	InputPerToken  float64 // USD per input token; 0 when unknown
	OutputPerToken float64 // USD per output token; 0 when unknown
}

// Free reports whether the model id carries the free-tier marker.
// Free models skip the credit check but remain subject to the daily
// message cap.
func (i Info) Free() bool {
	return strings.HasSuffix(i.ID, FreeSuffix)
}

// Pricing converts the metadata into the calculator's input.
func (i Info) Pricing() credit.Pricing {
	return credit.Pricing{
		Premium:        i.Premium,
		InputPerToken:  i.InputPerToken,
		OutputPerToken: i.OutputPerToken,
	}
}

// CreditCost returns the per-message credit cost for this model.
func (i Info) CreditCost() int {
	return credit.Cost(i.Pricing())
}
