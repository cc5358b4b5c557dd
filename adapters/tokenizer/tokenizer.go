// Package tokenizer estimates token counts for prompt text.
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/gatewaylabs/creditmeter/ports"
)

// fallbackEncoding covers models tiktoken has no mapping for.
const fallbackEncoding = "cl100k_base"

// Tiktoken estimates tokens with the model's BPE encoding, falling back to
// a characters/4 heuristic when no encoding can be loaded.
type Tiktoken struct {
	mu       sync.Mutex
	byModel  map[string]*tiktoken.Tiktoken
	fallback *tiktoken.Tiktoken
}

// New creates a new tiktoken-backed estimator.
func New() *Tiktoken {
	return &Tiktoken{byModel: make(map[string]*tiktoken.Tiktoken)}
}

// Estimate returns the estimated token count of text for modelID.
// Never fails; an unloadable encoding degrades to the heuristic.
func (t *Tiktoken) Estimate(modelID, text string) int {
	if text == "" {
		return 0
	}
	enc := t.encodingFor(modelID)
	if enc == nil {
		return heuristicTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func (t *Tiktoken) encodingFor(modelID string) *tiktoken.Tiktoken {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enc, ok := t.byModel[modelID]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(modelID)
	if err != nil {
		if t.fallback == nil {
			t.fallback, _ = tiktoken.GetEncoding(fallbackEncoding)
		}
		enc = t.fallback
	}
	t.byModel[modelID] = enc
	return enc
}

// heuristicTokens approximates ~4 characters per token, rounding up.
func heuristicTokens(text string) int {
	return (len(text) + 3) / 4
}

// Ensure interface compliance.
var _ ports.TokenEstimator = (*Tiktoken)(nil)
