// Package llm abstracts text completion and embedding providers behind
// small interfaces so pipelines and agents stay provider-agnostic.
package llm

import (
	"context"
)

// Usage is the token and cost accounting of one provider call.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// Add accumulates another usage record.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.CostUSD += other.CostUSD
}

// Completion is the result of one completion call.
type Completion struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// CompleteOptions tunes a single completion call. Zero values fall back to
// the provider's configured defaults.
type CompleteOptions struct {
	System      string
	Temperature *float32
	MaxTokens   int
}

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts *CompleteOptions) (*Completion, error)
}

// Embedder produces a dense vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}

// modelPricing is USD per 1K tokens.
type modelPricing struct {
	input  float64
	output float64
}

var pricingTable = map[string]modelPricing{
	"gpt-4o":                 {input: 0.0025, output: 0.01},
	"gpt-4o-mini":            {input: 0.00015, output: 0.0006},
	"gpt-4-turbo":            {input: 0.01, output: 0.03},
	"text-embedding-3-small": {input: 0.00002},
	"text-embedding-3-large": {input: 0.00013},
}

// costFor computes the USD cost of a call for a known model. Unknown models
// cost zero.
func costFor(model string, promptTokens, completionTokens int) float64 {
	p, ok := pricingTable[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1000*p.input + float64(completionTokens)/1000*p.output
}
