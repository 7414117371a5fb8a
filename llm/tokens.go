package llm

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// CountTokens estimates the token count of text for a model. It falls back
// to a rough whitespace heuristic when the encoding is unknown, so callers
// always get a usable number.
func CountTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		// ~0.75 words per token on average English text.
		return len(strings.Fields(text)) * 4 / 3
	}
	return len(enc.Encode(text, nil, nil))
}
