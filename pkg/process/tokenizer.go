package process

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts tokens with a fixed tiktoken encoding
type TokenCounter struct {
	encoding string
	codec    tokenizer.Codec
}

// NewTokenCounter loads the named encoding.
// Supported: "cl100k_base" (GPT-4), "o200k_base" (GPT-4o), "p50k_base", "p50k_edit", "r50k_base".
// An empty name selects cl100k_base.
func NewTokenCounter(encoding string) (*TokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}

	var enc tokenizer.Encoding
	switch encoding {
	case "cl100k_base":
		enc = tokenizer.Cl100kBase
	case "p50k_base":
		enc = tokenizer.P50kBase
	case "p50k_edit":
		enc = tokenizer.P50kEdit
	case "r50k_base":
		enc = tokenizer.R50kBase
	case "o200k_base":
		enc = tokenizer.O200kBase
	default:
		return nil, fmt.Errorf("unknown tokenizer encoding %q", encoding)
	}

	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", encoding, err)
	}
	return &TokenCounter{encoding: encoding, codec: codec}, nil
}

// Encoding returns the encoding name
func (c *TokenCounter) Encoding() string {
	return c.encoding
}

// Count returns the token count of text. A nil counter, or an encoding failure,
// falls back to a len/4 estimate.
func (c *TokenCounter) Count(text string) int {
	if c == nil || c.codec == nil {
		return estimateTokens(text)
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return estimateTokens(text)
	}
	return len(ids)
}

// estimateTokens approximates a token count at four bytes per token
func estimateTokens(text string) int {
	return len(text) / 4
}
