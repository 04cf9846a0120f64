// Package utils provides tiktoken-based token counting utilities.
package utils

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter provides approximate token counting for conversation budgeting.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a new token counter for the specified model.
// All supported models approximate well enough with the GPT-4 encoding; exact
// provider-side counts are authoritative only for billing, not budgeting.
func NewTokenCounter(model string) (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec for model %s: %w", model, err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the number of tokens in the given text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.codec == nil {
		// Fallback to character-based estimation (4 chars ≈ 1 token)
		return len(text) / 4
	}

	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}

	return count
}

// CountTokensSimple counts tokens without a TokenCounter instance, falling
// back to character-based estimation when the codec cannot be built.
func CountTokensSimple(text string) int {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return len(text) / 4
	}
	count, err := codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}
