package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCounter(t *testing.T) {
	tc, err := NewTokenCounter("gpt-5-mini")
	require.NoError(t, err)

	assert.Equal(t, 0, tc.CountTokens(""))

	short := tc.CountTokens("hello world")
	assert.Positive(t, short)

	long := tc.CountTokens("hello world, this is a much longer sentence with many more tokens in it")
	assert.Greater(t, long, short)
}

func TestCountTokensSimple(t *testing.T) {
	assert.Positive(t, CountTokensSimple("some text to count"))
}

func TestTokenCounterFallback(t *testing.T) {
	tc := &TokenCounter{} // nil codec
	assert.Equal(t, len("abcdefgh")/4, tc.CountTokens("abcdefgh"))
}
