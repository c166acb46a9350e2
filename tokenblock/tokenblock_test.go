package tokenblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydlog/cfglex/token"
)

func TestBlockDrainsInInsertionOrder(t *testing.T) {
	b := New()
	b.Add(token.Token{Kind: token.Identifier, Text: "a"})
	b.Add(token.Token{Kind: token.Identifier, Text: "b"})

	tok, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, "a", tok.Text)

	tok, ok = b.Next()
	require.True(t, ok)
	assert.Equal(t, "b", tok.Text)

	_, ok = b.Next()
	assert.False(t, ok)
	assert.True(t, b.Exhausted())
}

func TestBlockAddAfterNextPanics(t *testing.T) {
	b := New()
	b.Add(token.Token{Kind: token.Identifier, Text: "a"})
	b.Next()

	assert.Panics(t, func() {
		b.Add(token.Token{Kind: token.Identifier, Text: "b"})
	})
}

func TestBlockPreservesTokenPayload(t *testing.T) {
	b := New()
	b.Add(token.Token{Kind: token.String, Text: "owned"})

	got, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, "owned", got.Text)
}

func TestEmptyBlockIsImmediatelyExhausted(t *testing.T) {
	b := New()
	_, ok := b.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, b.Len())
}
