// Package tokenblock implements the write-then-drain token queue used to
// inject pre-built tokens into the lexer's stream (spec §4.B).
package tokenblock

import (
	"github.com/relaydlog/cfglex/invariant"
	"github.com/relaydlog/cfglex/token"
)

// state is the block's position in its Writing → Reading → Drained
// lifecycle.
type state int

const (
	writing state = iota
	reading
	drained
)

// Block is an append-only then drain-only sequence of tokens. Add is
// illegal once Next has been called; this is enforced, not merely
// documented, because a block that mixes writes and reads would silently
// reorder injected tokens.
type Block struct {
	tokens []token.Token
	pos    int
	st     state
}

// New creates an empty, writable Block.
func New() *Block {
	return &Block{st: writing}
}

// Add appends tok to the block, deep-copying its string payload so the
// block owns it independently of the caller. Panics if called after the
// first Next.
func (b *Block) Add(tok token.Token) {
	invariant.Precondition(b.st == writing, "tokenblock: Add called after Next (state=%d)", b.st)
	b.tokens = append(b.tokens, tok.Copy())
}

// Next returns the next token in insertion order, transitioning the block
// to the Reading state on its first call. Returns (zero, false) once
// exhausted.
func (b *Block) Next() (token.Token, bool) {
	if b.st == writing {
		b.st = reading
	}
	if b.pos >= len(b.tokens) {
		b.st = drained
		return token.Token{}, false
	}
	tok := b.tokens[b.pos]
	b.pos++
	return tok, true
}

// Exhausted reports whether every token has already been delivered.
func (b *Block) Exhausted() bool {
	return b.pos >= len(b.tokens)
}

// Len reports the number of tokens written to the block, regardless of
// how many have since been drained.
func (b *Block) Len() int {
	return len(b.tokens)
}
