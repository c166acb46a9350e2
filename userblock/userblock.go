// Package userblock implements user-defined parameterized block
// templates: a name, raw content, and declared argument defaults,
// expanded via backtick substitution into a fresh include buffer
// (spec §4.H).
package userblock

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/relaydlog/cfglex/argscope"
	"github.com/relaydlog/cfglex/backtick"
	"github.com/relaydlog/cfglex/cfgerrors"
	"github.com/relaydlog/cfglex/lexcontext"
)

// Block is a named, parameterized template. ArgDefs holds declared
// parameters and their default values, treated as a schema at expansion
// time.
type Block struct {
	Content string
	ArgDefs *argscope.Scope
}

// New constructs a Block.
func New(content string, argDefs *argscope.Scope) *Block {
	return &Block{Content: content, ArgDefs: argDefs}
}

// base58Alphabet is Bitcoin-style (no 0/O/I/l ambiguity), matching the
// corpus's own secret-ID encoding idiom.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func encodeBase58(data []byte) string {
	var num [8]byte
	copy(num[:], data)

	var result []byte
	for i := 0; i < 8; i++ {
		var remainder byte
		for j := 0; j < 8; j++ {
			temp := int(num[j]) + int(remainder)*256
			num[j] = byte(temp / 58)
			remainder = byte(temp % 58)
		}
		result = append([]byte{base58Alphabet[remainder]}, result...)
	}
	// Trim leading zero-digits down to a short, stable tag.
	i := 0
	for i < len(result)-1 && result[i] == base58Alphabet[0] {
		i++
	}
	return string(result[i:])
}

// disambiguationTag derives a short, stable suffix from the call site so
// recursive or repeated references to the same block get distinguishable
// synthetic source names in diagnostics (spec §4.H [ADDED]).
func disambiguationTag(context lexcontext.Kind, name string, includeLevel, line, col int) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%d:%s:%d:%d:%d", context, name, includeLevel, line, col)
	sum := h.Sum(nil)
	return encodeBase58(sum[:8])
}

// CallSite identifies where a block was referenced, for the synthetic
// source name's disambiguation tag.
type CallSite struct {
	IncludeLevel int
	Line         int
	Col          int
}

// Expand runs the §4.H algorithm: compose a synthetic source name,
// compute __VARARGS__ for excess named arguments, substitute backticks
// over globals/ArgDefs/callArgs, and return the resulting bytes ready to
// be pushed as a new include buffer. It does not push the buffer itself
// — the caller (the lexer engine) owns the include stack.
func (b *Block) Expand(globals *argscope.Scope, context lexcontext.Kind, name string, callArgs *argscope.Scope, site CallSite) (sourceName string, content []byte, err error) {
	tag := disambiguationTag(context, name, site.IncludeLevel, site.Line, site.Col)
	sourceName = fmt.Sprintf("%s block %s#%s", lexcontext.LookupName(context), name, tag)
	if len(sourceName) > 255 {
		sourceName = sourceName[:255]
	}

	fillVarargs(b.ArgDefs, callArgs)

	expanded, subErr := backtick.Substitute(backtick.Scopes{Globals: globals, Defs: b.ArgDefs, Args: callArgs}, b.Content)
	if subErr != nil {
		return "", nil, cfgerrors.Wrap(cfgerrors.KindBlockExpansionFailed, "syntax error while resolving backtick references in block, missing closing '`' character", subErr).
			WithTag("context", lexcontext.LookupName(context)).
			WithTag("block", name)
	}

	return sourceName, []byte(expanded), nil
}

// fillVarargs computes __VARARGS__ by iterating callArgs and emitting
// "key(value) " for each key not declared in defs, assigning the result
// back into callArgs (spec §4.H step 2).
func fillVarargs(defs, callArgs *argscope.Scope) {
	if callArgs == nil {
		return
	}
	var varargs string
	for _, key := range callArgs.Keys() {
		if defs != nil {
			if _, declared := defs.Get(key); declared {
				continue
			}
		}
		value, _ := callArgs.Get(key)
		varargs += fmt.Sprintf("%s(%s) ", key, value)
	}
	callArgs.Set("__VARARGS__", varargs)
}
