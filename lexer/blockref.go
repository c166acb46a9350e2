package lexer

import (
	"github.com/relaydlog/cfglex/argscope"
	"github.com/relaydlog/cfglex/cfgerrors"
	"github.com/relaydlog/cfglex/lexcontext"
	"github.com/relaydlog/cfglex/token"
)

// BlockRefParser is the external grammar sub-parser consumed to read a
// block reference's call arguments, `name(arg(value) arg2(value2))`
// (spec §4.H, §6). It pulls its own tokens via e.Lex(), which is what
// makes the BlockArg context's raw-capture mode (spec §4.I step 2) kick
// in for each argument value.
type BlockRefParser interface {
	Parse(e *Engine) (*argscope.Scope, error)
}

// DefaultBlockRefParser implements the minimal call-argument grammar:
// a parenthesized, possibly empty list of `name(value)` pairs. value is
// whatever the scanner's brace-balanced raw-capture returns, so nested
// parens and quoted substrings inside a value are transparent.
type DefaultBlockRefParser struct{}

func (DefaultBlockRefParser) Parse(e *Engine) (*argscope.Scope, error) {
	open, err := e.Lex()
	if err != nil {
		return nil, err
	}
	if open.Kind != token.Punct || open.Punct != '(' {
		return nil, cfgerrors.New(cfgerrors.KindBlockArgParseFailed, "expected '(' to open block call arguments")
	}

	args := argscope.New()
	for {
		peek, err := e.Lex()
		if err != nil {
			return nil, err
		}
		if peek.Kind == token.Punct && peek.Punct == ')' {
			return args, nil
		}
		if peek.Kind != token.Identifier && peek.Kind != token.Keyword {
			return nil, cfgerrors.New(cfgerrors.KindBlockArgParseFailed, "expected argument name").
				WithTag("line", peek.Location.FirstLine)
		}
		name := peek.Text

		pop := e.ctx.Guard(lexcontext.BlockArg, nil, "block argument")
		value, err := e.Lex()
		pop()
		if err != nil {
			return nil, err
		}
		if value.Kind != token.String {
			return nil, cfgerrors.New(cfgerrors.KindBlockArgParseFailed, "expected '(' value ')' after argument name").
				WithTag("arg", name).
				WithTag("line", value.Location.FirstLine)
		}
		args.Set(name, value.Text)
	}
}
