package lexer

import (
	"fmt"

	"github.com/relaydlog/cfglex/cfgerrors"
	"github.com/relaydlog/cfglex/token"
)

// PragmaParser is the external grammar sub-parser consumed for `@`
// directives (spec §6). It pulls its own tokens via e.Lex().
type PragmaParser interface {
	Parse(e *Engine) error
}

// DefaultPragmaParser understands the small subset of pragma syntax this
// module is responsible for: `@version: MAJ.MIN` and `@module NAME;`.
// The full configuration grammar's pragma vocabulary is out of scope
// (non-goal: parsing the overall configuration grammar).
type DefaultPragmaParser struct{}

func (DefaultPragmaParser) Parse(e *Engine) error {
	nameTok, err := e.Lex()
	if err != nil {
		return err
	}
	if nameTok.Kind != token.Identifier {
		return cfgerrors.New(cfgerrors.KindPragmaParseFailed, "expected pragma name").
			WithTag("line", nameTok.Location.FirstLine)
	}

	switch nameTok.Text {
	case "version":
		return parseVersionPragma(e)
	case "module":
		return parseModulePragma(e)
	default:
		return cfgerrors.New(cfgerrors.KindPragmaParseFailed, fmt.Sprintf("unknown pragma %q", nameTok.Text))
	}
}

func parseVersionPragma(e *Engine) error {
	colon, err := e.Lex()
	if err != nil {
		return err
	}
	if colon.Kind != token.Punct || colon.Punct != ':' {
		return cfgerrors.New(cfgerrors.KindPragmaParseFailed, "expected ':' after @version")
	}
	num, err := e.Lex()
	if err != nil {
		return err
	}
	if num.Kind != token.Number {
		return cfgerrors.New(cfgerrors.KindPragmaParseFailed, "expected MAJ.MIN after @version:")
	}
	e.versions.SetParsedVersion(num.Text)
	return nil
}

func parseModulePragma(e *Engine) error {
	name, err := e.Lex()
	if err != nil {
		return err
	}
	if name.Kind != token.Identifier && name.Kind != token.String {
		return cfgerrors.New(cfgerrors.KindPragmaParseFailed, "expected module name")
	}
	semi, err := e.Lex()
	if err != nil {
		return err
	}
	if semi.Kind != token.Punct || semi.Punct != ';' {
		return cfgerrors.New(cfgerrors.KindPragmaParseFailed, "expected ';' after @module directive")
	}
	return nil
}
