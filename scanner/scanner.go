// Package scanner is the character-level tokenizer the lexer engine
// treats as an external collaborator (spec §6): it turns a
// double-NUL-terminated byte buffer into RawTokens, including the
// brace/paren-balanced raw-capture mode the engine switches into for
// block-content and block-arg contexts (spec §4.I step 2).
//
// Grounded on the corpus's own v2 lexer (ASCII classification tables,
// byte-offset scanning, escape handling in quoted strings), generalized
// to this spec's token shape and to grapheme-aware column tracking for
// multi-byte source text.
package scanner

import (
	"github.com/rivo/uniseg"

	"github.com/relaydlog/cfglex/cfgerrors"
)

// Scanner tokenizes one double-NUL-terminated content buffer.
type Scanner struct {
	input []byte
	pos   int
	line  int
	col   int
}

// New creates a Scanner over content, which must be double-NUL
// terminated (the include package guarantees this for every Level).
func New(content []byte) *Scanner {
	return &Scanner{input: content, line: 1, col: 1}
}

// Position returns the scanner's current cursor.
func (s *Scanner) Position() Position {
	return Position{Line: s.line, Col: s.col, Offset: s.pos}
}

func (s *Scanner) currentChar() byte {
	if s.pos >= len(s.input) {
		return 0
	}
	return s.input[s.pos]
}

func (s *Scanner) peekChar(ahead int) byte {
	if s.pos+ahead >= len(s.input) {
		return 0
	}
	return s.input[s.pos+ahead]
}

// atEnd reports whether the scanner has reached the double-NUL sentinel
// or the physical end of the buffer.
func (s *Scanner) atEnd() bool {
	if s.pos >= len(s.input) {
		return true
	}
	return s.input[s.pos] == 0
}

// advance consumes n bytes of src (a just-scanned, already-validated
// span) and moves the cursor forward, counting grapheme clusters (not
// raw bytes or runes) for column advancement so multi-byte source text
// doesn't miscount columns.
func (s *Scanner) advance(src string) {
	if indexByte(src, '\n') < 0 {
		s.col += uniseg.GraphemeClusterCount(src)
	} else {
		// Walk line-by-line so the line/column reset lands correctly.
		rest := src
		for {
			nl := indexByte(rest, '\n')
			if nl < 0 {
				s.col += uniseg.GraphemeClusterCount(rest)
				break
			}
			s.line++
			s.col = 1
			rest = rest[nl+1:]
		}
	}
	s.pos += len(src)
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

// Next returns the next RawToken, skipping and recording leading
// whitespace/comments as Pretext.
func (s *Scanner) Next() (RawToken, error) {
	pretext := s.skipWhitespaceAndComments()
	start := s.Position()

	if s.atEnd() {
		return RawToken{Kind: RawEOF, Pos: start, Pretext: pretext}, nil
	}

	ch := s.currentChar()
	switch {
	case ch < 128 && isIdentStart[ch]:
		return s.lexIdentifier(start, pretext), nil
	case ch < 128 && isDigit[ch]:
		return s.lexNumber(start, pretext), nil
	case ch == '"' || ch == '\'':
		return s.lexString(start, pretext, ch)
	case ch == '@':
		s.advance(string(ch))
		return RawToken{Kind: RawAt, Punct: '@', Pos: start, Pretext: pretext}, nil
	default:
		s.advance(string(ch))
		return RawToken{Kind: RawPunct, Punct: ch, Pos: start, Pretext: pretext}, nil
	}
}

func (s *Scanner) skipWhitespaceAndComments() string {
	startPos := s.pos
	for {
		ch := s.currentChar()
		if s.atEnd() {
			break
		}
		if ch < 128 && isWhitespace[ch] {
			s.advance(string(ch))
			continue
		}
		if ch == '#' {
			for !s.atEnd() && s.currentChar() != '\n' {
				s.advance(string(s.currentChar()))
			}
			continue
		}
		break
	}
	return string(s.input[startPos:s.pos])
}

func (s *Scanner) lexIdentifier(start Position, pretext string) RawToken {
	startOff := s.pos
	for !s.atEnd() {
		ch := s.currentChar()
		if ch >= 128 || !isIdentPart[ch] {
			break
		}
		s.advance(string(ch))
	}
	text := string(s.input[startOff:s.pos])
	return RawToken{Kind: RawIdentifier, Text: text, Pos: start, Pretext: pretext}
}

func (s *Scanner) lexNumber(start Position, pretext string) RawToken {
	startOff := s.pos
	for !s.atEnd() && s.currentChar() < 128 && isDigit[s.currentChar()] {
		s.advance(string(s.currentChar()))
	}
	if s.currentChar() == '.' && s.peekChar(1) < 128 && isDigit[s.peekChar(1)] {
		s.advance(".")
		for !s.atEnd() && s.currentChar() < 128 && isDigit[s.currentChar()] {
			s.advance(string(s.currentChar()))
		}
	}
	text := string(s.input[startOff:s.pos])
	return RawToken{Kind: RawNumber, Text: text, Pos: start, Pretext: pretext}
}

// lexString scans a quoted string, handling backslash escapes. Backtick
// expansion of its contents is a higher-layer concern (backtick
// package); the scanner only delivers the unescaped-delimiter text.
func (s *Scanner) lexString(start Position, pretext string, quote byte) (RawToken, error) {
	s.advance(string(quote))
	startOff := s.pos
	for {
		if s.atEnd() {
			return RawToken{}, cfgerrors.New(cfgerrors.KindBlockArgParseFailed, "unterminated string literal").
				WithTag("line", start.Line).WithTag("column", start.Col)
		}
		ch := s.currentChar()
		if ch == quote {
			break
		}
		if ch == '\\' && s.peekChar(1) != 0 {
			s.advance(string(ch))
			s.advance(string(s.currentChar()))
			continue
		}
		if ch == '\n' {
			return RawToken{}, cfgerrors.New(cfgerrors.KindBlockArgParseFailed, "unterminated string literal").
				WithTag("line", start.Line).WithTag("column", start.Col)
		}
		s.advance(string(ch))
	}
	text := string(s.input[startOff:s.pos])
	s.advance(string(quote)) // closing quote
	return RawToken{Kind: RawString, Text: text, Pos: start, Pretext: pretext}, nil
}

// NextRaw consumes leading whitespace, then expects the current
// character to be open; it scans up to the matching close, honoring
// nested open/close pairs and treating quoted strings as transparent
// (braces/parens inside a string don't count toward balance), and
// returns a single String token whose text is the verbatim inner content
// (spec §4.I step 2, "brace-balanced raw-capture mode").
func (s *Scanner) NextRaw(open, close byte) (RawToken, error) {
	pretext := s.skipWhitespaceAndComments()
	start := s.Position()

	if s.currentChar() != open {
		return RawToken{}, cfgerrors.New(cfgerrors.KindBlockArgParseFailed, "expected opening delimiter").
			WithTag("expected", string(open)).
			WithTag("line", start.Line).WithTag("column", start.Col)
	}
	s.advance(string(open))

	depth := 1
	startOff := s.pos
	for depth > 0 {
		if s.atEnd() {
			return RawToken{}, cfgerrors.New(cfgerrors.KindBlockArgParseFailed, "unbalanced block content").
				WithTag("line", start.Line).WithTag("column", start.Col)
		}
		ch := s.currentChar()
		switch {
		case ch == '"' || ch == '\'':
			if err := s.skipQuotedTransparently(ch); err != nil {
				return RawToken{}, err
			}
			continue
		case ch == open && open != close:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				break
			}
		}
		if depth == 0 {
			break
		}
		s.advance(string(ch))
	}
	text := string(s.input[startOff:s.pos])
	s.advance(string(close))
	return RawToken{Kind: RawString, Text: text, Pos: start, Pretext: pretext}, nil
}

func (s *Scanner) skipQuotedTransparently(quote byte) error {
	s.advance(string(quote))
	for {
		if s.atEnd() {
			return cfgerrors.New(cfgerrors.KindBlockArgParseFailed, "unterminated string literal inside block content")
		}
		ch := s.currentChar()
		if ch == quote {
			s.advance(string(ch))
			return nil
		}
		if ch == '\\' && s.peekChar(1) != 0 {
			s.advance(string(ch))
			s.advance(string(s.currentChar()))
			continue
		}
		s.advance(string(ch))
	}
}
