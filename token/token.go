// Package token defines the Token produced by the lexer and its source
// location, independent of how the token was produced (scanned,
// synthesized by a pragma, or replayed from an injected token block).
package token

// Kind identifies which variant of Token this is.
type Kind int

const (
	// EOF marks the end of the entire include stack.
	EOF Kind = iota
	// Error marks a hard lex failure; the grammar parser treats it as
	// a parse failure and stops.
	Error
	// Keyword is a resolved reserved word, identified by ID (an opaque
	// integer meaningful to the grammar parser, e.g. a yacc token code).
	Keyword
	// Identifier is any name that didn't resolve to a keyword.
	Identifier
	// String is a quoted or raw-captured string payload.
	String
	// Number is a numeric literal; the grammar parser is responsible
	// for interpreting its textual form.
	Number
	// Punct is a single punctuation character (';', '(', ')', ...).
	Punct
	// Pragma marks a leading '@' directive.
	Pragma
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Error:
		return "Error"
	case Keyword:
		return "Keyword"
	case Identifier:
		return "Identifier"
	case String:
		return "String"
	case Number:
		return "Number"
	case Punct:
		return "Punct"
	case Pragma:
		return "Pragma"
	default:
		return "Unknown"
	}
}

// Location is a source span, tagged with the include level it came from
// so diagnostics can name the right file even while nested includes or
// block expansions are active.
type Location struct {
	File         string
	FirstLine    int
	FirstCol     int
	LastLine     int
	LastCol      int
	IncludeLevel int
}

// Token is a tagged record; only the fields relevant to Kind are
// meaningful (Go has no sum types, so this mirrors the original's
// union-like YYSTYPE but keeps each field self-descriptive).
type Token struct {
	Kind     Kind
	ID       int    // Keyword: grammar token id
	Text     string // Identifier/String/Number: payload; Keyword: the matched table name; empty for Punct
	Punct    byte   // Punct: the raw character
	Location Location

	// Pretext is the whitespace/comment text that preceded this token in
	// the source, needed to reconstruct the preprocess output verbatim.
	Pretext string

	// Injected is true when this token was delivered from a TokenBlock
	// rather than scanned fresh; injected tokens never contribute to the
	// preprocess output.
	Injected bool
}

// Copy returns a token whose Text is an independently owned copy, matching
// the invariant that every token drawn from a block is independently
// owned.
func (t Token) Copy() Token {
	if t.Text != "" {
		b := make([]byte, len(t.Text))
		copy(b, t.Text)
		t.Text = string(b)
	}
	return t
}
