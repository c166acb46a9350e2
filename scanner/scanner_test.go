package scanner

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nulTerminate(s string) []byte {
	return append([]byte(s), 0, 0)
}

// tokenExpectation mirrors the shape the teacher's own lexer suite
// asserts against (runtime/lexer/v2/lexer_test.go's tokenExpectation),
// trimmed to the fields RawToken actually carries.
type tokenExpectation struct {
	Kind  RawKind
	Text  string
	Punct byte
}

// assertTokenStream runs s to RawEOF and compares the whole stream in
// one cmp.Diff, the same "collect then diff" idiom the teacher's
// assertTokens helper uses instead of asserting token-by-token.
func assertTokenStream(t *testing.T, s *Scanner, expected []tokenExpectation) {
	t.Helper()
	var actual []tokenExpectation
	for {
		tok, err := s.Next()
		require.NoError(t, err)
		actual = append(actual, tokenExpectation{Kind: tok.Kind, Text: tok.Text, Punct: tok.Punct})
		if tok.Kind == RawEOF {
			break
		}
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("token stream mismatch (-expected +actual):\n%s", diff)
	}
}

func TestNextTokenStreamMatchesExpectedSequence(t *testing.T) {
	s := New(nulTerminate("hello(world);"))
	assertTokenStream(t, s, []tokenExpectation{
		{Kind: RawIdentifier, Text: "hello"},
		{Kind: RawPunct, Punct: '('},
		{Kind: RawIdentifier, Text: "world"},
		{Kind: RawPunct, Punct: ')'},
		{Kind: RawPunct, Punct: ';'},
		{Kind: RawEOF},
	})
}

func TestNextIdentifierAllowsDashes(t *testing.T) {
	s := New(nulTerminate("max-connections"))
	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, RawIdentifier, tok.Kind)
	assert.Equal(t, "max-connections", tok.Text)
}

func TestNextSkipsWhitespaceAndLineComments(t *testing.T) {
	s := New(nulTerminate("  # a comment\n  value"))
	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, RawIdentifier, tok.Kind)
	assert.Equal(t, "value", tok.Text)
	assert.Contains(t, tok.Pretext, "# a comment")
}

func TestNextNumber(t *testing.T) {
	s := New(nulTerminate("3.4 rest"))
	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, RawNumber, tok.Kind)
	assert.Equal(t, "3.4", tok.Text)
}

func TestNextQuotedString(t *testing.T) {
	s := New(nulTerminate(`"hello\"world"`))
	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, RawString, tok.Kind)
	assert.Equal(t, `hello\"world`, tok.Text)
}

func TestNextUnterminatedStringErrors(t *testing.T) {
	s := New(nulTerminate(`"oops`))
	_, err := s.Next()
	require.Error(t, err)
}

func TestNextAtIsPragmaMarker(t *testing.T) {
	s := New(nulTerminate("@version"))
	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, RawAt, tok.Kind)
}

func TestNextPunct(t *testing.T) {
	s := New(nulTerminate(";"))
	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, RawPunct, tok.Kind)
	assert.Equal(t, byte(';'), tok.Punct)
}

func TestNextEOFAtDoubleNul(t *testing.T) {
	s := New(nulTerminate(""))
	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, RawEOF, tok.Kind)
}

func TestNextRawCapturesBalancedBraces(t *testing.T) {
	s := New(nulTerminate("{ a { nested } b }"))
	tok, err := s.NextRaw('{', '}')
	require.NoError(t, err)
	assert.Equal(t, RawString, tok.Kind)
	assert.Equal(t, " a { nested } b ", tok.Text)
}

func TestNextRawTreatsQuotedBracesAsTransparent(t *testing.T) {
	s := New(nulTerminate(`{ "a } b" rest }`))
	tok, err := s.NextRaw('{', '}')
	require.NoError(t, err)
	assert.Equal(t, ` "a } b" rest `, tok.Text)
}

func TestNextRawBalancedParens(t *testing.T) {
	s := New(nulTerminate("(alice)"))
	tok, err := s.NextRaw('(', ')')
	require.NoError(t, err)
	assert.Equal(t, "alice", tok.Text)
}

func TestNextRawUnbalancedErrors(t *testing.T) {
	s := New(nulTerminate("{ unterminated"))
	_, err := s.NextRaw('{', '}')
	require.Error(t, err)
}

func TestNextRawRequiresOpeningDelimiter(t *testing.T) {
	s := New(nulTerminate("not-open }"))
	_, err := s.NextRaw('{', '}')
	require.Error(t, err)
}

func TestLineAndColumnTracking(t *testing.T) {
	s := New(nulTerminate("a\nbc"))
	_, err := s.Next() // "a"
	require.NoError(t, err)
	tok, err := s.Next() // "bc" on line 2
	require.NoError(t, err)
	assert.Equal(t, 2, tok.Pos.Line)
	assert.Equal(t, 1, tok.Pos.Col)
}
