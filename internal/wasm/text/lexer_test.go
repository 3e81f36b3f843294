package text

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeParensAndWords(t *testing.T) {
	l := NewLexer([]byte(`(module (func $f (param i32) i32.add))`))
	toks, err := l.Tokenize()
	require.NoError(t, err)
	require.Equal(t, TokenLParen, toks[0].Kind)
	require.Equal(t, TokenWord, toks[1].Kind)
	require.Equal(t, "module", string(l.Text(1)))
	require.Equal(t, TokenEOF, toks[len(toks)-1].Kind)
}

func TestTokenizeIdentifier(t *testing.T) {
	l := NewLexer([]byte(`$my-local`))
	toks, err := l.Tokenize()
	require.NoError(t, err)
	require.Equal(t, TokenID, toks[0].Kind)
	require.Equal(t, "$my-local", string(l.Text(0)))
}

func TestTokenizeString(t *testing.T) {
	l := NewLexer([]byte(`"hello \"world\""`))
	toks, err := l.Tokenize()
	require.NoError(t, err)
	require.Equal(t, TokenString, toks[0].Kind)
}

func TestTokenizeSkipsLineComment(t *testing.T) {
	l := NewLexer([]byte("foo ;; comment\nbar"))
	toks, err := l.Tokenize()
	require.NoError(t, err)
	require.Equal(t, []TokenKind{TokenWord, TokenWord, TokenEOF}, kinds(toks))
	require.Equal(t, "foo", string(l.Text(0)))
	require.Equal(t, "bar", string(l.Text(1)))
}

func TestTokenizeSkipsNestedBlockComment(t *testing.T) {
	l := NewLexer([]byte("foo (; outer (; inner ;) still outer ;) bar"))
	toks, err := l.Tokenize()
	require.NoError(t, err)
	require.Equal(t, []TokenKind{TokenWord, TokenWord, TokenEOF}, kinds(toks))
}

func TestLocusTracksLines(t *testing.T) {
	l := NewLexer([]byte("aa\nbb\ncc"))
	_, err := l.Tokenize()
	require.NoError(t, err)
	require.Equal(t, LineInfo{Line: 1, Column: 1}, l.Locus(0))
	require.Equal(t, LineInfo{Line: 2, Column: 1}, l.Locus(3))
	require.Equal(t, LineInfo{Line: 3, Column: 2}, l.Locus(7))
}

func TestTokenizeMaximalMunchOnWord(t *testing.T) {
	l := NewLexer([]byte(`i32.load8_s`))
	toks, err := l.Tokenize()
	require.NoError(t, err)
	require.Equal(t, []TokenKind{TokenWord, TokenEOF}, kinds(toks))
	require.Equal(t, "i32.load8_s", string(l.Text(0)))
}
