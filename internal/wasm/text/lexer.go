// Package text implements the WebAssembly text format front end: lexing,
// literal parsing, the recursive-descent module parser, and the canonical
// printer (spec.md §4, components E-G and K).
package text

import (
	"sync"

	"github.com/wavmgo/wavm/internal/bitpack"
	"github.com/wavmgo/wavm/internal/dfa"
	"github.com/wavmgo/wavm/internal/nfa"
	"github.com/wavmgo/wavm/internal/regexcompile"
)

// TokenKind classifies a lexed token. Keyword-vs-number disambiguation is
// deliberately NOT done here: the DFA emits TokenWord for any run of idchar
// bytes not starting with "$" (numbers and keywords share that charset and
// would make the DFA ambiguous if split into separate terminals; see
// DESIGN.md). Once lexing has produced the whole span, LooksLikeNumber
// picks out number-shaped words and the parser matches keywords by text.
type TokenKind uint16

const (
	TokenEOF TokenKind = iota
	TokenLParen
	TokenRParen
	TokenID     // $name
	TokenString // "..."
	TokenWord   // keyword, mnemonic, reserved symbol, or number literal text
	TokenError  // lexical error (span holds the offending run of bytes)
)

// Token is a packed (kind, offset) pair; End is computed lazily from the
// next token's Offset, avoiding a second field for the common case of
// walking the stream forward.
type Token struct {
	Kind   TokenKind
	Offset uint32
}

const (
	termWord int = iota
	termID
	termString
	termLParen
	termRParen
)

var (
	lexMachine     *dfa.Machine
	lexMachineOnce sync.Once
	lexMachineErr  error
)

// idcharPattern is the WebAssembly text format's "idchar" production: the
// printable ASCII symbol set plus letters and digits, minus characters that
// are independently meaningful to the lexer ('(' ')' '"' ';' whitespace).
const idcharPattern = `[A-Za-z0-9!#$%&'*+\-./:<=>?@\\^_` + "`" + `|~]`

func buildLexMachine() (*dfa.Machine, error) {
	b := nfa.NewBuilder()
	const start nfa.StateIndex = 0 // NewBuilder's sole initial state

	// term: word = an idchar other than "$" followed by idchar*, or a bare
	// "$". A "$" followed by idchars is matched by the identifier terminal
	// only: were it also a word, both terminals would accept the same input
	// and dfa.Compile would reject the grammar as ambiguous.
	const wordStartPattern = `[A-Za-z0-9!#%&'*+\-./:<=>?@\\^_` + "`" + `|~]`
	wEntry, wExit, err := regexcompile.Compile(b, wordStartPattern+idcharPattern+`*|\$`)
	if err != nil {
		return nil, err
	}
	b.AddEpsilon(start, wEntry)
	markTerminal(b, wExit, termWord)

	// term: identifier = "$" idchar+
	idEntry, idExit, err := regexcompile.Compile(b, `\$`+idcharPattern+`+`)
	if err != nil {
		return nil, err
	}
	b.AddEpsilon(start, idEntry)
	markTerminal(b, idExit, termID)

	// term: string = '"' (non-quote, non-backslash | '\\' any)* '"'
	strEntry, strExit, err := regexcompile.Compile(b, `"([^"\\]|\\.)*"`)
	if err != nil {
		return nil, err
	}
	b.AddEpsilon(start, strEntry)
	markTerminal(b, strExit, termString)

	lpEntry, lpExit, err := regexcompile.Compile(b, `\(`)
	if err != nil {
		return nil, err
	}
	b.AddEpsilon(start, lpEntry)
	markTerminal(b, lpExit, termLParen)

	rpEntry, rpExit, err := regexcompile.Compile(b, `\)`)
	if err != nil {
		return nil, err
	}
	b.AddEpsilon(start, rpEntry)
	markTerminal(b, rpExit, termRParen)

	return dfa.Compile(b)
}

// markTerminal wires exit to the sentinel terminal state for kind, via the
// negative-index accept encoding nfa.Terminal establishes (no real state is
// allocated for a terminal; AddEpsilon/EpsilonClosure understand the
// sentinel directly).
func markTerminal(b *nfa.Builder, exit nfa.StateIndex, kind int) {
	b.AddEpsilon(exit, nfa.Terminal(kind))
}

func getLexMachine() (*dfa.Machine, error) {
	lexMachineOnce.Do(func() {
		lexMachine, lexMachineErr = buildLexMachine()
	})
	return lexMachine, lexMachineErr
}

// Lexer scans WebAssembly text source into a token stream, handling
// whitespace and comments (which the DFA never sees) itself.
type Lexer struct {
	src     []byte
	pos     int
	tokens  []Token
	ends    []uint32          // ends[i] is the byte offset just past tokens[i]'s span
	lineTab bitpack.OffsetArray // byte offset of the start of each line, built lazily
}

// NewLexer prepares a Lexer over src. Call Tokenize to produce the whole
// token stream up front (the parser walks it in several passes and indexes
// into it freely, so a pull-based lexer would not simplify anything).
func NewLexer(src []byte) *Lexer {
	return &Lexer{src: src}
}

// Tokenize scans the entire source into a terminated token stream (the last
// token is always TokenEOF).
func (l *Lexer) Tokenize() ([]Token, error) {
	m, err := getLexMachine()
	if err != nil {
		return nil, err
	}
	for l.pos < len(l.src) {
		if l.skipWhitespaceAndComments() {
			continue
		}
		start := l.pos
		kind, _, newPos, matched := m.Feed(l.src, l.pos)
		if !matched {
			l.pos++
			l.tokens = append(l.tokens, Token{Kind: TokenError, Offset: uint32(start)})
			l.ends = append(l.ends, uint32(l.pos))
			continue
		}
		l.pos = newPos
		l.tokens = append(l.tokens, Token{Kind: termKindToTokenKind(kind), Offset: uint32(start)})
		l.ends = append(l.ends, uint32(newPos))
	}
	l.tokens = append(l.tokens, Token{Kind: TokenEOF, Offset: uint32(len(l.src))})
	l.ends = append(l.ends, uint32(len(l.src)))
	return l.tokens, nil
}

func termKindToTokenKind(k int) TokenKind {
	switch k {
	case termWord:
		return TokenWord
	case termID:
		return TokenID
	case termString:
		return TokenString
	case termLParen:
		return TokenLParen
	case termRParen:
		return TokenRParen
	default:
		return TokenError
	}
}

// skipWhitespaceAndComments advances past runs of ASCII whitespace, ";;"
// line comments, and nested "(;" ... ";)" block comments, reporting whether
// it consumed anything.
func (l *Lexer) skipWhitespaceAndComments() bool {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == ';' && l.peek(1) == ';':
			l.pos += 2
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '(' && l.peek(1) == ';':
			l.skipBlockComment()
		default:
			return l.pos != start
		}
	}
	return l.pos != start
}

func (l *Lexer) skipBlockComment() {
	depth := 0
	for l.pos < len(l.src) {
		if l.src[l.pos] == '(' && l.peek(1) == ';' {
			depth++
			l.pos += 2
			continue
		}
		if l.src[l.pos] == ';' && l.peek(1) == ')' {
			depth--
			l.pos += 2
			if depth == 0 {
				return
			}
			continue
		}
		l.pos++
	}
}

func (l *Lexer) peek(ahead int) byte {
	if l.pos+ahead >= len(l.src) {
		return 0
	}
	return l.src[l.pos+ahead]
}

// LineInfo is the (line, column) locus of a byte offset, both 1-based.
type LineInfo struct {
	Line, Column int
}

// Locus resolves offset to a LineInfo, building (and caching) a table of
// line-start offsets on first use, per P4 (line-start correctness): every
// '\n' byte begins the next line. The table is built once as a plain slice
// and immediately compressed into a bitpack.OffsetArray: line starts are
// monotonically increasing with small deltas between consecutive lines, the
// case the frame-of-reference/delta encoding is built for.
func (l *Lexer) Locus(offset uint32) LineInfo {
	if l.lineTab == nil {
		starts := []uint64{0}
		for i, c := range l.src {
			if c == '\n' {
				starts = append(starts, uint64(i+1))
			}
		}
		l.lineTab = bitpack.NewOffsetArray(starts)
	}
	lo, hi := 0, l.lineTab.Len()-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if l.lineTab.Index(mid) <= uint64(offset) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return LineInfo{Line: lo + 1, Column: int(offset-uint32(l.lineTab.Index(lo))) + 1}
}

// Text returns the raw source bytes spanning tokIdx's match.
func (l *Lexer) Text(tokIdx int) []byte {
	return l.src[l.tokens[tokIdx].Offset:l.ends[tokIdx]]
}
