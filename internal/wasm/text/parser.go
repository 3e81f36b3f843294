package text

import (
	"errors"
	"fmt"

	"github.com/wavmgo/wavm/internal/leb128"
	"github.com/wavmgo/wavm/internal/wasm"
)

// ParseError is a syntax error recorded at a source locus. Errors inside a
// function definition and duplicate identifiers are recoverable: ParseModule
// records them, keeps parsing, and returns all of them batched via
// errors.Join rather than stopping at the first. An error in any other
// module-level form ends the parse at once with that single error, and input
// whose parentheses do not balance (it ends inside a form, or has a stray
// ')') is rejected before parsing with a single plain error.
type ParseError struct {
	Offset uint32
	Locus  LineInfo
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Locus.Line, e.Locus.Column, e.Message)
}

// childSpan is a balanced parenthesized group's token range [Start, End):
// Start indexes its '(' and End indexes one past its matching ')'.
type childSpan struct{ Start, End int }

// parser walks a WebAssembly text module's token stream three times:
// once to fully resolve the type section (types have no forward
// references), once to register every other index space's name bindings
// and slot count (so later passes can resolve forward references to
// functions, globals, tables, memories, elem/data segments declared
// anywhere in the file), and once to build every declaration's content,
// including function bodies, now that all cross-references are resolvable.
// This is a three-pass simplification of spec.md's three deferred-callback
// queues (postType / postDeclaration / functionBody): same forward-reference
// guarantee, realized as sequential whole-file passes instead of per-item
// closures queued during a single walk (see DESIGN.md).
type parser struct {
	lex    *Lexer
	toks   []Token
	m      *wasm.Module
	limits wasm.Limits

	typeNames      map[string]wasm.Index
	funcNames      map[string]wasm.Index
	tableNames     map[string]wasm.Index
	memNames       map[string]wasm.Index
	globalNames    map[string]wasm.Index
	elemNames      map[string]wasm.Index
	dataNames      map[string]wasm.Index
	exceptionNames map[string]wasm.Index

	errs []error
}

// ParseModule parses a single WebAssembly text format module, producing its
// IR and running the same validation a decoded binary module receives
// (component G, spec.md §6 parse_module).
func ParseModule(src []byte, features wasm.Features, limits wasm.Limits) (*wasm.Module, error) {
	lex := NewLexer(src)
	toks, err := lex.Tokenize()
	if err != nil {
		return nil, err
	}
	depth := 0
	for _, t := range toks {
		switch t.Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		}
		if depth < 0 {
			return nil, fmt.Errorf("unbalanced parentheses: unexpected ')' at offset %d", t.Offset)
		}
	}
	if depth != 0 {
		return nil, errors.New("unexpected end of input: unbalanced parentheses")
	}
	p := &parser{
		lex: lex, toks: toks,
		m:      &wasm.Module{Features: features, Names: &wasm.DisassemblyNames{}},
		limits: limits,

		typeNames:      map[string]wasm.Index{},
		funcNames:      map[string]wasm.Index{},
		tableNames:     map[string]wasm.Index{},
		memNames:       map[string]wasm.Index{},
		globalNames:    map[string]wasm.Index{},
		elemNames:      map[string]wasm.Index{},
		dataNames:      map[string]wasm.Index{},
		exceptionNames: map[string]wasm.Index{},
	}

	start := 0
	if p.isLParen(0) && p.wordAt(1) == "module" {
		start = 2
		if p.kindAt(start) == TokenID {
			start++ // optional module name, not bound anywhere else
		}
	}
	end := len(toks) - 1 // exclude trailing EOF
	if start > 0 {
		end = p.matchingRParen(0)
	}

	children := p.splitChildren(start, end)

	if err := p.pass1Types(children); err != nil {
		return nil, err
	}
	if err := p.pass2Register(children); err != nil {
		return nil, err
	}
	if err := p.pass3Build(children); err != nil {
		return nil, err
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	if err := p.m.Validate(); err != nil {
		return nil, err
	}
	if err := wasm.ValidateFunctions(p.m); err != nil {
		return nil, err
	}
	return p.m, nil
}

// --- token-stream helpers ---

func (p *parser) kindAt(i int) TokenKind {
	if i < 0 || i >= len(p.toks) {
		return TokenEOF
	}
	return p.toks[i].Kind
}

func (p *parser) textAt(i int) string {
	if i < 0 || i >= len(p.toks)-1 {
		return ""
	}
	return string(p.lex.Text(i))
}

func (p *parser) wordAt(i int) string {
	if p.kindAt(i) != TokenWord {
		return ""
	}
	return p.textAt(i)
}

func (p *parser) isLParen(i int) bool { return p.kindAt(i) == TokenLParen }
func (p *parser) isRParen(i int) bool { return p.kindAt(i) == TokenRParen }

func (p *parser) errAt(i int, format string, args ...any) error {
	off := uint32(0)
	if i >= 0 && i < len(p.toks) {
		off = p.toks[i].Offset
	}
	return &ParseError{Offset: off, Locus: p.lex.Locus(off), Message: fmt.Sprintf(format, args...)}
}

// matchingRParen returns the index of the ')' matching the '(' at lp.
func (p *parser) matchingRParen(lp int) int {
	depth := 0
	for i := lp; i < len(p.toks); i++ {
		switch p.kindAt(i) {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(p.toks) - 1
}

// splitChildren collects every balanced parenthesized group directly inside
// [start, end) at depth 0 - the direct child forms of a module or a form's
// body.
func (p *parser) splitChildren(start, end int) []childSpan {
	var out []childSpan
	i := start
	for i < end {
		if p.isLParen(i) {
			rp := p.matchingRParen(i)
			out = append(out, childSpan{Start: i, End: rp + 1})
			i = rp + 1
		} else {
			i++
		}
	}
	return out
}

// keyword returns the form keyword (the word immediately after a child
// span's opening paren).
func (p *parser) keyword(c childSpan) string { return p.wordAt(c.Start + 1) }

// namesMap returns *m, initializing it first if nil, so bindName always has
// a map to write into regardless of which DisassemblyNames field is passed.
func namesMap(m *map[wasm.Index]string) map[wasm.Index]string {
	if *m == nil {
		*m = map[wasm.Index]string{}
	}
	return *m
}

// bindName records name -> idx in names, recording (but not failing on) a
// redefinition so parsing can continue (spec.md §4.G bindName). rev, when
// non-nil, receives the inverse mapping so the original identifier survives
// into Module.Names for the printer to use instead of a synthesized name.
func (p *parser) bindName(names map[string]wasm.Index, nameTok int, idx wasm.Index, rev map[wasm.Index]string) {
	if p.kindAt(nameTok) != TokenID {
		return
	}
	name := p.textAt(nameTok)
	if _, exists := names[name]; exists {
		p.errs = append(p.errs, p.errAt(nameTok, "duplicate definition of identifier %q", name))
	}
	names[name] = idx
	if rev != nil {
		rev[idx] = name[1:] // strip leading '$'
	}
}

// resolveRef accepts either a numeric index or a "$name" reference at tok
// and returns the resolved index.
func (p *parser) resolveRef(names map[string]wasm.Index, tok int) (wasm.Index, error) {
	switch p.kindAt(tok) {
	case TokenID:
		name := p.textAt(tok)
		if idx, ok := names[name]; ok {
			return idx, nil
		}
		return 0, p.errAt(tok, "unknown name %q", name)
	case TokenWord:
		v, err := ParseUint32(p.textAt(tok))
		if err != nil {
			return 0, p.errAt(tok, "expected index or identifier, got %q", p.textAt(tok))
		}
		return v, nil
	default:
		return 0, p.errAt(tok, "expected index or identifier")
	}
}

func encU32(v uint32) []byte { return leb128.EncodeUint32(v) }
func encI32(v int32) []byte  { return leb128.EncodeInt32(v) }
func encI64(v int64) []byte  { return leb128.EncodeInt64(v) }

func encU32raw4(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func encU64raw8(v uint64) []byte {
	out := encU32raw4(uint32(v))
	return append(out, encU32raw4(uint32(v>>32))...)
}
