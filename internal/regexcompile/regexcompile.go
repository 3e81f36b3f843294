// Package regexcompile parses a POSIX-like regular expression and appends
// the corresponding Thompson-construction sub-automaton to an nfa.Builder.
//
// Grounded on WAVM's NFA::Builder usage in Source/WAST/Lexer.cpp, which
// builds the token DFA from a table of regex-like patterns. Supported
// grammar: concatenation, `|` alternation, `*` `+` `?` quantifiers, grouping
// with `(` `)`, character classes `[...]` with ranges and `^` negation, the
// escapes `\n \r \t \f \\ \" \' \-`, `.` (any byte except newline), and
// `\d` / `\D`.
package regexcompile

import (
	"fmt"

	"github.com/wavmgo/wavm/internal/charset"
	"github.com/wavmgo/wavm/internal/nfa"
)

// Compile parses pattern and adds its Thompson-construction sub-automaton to
// b, returning the entry and exit states. A match of the whole token is
// recognized by the caller adding an edge (or epsilon) from exit to a
// terminal state.
func Compile(b *nfa.Builder, pattern string) (entry, exit nfa.StateIndex, err error) {
	p := &parser{src: pattern, b: b}
	entry, exit, err = p.parseAlternation()
	if err != nil {
		return 0, 0, err
	}
	if p.pos != len(p.src) {
		return 0, 0, fmt.Errorf("regexcompile: unexpected %q at offset %d", p.src[p.pos], p.pos)
	}
	return entry, exit, nil
}

type parser struct {
	src      string
	pos      int
	b        *nfa.Builder
	lastExit nfa.StateIndex
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *parser) advance() byte {
	c := p.src[p.pos]
	p.pos++
	return c
}

// parseAlternation := concat ('|' concat)*
func (p *parser) parseAlternation() (entry, exit nfa.StateIndex, err error) {
	entry, exit, err = p.parseConcat()
	if err != nil {
		return
	}
	for {
		c, ok := p.peek()
		if !ok || c != '|' {
			return entry, exit, nil
		}
		p.advance()
		e2, x2, err2 := p.parseConcat()
		if err2 != nil {
			return 0, 0, err2
		}
		newEntry := p.b.AddState()
		newExit := p.b.AddState()
		p.b.AddEpsilon(newEntry, entry)
		p.b.AddEpsilon(newEntry, e2)
		p.b.AddEpsilon(exit, newExit)
		p.b.AddEpsilon(x2, newExit)
		entry, exit = newEntry, newExit
	}
}

// parseConcat := quantified*
func (p *parser) parseConcat() (entry, exit nfa.StateIndex, err error) {
	entry = p.b.AddState()
	exit = entry
	first := true
	for {
		c, ok := p.peek()
		if !ok || c == '|' || c == ')' {
			if first {
				// empty concatenation matches empty string
				return entry, exit, nil
			}
			return entry, exit, nil
		}
		e, x, err2 := p.parseQuantified()
		if err2 != nil {
			return 0, 0, err2
		}
		if first {
			entry = e
			exit = x
			first = false
		} else {
			p.b.AddEpsilon(exit, e)
			exit = x
		}
	}
}

// parseQuantified := atom ('*' | '+' | '?')?
func (p *parser) parseQuantified() (entry, exit nfa.StateIndex, err error) {
	entry, exit, err = p.parseAtom()
	if err != nil {
		return
	}
	c, ok := p.peek()
	if !ok {
		return entry, exit, nil
	}
	switch c {
	case '*':
		p.advance()
		newEntry := p.b.AddState()
		newExit := p.b.AddState()
		p.b.AddEpsilon(newEntry, entry)
		p.b.AddEpsilon(newEntry, newExit)
		p.b.AddEpsilon(exit, entry)
		p.b.AddEpsilon(exit, newExit)
		return newEntry, newExit, nil
	case '+':
		p.advance()
		newExit := p.b.AddState()
		p.b.AddEpsilon(exit, entry)
		p.b.AddEpsilon(exit, newExit)
		return entry, newExit, nil
	case '?':
		p.advance()
		newEntry := p.b.AddState()
		newExit := p.b.AddState()
		p.b.AddEpsilon(newEntry, entry)
		p.b.AddEpsilon(newEntry, newExit)
		p.b.AddEpsilon(exit, newExit)
		return newEntry, newExit, nil
	}
	return entry, exit, nil
}

// parseAtom := '(' alternation ')' | charclass | escape | '.' | literal
func (p *parser) parseAtom() (entry, exit nfa.StateIndex, err error) {
	c, ok := p.peek()
	if !ok {
		return 0, 0, fmt.Errorf("regexcompile: unexpected end of pattern")
	}
	switch c {
	case '(':
		p.advance()
		entry, exit, err = p.parseAlternation()
		if err != nil {
			return 0, 0, err
		}
		if c2, ok2 := p.peek(); !ok2 || c2 != ')' {
			return 0, 0, fmt.Errorf("regexcompile: expected ')' at offset %d", p.pos)
		}
		p.advance()
		return entry, exit, nil
	case '[':
		set, err2 := p.parseCharClass()
		if err2 != nil {
			return 0, 0, err2
		}
		return p.addEdgeAtom(set), p.lastExit, nil
	case '.':
		p.advance()
		set := charset.Full.Intersect(charset.Single('\n').Complement())
		return p.addEdgeAtom(set), p.lastExit, nil
	case '\\':
		set, err2 := p.parseEscape()
		if err2 != nil {
			return 0, 0, err2
		}
		return p.addEdgeAtom(set), p.lastExit, nil
	default:
		p.advance()
		return p.addEdgeAtom(charset.Single(c)), p.lastExit, nil
	}
}

// addEdgeAtom is a helper that creates entry/exit states joined by a single
// labelled edge and stashes the exit for callers above that only have room
// to return one value from a switch case in Go without a second variable.
func (p *parser) addEdgeAtom(set charset.Set) nfa.StateIndex {
	entry := p.b.AddState()
	exit := p.b.AddState()
	p.b.AddEdge(entry, set, exit)
	p.lastExit = exit
	return entry
}

func (p *parser) parseEscape() (charset.Set, error) {
	p.advance() // consume backslash
	c, ok := p.peek()
	if !ok {
		return charset.Set{}, fmt.Errorf("regexcompile: dangling escape at offset %d", p.pos)
	}
	p.advance()
	switch c {
	case 'n':
		return charset.Single('\n'), nil
	case 'r':
		return charset.Single('\r'), nil
	case 't':
		return charset.Single('\t'), nil
	case 'f':
		return charset.Single('\f'), nil
	case '\\', '"', '\'', '-', '(', ')', '[', ']', '.', '*', '+', '?', '|':
		return charset.Single(c), nil
	case 'd':
		return charset.Range('0', '9'), nil
	case 'D':
		return charset.Range('0', '9').Complement(), nil
	default:
		return charset.Single(c), nil
	}
}

func (p *parser) parseCharClass() (charset.Set, error) {
	p.advance() // consume '['
	var negate bool
	if c, ok := p.peek(); ok && c == '^' {
		negate = true
		p.advance()
	}
	var set charset.Set
	first := true
	for {
		c, ok := p.peek()
		if !ok {
			return charset.Set{}, fmt.Errorf("regexcompile: unterminated character class")
		}
		if c == ']' && !first {
			p.advance()
			break
		}
		first = false
		var lo byte
		if c == '\\' {
			s, err := p.parseEscape()
			if err != nil {
				return charset.Set{}, err
			}
			b, _ := s.Min()
			lo = b
		} else {
			p.advance()
			lo = c
		}
		if c2, ok2 := p.peek(); ok2 && c2 == '-' {
			// could be a range, unless '-' is immediately followed by ']'
			save := p.pos
			p.advance()
			if c3, ok3 := p.peek(); ok3 && c3 != ']' {
				var hi byte
				if c3 == '\\' {
					s, err := p.parseEscape()
					if err != nil {
						return charset.Set{}, err
					}
					b, _ := s.Min()
					hi = b
				} else {
					p.advance()
					hi = c3
				}
				set.AddRange(lo, hi)
				continue
			}
			p.pos = save
		}
		set.Add(lo)
	}
	if negate {
		set = set.Complement()
	}
	return set, nil
}
