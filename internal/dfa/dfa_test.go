package dfa

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wavmgo/wavm/internal/nfa"
	"github.com/wavmgo/wavm/internal/regexcompile"
)

// buildMachine mirrors the real lexer's design: keywords are not distinct
// DFA terminals from identifiers (that would make "if" and "[a-z]+" both
// accept the input "if" in the same DFA state, an ambiguous grammar per
// P7); a single "word" terminal is reclassified against a keyword table
// after lexing, exactly as wasm/text does it.
const (
	kindWord = iota
	kindNum
)

func buildMachine(t *testing.T) *Machine {
	t.Helper()
	b := nfa.NewBuilder()
	add := func(pattern string, kind int) {
		entry, exit, err := regexcompile.Compile(b, pattern)
		require.NoError(t, err)
		b.AddEpsilon(0, entry)
		b.AddEpsilon(exit, nfa.Terminal(kind))
	}
	add("[a-z][a-z0-9]*", kindWord)
	add("[0-9]+", kindNum)

	m, err := Compile(b)
	require.NoError(t, err)
	return m
}

func TestFeedMaximalMunch(t *testing.T) {
	m := buildMachine(t)

	kind, rewind, newPos, matched := m.Feed([]byte("if"), 0)
	require.True(t, matched)
	require.False(t, rewind)
	require.Equal(t, kindWord, kind)
	require.Equal(t, 2, newPos)

	kind, _, newPos, matched = m.Feed([]byte("ifx "), 0)
	require.True(t, matched)
	require.Equal(t, kindWord, kind)
	require.Equal(t, 3, newPos)
}

func TestFeedIdentifierAndNumber(t *testing.T) {
	m := buildMachine(t)

	kind, _, newPos, matched := m.Feed([]byte("abc123 "), 0)
	require.True(t, matched)
	require.Equal(t, kindWord, kind)
	require.Equal(t, 6, newPos)

	kind, _, newPos, matched = m.Feed([]byte("4242x"), 0)
	require.True(t, matched)
	require.Equal(t, kindNum, kind)
	require.Equal(t, 4, newPos)
}

func TestFeedNoMatch(t *testing.T) {
	m := buildMachine(t)
	_, _, _, matched := m.Feed([]byte("!!!"), 0)
	require.False(t, matched)
}

func TestCompileRejectsAmbiguousGrammar(t *testing.T) {
	b := nfa.NewBuilder()
	e1, x1, err := regexcompile.Compile(b, "a")
	require.NoError(t, err)
	b.AddEpsilon(0, e1)
	b.AddEpsilon(x1, nfa.Terminal(0))

	e2, x2, err := regexcompile.Compile(b, "a")
	require.NoError(t, err)
	b.AddEpsilon(0, e2)
	b.AddEpsilon(x2, nfa.Terminal(1))

	_, err = Compile(b)
	require.Error(t, err)
}

func TestNumClassesCompressedBelowFull256(t *testing.T) {
	m := buildMachine(t)
	require.Less(t, m.NumClasses, 256)
}
