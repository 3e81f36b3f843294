package nfa

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wavmgo/wavm/internal/charset"
)

func TestTerminalRoundTrip(t *testing.T) {
	for kind := 0; kind < 5; kind++ {
		term := Terminal(kind)
		plain, ok := IsTerminal(term)
		require.True(t, ok)
		require.Equal(t, kind, TerminalKind(plain))
	}
}

func TestIsTerminalWithFlag(t *testing.T) {
	term := Terminal(3) | EdgeDoesntConsumeInputFlag
	plain, ok := IsTerminal(term)
	require.True(t, ok)
	require.Equal(t, 3, TerminalKind(plain))
}

func TestIsTerminalFalseForState(t *testing.T) {
	_, ok := IsTerminal(StateIndex(2))
	require.False(t, ok)
}

func TestBuilderAddStateAndEdge(t *testing.T) {
	b := NewBuilder()
	require.Equal(t, 1, b.NumStates())

	s1 := b.AddState()
	require.Equal(t, StateIndex(1), s1)
	require.Equal(t, 2, b.NumStates())

	b.AddEdge(0, charset.Range('a', 'z'), s1)
	edges := b.Edges(0)
	require.Len(t, edges, 1)
	require.Equal(t, s1, edges[0].To)
}

func TestEpsilonClosure(t *testing.T) {
	b := NewBuilder()
	s1 := b.AddState()
	s2 := b.AddState()
	b.AddEpsilon(0, s1)
	b.AddEpsilon(s1, s2)

	closure := b.EpsilonClosure([]StateIndex{0})
	require.ElementsMatch(t, []StateIndex{0, s1, s2}, closure)
}

func TestEpsilonClosureStopsAtTerminal(t *testing.T) {
	b := NewBuilder()
	term := Terminal(1)
	b.AddEpsilon(0, term)

	closure := b.EpsilonClosure([]StateIndex{0})
	require.ElementsMatch(t, []StateIndex{0, term}, closure)
}
