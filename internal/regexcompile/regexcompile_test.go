package regexcompile

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wavmgo/wavm/internal/nfa"
)

// accepts walks the compiled NFA by hand (a tiny interpreter, independent of the
// DFA compiler) to check whether s is accepted between entry and exit.
func accepts(b *nfa.Builder, entry, exit nfa.StateIndex, s string) bool {
	current := b.EpsilonClosure([]nfa.StateIndex{entry})
	for i := 0; i < len(s); i++ {
		var next []nfa.StateIndex
		for _, st := range current {
			if st < 0 {
				continue
			}
			for _, e := range b.Edges(st) {
				if e.Chars.Contains(s[i]) {
					next = append(next, e.To)
				}
			}
		}
		current = b.EpsilonClosure(next)
		if len(current) == 0 {
			return false
		}
	}
	for _, st := range current {
		if st == exit {
			return true
		}
	}
	return false
}

func TestCompileLiteralConcat(t *testing.T) {
	b := nfa.NewBuilder()
	entry, exit, err := Compile(b, "abc")
	require.NoError(t, err)
	require.True(t, accepts(b, entry, exit, "abc"))
	require.False(t, accepts(b, entry, exit, "ab"))
	require.False(t, accepts(b, entry, exit, "abd"))
}

func TestCompileAlternation(t *testing.T) {
	b := nfa.NewBuilder()
	entry, exit, err := Compile(b, "cat|dog")
	require.NoError(t, err)
	require.True(t, accepts(b, entry, exit, "cat"))
	require.True(t, accepts(b, entry, exit, "dog"))
	require.False(t, accepts(b, entry, exit, "bird"))
}

func TestCompileStarPlusOptional(t *testing.T) {
	b := nfa.NewBuilder()
	entry, exit, err := Compile(b, "a*b+c?")
	require.NoError(t, err)
	require.True(t, accepts(b, entry, exit, "b"))
	require.True(t, accepts(b, entry, exit, "aaabbb"))
	require.True(t, accepts(b, entry, exit, "bc"))
	require.False(t, accepts(b, entry, exit, "a"))
}

func TestCompileCharClass(t *testing.T) {
	b := nfa.NewBuilder()
	entry, exit, err := Compile(b, "[0-9]+")
	require.NoError(t, err)
	require.True(t, accepts(b, entry, exit, "0"))
	require.True(t, accepts(b, entry, exit, "12345"))
	require.False(t, accepts(b, entry, exit, ""))
	require.False(t, accepts(b, entry, exit, "a"))
}

func TestCompileNegatedCharClass(t *testing.T) {
	b := nfa.NewBuilder()
	entry, exit, err := Compile(b, "[^0-9]")
	require.NoError(t, err)
	require.True(t, accepts(b, entry, exit, "a"))
	require.False(t, accepts(b, entry, exit, "5"))
}

func TestCompileGroupAndEscapes(t *testing.T) {
	b := nfa.NewBuilder()
	entry, exit, err := Compile(b, `(\d\d)+`)
	require.NoError(t, err)
	require.True(t, accepts(b, entry, exit, "12"))
	require.True(t, accepts(b, entry, exit, "1234"))
	require.False(t, accepts(b, entry, exit, "1"))
}

func TestCompileAnyByte(t *testing.T) {
	b := nfa.NewBuilder()
	entry, exit, err := Compile(b, ".")
	require.NoError(t, err)
	require.True(t, accepts(b, entry, exit, "x"))
	require.False(t, accepts(b, entry, exit, "\n"))
}

func TestCompileErrorUnterminatedGroup(t *testing.T) {
	b := nfa.NewBuilder()
	_, _, err := Compile(b, "(ab")
	require.Error(t, err)
}

func TestCompileErrorUnterminatedClass(t *testing.T) {
	b := nfa.NewBuilder()
	_, _, err := Compile(b, "[ab")
	require.Error(t, err)
}
