// Package nfa implements the NFA builder that the regex compiler appends
// sub-automata to and that the DFA compiler subset-constructs from.
//
// Grounded on WAVM's Source/WAST/NFA.cpp / Include/WAVM/NFA/NFA.h: states are
// indices into a growing vector, edges carry a character-set predicate, and
// terminal (accepting) states are encoded as negative state numbers so a
// single int can distinguish "go to state N" from "accept token kind K"
// without a variant type.
package nfa

import "github.com/wavmgo/wavm/internal/charset"

// StateIndex identifies an NFA state. Non-negative values index into
// Builder.states. Negative values, per terminal(kind), identify acceptance
// of a token kind instead of a further state.
type StateIndex int32

// MaxTerminal bounds how many distinct token kinds the encoding can
// represent and is the zero point terminal kinds are subtracted from. It is
// the largest negative value with EdgeDoesntConsumeInputFlag clear, so that
// the flag can be OR'd onto any terminal and masked off again.
const MaxTerminal StateIndex = -1 &^ EdgeDoesntConsumeInputFlag

// EdgeDoesntConsumeInputFlag, OR'd onto a terminal StateIndex, tells the
// lexer's DFA driver to back up one byte before reporting that terminal -
// used by tokens (like `)`/whitespace lookahead) whose final byte belongs to
// the next token.
const EdgeDoesntConsumeInputFlag StateIndex = 1 << 30

// Terminal returns the StateIndex that represents accepting token kind.
func Terminal(kind int) StateIndex {
	return MaxTerminal - StateIndex(kind)
}

// IsTerminal reports whether s is a terminal state (including one carrying
// EdgeDoesntConsumeInputFlag) and, if so, the plain terminal without the
// flag.
func IsTerminal(s StateIndex) (plain StateIndex, ok bool) {
	if s >= 0 {
		return 0, false
	}
	return s &^ EdgeDoesntConsumeInputFlag, true
}

// TerminalKind extracts the token kind encoded by a terminal StateIndex
// (which must satisfy IsTerminal).
func TerminalKind(terminal StateIndex) int {
	return int(MaxTerminal - (terminal &^ EdgeDoesntConsumeInputFlag))
}

type edge struct {
	chars charset.Set
	to    StateIndex
}

type state struct {
	edges    []edge
	epsilons []StateIndex
}

// Builder accumulates NFA states and edges. The initial state is always 0.
type Builder struct {
	states []state
}

// NewBuilder returns a Builder whose only state is the initial state 0.
func NewBuilder() *Builder {
	b := &Builder{}
	b.AddState()
	return b
}

// AddState appends a new, edgeless state and returns its index.
func (b *Builder) AddState() StateIndex {
	b.states = append(b.states, state{})
	return StateIndex(len(b.states) - 1)
}

// AddEdge adds a transition from -> to labelled by chars. to may be a
// terminal StateIndex.
func (b *Builder) AddEdge(from StateIndex, chars charset.Set, to StateIndex) {
	b.states[from].edges = append(b.states[from].edges, edge{chars: chars, to: to})
}

// AddEpsilon adds an unlabelled (epsilon) transition from -> to.
func (b *Builder) AddEpsilon(from, to StateIndex) {
	b.states[from].epsilons = append(b.states[from].epsilons, to)
}

// NumStates returns the number of non-terminal states registered so far.
func (b *Builder) NumStates() int {
	return len(b.states)
}

// EpsilonClosure returns the set of states reachable from any state in seed
// via zero or more epsilon edges, seed included. Terminal states are kept as
// leaves of the closure (they have no outgoing edges to traverse).
func (b *Builder) EpsilonClosure(seed []StateIndex) []StateIndex {
	seen := map[StateIndex]bool{}
	var stack, result []StateIndex
	for _, s := range seed {
		if !seen[s] {
			seen[s] = true
			stack = append(stack, s)
			result = append(result, s)
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s < 0 {
			continue // terminal states have no epsilons
		}
		for _, next := range b.states[s].epsilons {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
				result = append(result, next)
			}
		}
	}
	return result
}

// Edges returns the labelled out-edges of state s.
func (b *Builder) Edges(s StateIndex) []struct {
	Chars charset.Set
	To    StateIndex
} {
	es := b.states[s].edges
	out := make([]struct {
		Chars charset.Set
		To    StateIndex
	}, len(es))
	for i, e := range es {
		out[i].Chars = e.chars
		out[i].To = e.to
	}
	return out
}
