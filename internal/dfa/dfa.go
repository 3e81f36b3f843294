// Package dfa subset-constructs a deterministic automaton from an nfa
// builder and then compresses its dispatch table by merging bytes whose
// transition columns are identical into equivalence classes.
//
// Grounded on WAVM's Source/WAST/NFA.cpp (NFA::createMachine): standard
// subset construction followed by a column-equivalence pass that keeps the
// generated transition table a few tens of kilobytes even though the
// alphabet nominally has 256 symbols. Lexing is maximal-munch: a DFA state
// may be simultaneously accepting and have further outgoing transitions (so
// "if" and a longer identifier starting with "if" are told apart), so Feed
// tracks the most recent accepting state seen while still following
// transitions, and backtracks to it when the run of matches ends.
package dfa

import (
	"fmt"
	"sort"

	"github.com/wavmgo/wavm/internal/nfa"
)

// NoAccept marks a DFA state (or the absence of any accepted prefix) that
// does not accept any token kind.
const NoAccept int32 = -1

// NoTransition marks a (state, class) pair with no outgoing edge.
const NoTransition int32 = -1

// Machine is the compiled, immutable dispatch table for a DFA.
type Machine struct {
	// CharToOffset maps each input byte to the equivalence-class column used
	// to index NextState from a given state.
	CharToOffset [256]int32
	// NextState is the packed state x class transition table; NoTransition
	// marks "no edge".
	NextState []int32
	// AcceptKind[s] is the token kind accepted on entering state s, or
	// NoAccept if s is not accepting.
	AcceptKind []int32
	// AcceptRewind[s] is true if, on accepting in state s, the lexer must
	// back up one byte before reporting the token (the matched state's
	// final transition consumed a byte that belongs to the next token).
	AcceptRewind []bool
	NumStates    int
	NumClasses   int
}

// stateSet is a sorted, deduplicated set of NFA state indices, used as a DFA
// state during subset construction; it also doubles as a comparable map key
// via its string encoding.
type stateSet struct {
	states []nfa.StateIndex
}

func newStateSet(states []nfa.StateIndex) stateSet {
	cp := append([]nfa.StateIndex(nil), states...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := cp[:0]
	var last nfa.StateIndex
	first := true
	for _, s := range cp {
		if first || s != last {
			out = append(out, s)
			last = s
			first = false
		}
	}
	return stateSet{states: out}
}

func (s stateSet) key() string {
	b := make([]byte, 0, len(s.states)*5)
	for _, st := range s.states {
		b = append(b, byte(st), byte(st>>8), byte(st>>16), byte(st>>24), ',')
	}
	return string(b)
}

// Compile subset-constructs a DFA from b starting at NFA state 0 and
// compresses the byte alphabet into equivalence classes. It fails if any
// reachable DFA state would need to accept two different terminal kinds
// simultaneously (an ambiguous token grammar, P7).
func Compile(b *nfa.Builder) (*Machine, error) {
	start := newStateSet(b.EpsilonClosure([]nfa.StateIndex{0}))

	type dfaState struct {
		set           stateSet
		acceptKind    int32
		acceptRewind  bool
	}

	indexOf := map[string]int{}
	var states []dfaState
	var queue []int

	register := func(ss stateSet) (int, error) {
		k := ss.key()
		if idx, ok := indexOf[k]; ok {
			return idx, nil
		}
		kind, rewind, err := acceptFor(ss)
		if err != nil {
			return 0, err
		}
		idx := len(states)
		indexOf[k] = idx
		states = append(states, dfaState{set: ss, acceptKind: kind, acceptRewind: rewind})
		queue = append(queue, idx)
		return idx, nil
	}

	if _, err := register(start); err != nil {
		return nil, err
	}

	transitions := make([][256]int, 1)
	transitions[0] = blankRow()

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for len(transitions) <= cur {
			transitions = append(transitions, blankRow())
		}
		for c := 0; c < 256; c++ {
			var next []nfa.StateIndex
			for _, st := range states[cur].set.states {
				if st < 0 {
					continue // terminal states have no out-edges
				}
				for _, e := range b.Edges(st) {
					if e.Chars.Contains(byte(c)) {
						next = append(next, e.To)
					}
				}
			}
			if len(next) == 0 {
				continue
			}
			closure := newStateSet(b.EpsilonClosure(next))
			idx, err := register(closure)
			if err != nil {
				return nil, err
			}
			for len(transitions) <= cur {
				transitions = append(transitions, blankRow())
			}
			transitions[cur][c] = idx
		}
	}
	for len(transitions) < len(states) {
		transitions = append(transitions, blankRow())
	}

	// Per-byte column equivalence-class compression: two bytes are
	// interchangeable iff, for every DFA state, they transition (or don't)
	// identically.
	classOf := make([]int, 256)
	var reps []int
	for c := 0; c < 256; c++ {
		found := -1
		for ci, rep := range reps {
			if columnsEqual(transitions, rep, c, len(states)) {
				found = ci
				break
			}
		}
		if found == -1 {
			found = len(reps)
			reps = append(reps, c)
		}
		classOf[c] = found
	}
	numClasses := len(reps)

	m := &Machine{NumStates: len(states), NumClasses: numClasses}
	for c := 0; c < 256; c++ {
		m.CharToOffset[c] = int32(classOf[c])
	}
	m.NextState = make([]int32, len(states)*numClasses)
	m.AcceptKind = make([]int32, len(states))
	m.AcceptRewind = make([]bool, len(states))
	for s := 0; s < len(states); s++ {
		m.AcceptKind[s] = states[s].acceptKind
		m.AcceptRewind[s] = states[s].acceptRewind
		for cl, rep := range reps {
			next := transitions[s][rep]
			if next < 0 {
				m.NextState[s*numClasses+cl] = NoTransition
			} else {
				m.NextState[s*numClasses+cl] = int32(next)
			}
		}
	}
	return m, nil
}

func blankRow() [256]int {
	var r [256]int
	for i := range r {
		r[i] = -1
	}
	return r
}

func columnsEqual(transitions [][256]int, a, b, numStates int) bool {
	for s := 0; s < numStates; s++ {
		if transitions[s][a] != transitions[s][b] {
			return false
		}
	}
	return true
}

// acceptFor inspects a DFA state's constituent NFA states and returns the
// token kind it accepts (NoAccept if none) and whether acceptance should
// rewind one byte. Two distinct terminal NFA states in the same DFA state is
// an ambiguous grammar and is rejected (P7).
func acceptFor(ss stateSet) (kind int32, rewind bool, err error) {
	var found *nfa.StateIndex
	for _, st := range ss.states {
		if st >= 0 {
			continue
		}
		plain, _ := nfa.IsTerminal(st)
		if found != nil {
			foundPlain, _ := nfa.IsTerminal(*found)
			if foundPlain != plain {
				return 0, false, fmt.Errorf(
					"dfa: ambiguous grammar: state simultaneously accepts token kinds %d and %d",
					nfa.TerminalKind(foundPlain), nfa.TerminalKind(plain))
			}
			continue
		}
		s := st
		found = &s
	}
	if found == nil {
		return NoAccept, false, nil
	}
	plain, _ := nfa.IsTerminal(*found)
	return int32(nfa.TerminalKind(plain)), *found&nfa.EdgeDoesntConsumeInputFlag != 0, nil
}

// Feed runs the hottest loop of the lexer: starting at state 0, consumes
// bytes of src[pos:] with maximal munch, returning the longest accepted
// token kind, whether the match's final byte was unconsumed lookahead, and
// the position just past the consumed bytes.
func (m *Machine) Feed(src []byte, pos int) (kind int, rewind bool, newPos int, matched bool) {
	state := 0
	lastAcceptPos := -1
	var lastKind int32 = NoAccept
	var lastRewind bool
	i := pos
	if m.AcceptKind[state] != NoAccept {
		lastAcceptPos = i
		lastKind = m.AcceptKind[state]
		lastRewind = m.AcceptRewind[state]
	}
	for ; i < len(src); i++ {
		cls := m.CharToOffset[src[i]]
		next := m.NextState[state*m.NumClasses+int(cls)]
		if next == NoTransition {
			break
		}
		state = int(next)
		i2 := i + 1
		if m.AcceptKind[state] != NoAccept {
			lastAcceptPos = i2
			lastKind = m.AcceptKind[state]
			lastRewind = m.AcceptRewind[state]
		}
	}
	if lastAcceptPos < 0 {
		return 0, false, pos, false
	}
	end := lastAcceptPos
	if lastRewind {
		end--
	}
	return int(lastKind), lastRewind, end, true
}
