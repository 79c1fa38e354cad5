// Package table computes the equivalence-class-compressed transition
// table codegen emits: a combined, globally-numbered state space spanning
// every lexical state's minimized DFA, a byte equivalence-class partition
// collapsing the 256-column transition table to one column per class, and
// the single transition word per (state, class) pair that encodes both
// the live continuation and, for states that no longer have one, the
// reset point a longest-match-with-backtracking scanner jumps to instead
// of keeping a separate backtrack stack at runtime.
package table

import (
	"fmt"

	"github.com/lexforge/lexforge/charclass"
	"github.com/lexforge/lexforge/dfa"
	"github.com/lexforge/lexforge/grammar"
	"github.com/lexforge/lexforge/internal/conv"
)

// acceptBit flags a transition word as a valid resting point: the
// generated scanner may stop here (emitting the token in bits 16-30)
// even though the encoded low bits continue on to a different state.
const acceptBit = uint32(0x80000000)

// stateKey identifies one DFA state across every lexical state's
// automaton, since each grammar.XState owns a wholly separate dfa.Graph.
type stateKey struct {
	xstate *grammar.XState
	local  dfa.StateID
}

// CodegenState is one combined, globally-numbered scanner state.
type CodegenState struct {
	XState *grammar.XState
	Local  dfa.StateID
	Index  int
	// Offset is the byte offset of this state's row within the flattened
	// transition table (stride 4 bytes per state).
	Offset uint32

	// resetXState/resetLocal is where a longest-match scanner should jump
	// back to once it can no longer extend the current match: the start
	// of the accepting rule's target lexical state if this state
	// accepts, or this state's own lexical state's start otherwise.
	resetXState *grammar.XState
	resetLocal  dfa.StateID
}

// Table is everything emit needs to render the transition arrays,
// equivalence-class map, token enumeration, and per-lexical-state entry
// points.
type Table struct {
	Classes []charclass.Set
	ClassOf [256]int
	// EqClassColumnOffset[b] is the byte offset of byte b's class's
	// column within the flattened transition table.
	EqClassColumnOffset [256]uint32

	States      []*CodegenState
	EntryPoints map[string]*CodegenState

	Tokens []*grammar.Token

	// Transitions[classIdx][state.Index] is the encoded transition word
	// for that (equivalence class, state) pair.
	Transitions [][]string
	// EOF[state.Index] is the encoded transition word used when input
	// ends while the scanner is in that state.
	EOF []string

	stateIndex map[stateKey]*CodegenState
}

// Build computes the full combined table for every lexical state in ctx.
func Build(ctx *grammar.Context) *Table {
	xstates := ctx.XStates()

	t := &Table{
		EntryPoints: make(map[string]*CodegenState),
		stateIndex:  make(map[stateKey]*CodegenState),
	}

	t.Classes = computeEqClasses(xstates)
	for idx, cls := range t.Classes {
		for _, b := range cls.Bytes() {
			t.ClassOf[b] = idx
		}
	}

	tokenSeen := make(map[*grammar.Token]bool)

	for _, xs := range xstates {
		var entry *CodegenState
		xs.DFA.Visit(func(id dfa.StateID) {
			cs := &CodegenState{XState: xs, Local: id, Index: len(t.States)}
			cs.Offset = conv.IntToUint32(cs.Index) * 4
			t.States = append(t.States, cs)
			t.stateIndex[stateKey{xs, id}] = cs
			if entry == nil {
				entry = cs
			}

			st := &xs.DFA.States[id]
			if st.Accept != nil {
				r := st.Accept.(*grammar.Rule)
				cs.resetXState = r.TargetState
				cs.resetLocal = r.TargetState.DFA.Start
				if !tokenSeen[r.Token] {
					tokenSeen[r.Token] = true
					t.Tokens = append(t.Tokens, r.Token)
				}
			} else {
				cs.resetXState = xs
				cs.resetLocal = xs.DFA.Start
			}
		})
		t.EntryPoints[xs.ID] = entry
	}

	numStates := len(t.States)
	for b := 0; b < 256; b++ {
		t.EqClassColumnOffset[b] = conv.IntToUint32(t.ClassOf[b]) * conv.IntToUint32(numStates) * 4
	}

	t.Transitions = make([][]string, len(t.Classes))
	for i := range t.Transitions {
		t.Transitions[i] = make([]string, numStates)
	}
	t.EOF = make([]string, numStates)

	for _, cs := range t.States {
		t.buildRow(cs)
	}

	return t
}

func (t *Table) buildRow(cs *CodegenState) {
	st := &cs.XState.DFA.States[cs.Local]
	resetSt := &cs.resetXState.DFA.States[cs.resetLocal]

	accepts := st.Accept != nil
	var tokenName string
	if accepts {
		tokenName = st.Accept.(*grammar.Rule).Token.Name
	}

	for clsIdx, cls := range t.Classes {
		rep, _ := cls.Min()
		var raw uint32
		if target := st.Trans[rep]; target != dfa.Dead {
			raw = t.stateIndex[stateKey{cs.XState, target}].Offset
		} else if resetTarget := resetSt.Trans[rep]; resetTarget != dfa.Dead {
			raw = t.stateIndex[stateKey{cs.resetXState, resetTarget}].Offset
			if accepts {
				raw |= acceptBit
			}
		}
		t.Transitions[clsIdx][cs.Index] = encodeWord(raw, accepts, tokenName)
	}

	var eofRaw uint32
	if accepts {
		eofRaw = acceptBit
	}
	t.EOF[cs.Index] = encodeWord(eofRaw, accepts, tokenName)
}

func encodeWord(raw uint32, accepts bool, tokenName string) string {
	if !accepts {
		return fmt.Sprintf("0x%x", raw)
	}
	return fmt.Sprintf("0x%x|((TOKEN(%s))<<16)", raw, tokenName)
}
