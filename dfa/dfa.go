// Package dfa builds a deterministic automaton out of an NFA graph by
// subset construction, and minimizes it by partition refinement. The
// subset construction is driven by Tarjan SCC decomposition of the NFA's
// ε-transition graph rather than a direct ε-closure fixpoint per state:
// each SCC's ε-closure is computed exactly once, in Tarjan's natural
// closing order, instead of being recomputed by every state that can
// reach it.
package dfa

import (
	"sort"

	"github.com/lexforge/lexforge/nfa"
)

// StateID indexes a state within a Graph's arena.
type StateID int

// Dead marks the absence of a transition.
const Dead StateID = -1

// Rule is the accept annotation a DFA state can carry, propagated from the
// NFA states folded into its subset. Grammar rules satisfy this interface;
// it is declared narrowly here so dfa never needs to import grammar.
type Rule interface {
	// Order is this rule's priority: when several rules' NFA accept
	// states land in the same DFA subset, the one with the smallest
	// Order wins.
	Order() int
	// SameAccept reports whether two rules are interchangeable as a DFA
	// state's accept annotation — used by minimization's initial
	// partition split. Two non-identical rules may still compare equal
	// here if they'd emit the same (token, target lexical state) pair.
	SameAccept(other Rule) bool
}

// State is one DFA state: a dense transition table over the full byte
// alphabet, plus an optional accept annotation.
type State struct {
	Trans  [256]StateID
	Accept Rule
}

// Graph is an arena of DFA states, built by subset construction from an
// nfa.Graph and a start state.
type Graph struct {
	States []State
	Start  StateID
}

// Visit walks every state reachable from Start via non-dead transitions
// exactly once, calling fn on each. Used to collect which rules ever
// contribute an accept state and which can be reached on a non-final
// transition, for the unused/EOF-only rule diagnostics.
func (g *Graph) Visit(fn func(StateID)) {
	if len(g.States) == 0 {
		return
	}
	visited := make([]bool, len(g.States))
	stack := []StateID{g.Start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == Dead || visited[id] {
			continue
		}
		visited[id] = true
		fn(id)
		for _, to := range g.States[id].Trans {
			stack = append(stack, to)
		}
	}
}

// Build runs subset construction over g starting at start, producing a
// (non-minimized) Graph.
func Build(g *nfa.Graph, start nfa.StateID) *Graph {
	tr := runTarjan(g, start)
	b := &subsetBuilder{nfaGraph: g, tarjan: tr, powerset: make(map[string]StateID)}
	startSCC := tr.sccOf[start]
	b.graph.Start = b.stateForClosure(tr.sccs[startSCC].closure)
	b.process()
	return &b.graph
}

type subsetBuilder struct {
	nfaGraph *nfa.Graph
	tarjan   *tarjanResult
	graph    Graph
	powerset map[string]StateID
	worklist []StateID
	// pendingClosures holds, parallel to worklist, the SCC-index closure
	// each not-yet-processed DFA state corresponds to.
	pendingClosures [][]sccIndex
}

func closureKey(closure []sccIndex) string {
	b := make([]byte, 0, len(closure)*5)
	for i, c := range closure {
		if i > 0 {
			b = append(b, ',')
		}
		b = appendInt(b, int(c))
	}
	return string(b)
}

func appendInt(b []byte, n int) []byte {
	if n == 0 {
		return append(b, '0')
	}
	start := len(b)
	for n > 0 {
		b = append(b, byte('0'+n%10))
		n /= 10
	}
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

// stateForClosure returns the DFA state for this closure (a union of SCC
// indices), allocating and enqueueing it for processing if new.
func (b *subsetBuilder) stateForClosure(closure []sccIndex) StateID {
	key := closureKey(closure)
	if id, ok := b.powerset[key]; ok {
		return id
	}
	id := StateID(len(b.graph.States))
	s := State{}
	for i := range s.Trans {
		s.Trans[i] = Dead
	}
	b.graph.States = append(b.graph.States, s)
	b.powerset[key] = id
	b.worklist = append(b.worklist, id)
	b.pendingClosures = append(b.pendingClosures, closure)
	return id
}

func (b *subsetBuilder) process() {
	for i := 0; i < len(b.worklist); i++ {
		b.processState(b.worklist[i], b.pendingClosures[i])
	}
}

func (b *subsetBuilder) processState(id StateID, closure []sccIndex) {
	var transitions [256][]sccIndex
	var accepts []Rule

	for _, scc := range closure {
		for _, nstate := range b.tarjan.sccs[scc].states {
			st := b.nfaGraph.State(nstate)
			if st.Rule != nil {
				accepts = append(accepts, st.Rule.(Rule))
			}
			for _, t := range st.Trans {
				targetSCC := b.tarjan.sccOf[t.To]
				targetClosure := b.tarjan.sccs[targetSCC].closure
				for _, by := range t.Class.Bytes() {
					transitions[by] = unionSCC(transitions[by], targetClosure)
				}
			}
		}
	}

	for by := 0; by < 256; by++ {
		if len(transitions[by]) == 0 {
			continue
		}
		b.graph.States[id].Trans[by] = b.stateForClosure(transitions[by])
	}

	if len(accepts) > 0 {
		best := accepts[0]
		for _, r := range accepts[1:] {
			if r.Order() < best.Order() {
				best = r
			}
		}
		b.graph.States[id].Accept = best
	}
}

// unionSCC merges two sorted, deduplicated sccIndex slices.
func unionSCC(a, b []sccIndex) []sccIndex {
	if len(a) == 0 {
		out := make([]sccIndex, len(b))
		copy(out, b)
		return out
	}
	set := make(map[sccIndex]bool, len(a)+len(b))
	for _, x := range a {
		set[x] = true
	}
	for _, x := range b {
		set[x] = true
	}
	out := make([]sccIndex, 0, len(set))
	for x := range set {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
