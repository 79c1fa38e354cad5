// Package nfa implements the mutable NFA (nondeterministic finite
// automaton) graph regex fragments are compiled into: states hold a list
// of ε-successors and a list of labeled (character-class) successors, plus
// an optional back-pointer to the accepting rule. States live in a single
// arena indexed by StateID rather than as individually heap-allocated,
// pointer-linked nodes, so subgraphs can be cloned and traversed with
// explicit worklists instead of recursion.
package nfa

import (
	"fmt"

	"github.com/lexforge/lexforge/charclass"
)

// StateID indexes a state within a Graph's arena.
type StateID uint32

// InvalidState is returned where no state exists.
const InvalidState StateID = 0xFFFFFFFF

// Rule is the accepting annotation a state can carry. It is opaque to this
// package — nfa never interprets a Rule, it only carries the pointer so
// the DFA subset construction can collect it later. The concrete type is
// *grammar.Rule; it is declared as `any` here to avoid an import cycle
// between nfa and grammar.
type Rule = any

// State is one node of the NFA graph.
type State struct {
	// EpsilonTo lists states reachable without consuming a byte.
	EpsilonTo []StateID
	// Trans lists labeled transitions: consuming any byte in Class moves
	// to To. A state may have several Trans entries (built up by distinct
	// rx.Char fragments sharing an entry state); they are not required to
	// be disjoint — a DFA subset construction resolves overlaps.
	Trans []Trans
	// Rule is non-nil exactly when this state is the dedicated accept
	// state of one rule (every accept state belongs to exactly one rule;
	// states are never shared between rules).
	Rule Rule
}

// Trans is one labeled transition out of a State.
type Trans struct {
	Class charclass.Set
	To    StateID
}

// Graph is an arena of NFA states. The zero value is an empty graph.
type Graph struct {
	states []State
}

// NewState allocates a fresh state with no transitions and returns its id.
func (g *Graph) NewState() StateID {
	id := StateID(len(g.states))
	g.states = append(g.states, State{})
	return id
}

// State returns a pointer to the state's mutable record. Panics on an
// out-of-range id — every id handed out by this package or produced by
// Clone is guaranteed valid for its own Graph.
func (g *Graph) State(id StateID) *State {
	if int(id) >= len(g.states) {
		panic(fmt.Sprintf("nfa: state %d out of range (have %d states)", id, len(g.states)))
	}
	return &g.states[id]
}

// Len returns the number of states in the arena.
func (g *Graph) Len() int {
	return len(g.states)
}

// AddEpsilon adds an ε-transition from -> to.
func (g *Graph) AddEpsilon(from, to StateID) {
	s := g.State(from)
	s.EpsilonTo = append(s.EpsilonTo, to)
}

// AddTrans adds a labeled transition from -> to on every byte in class.
func (g *Graph) AddTrans(from StateID, class charclass.Set, to StateID) {
	s := g.State(from)
	s.Trans = append(s.Trans, Trans{Class: class, To: to})
}

// SetRule marks id as the accept state of rule.
func (g *Graph) SetRule(id StateID, rule Rule) {
	g.State(id).Rule = rule
}

// Visit walks every state reachable from start via ε- or labeled
// transitions exactly once, in a depth-first order, calling fn on each.
// Implemented with an explicit stack rather than recursion: pathological
// grammars can build deep chains of concatenations or repetitions, and a
// recursive walk would blow the goroutine stack on those.
func (g *Graph) Visit(start StateID, fn func(StateID)) {
	visited := make(map[StateID]bool)
	stack := []StateID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		fn(id)
		s := g.State(id)
		stack = append(stack, s.EpsilonTo...)
		for _, t := range s.Trans {
			stack = append(stack, t.To)
		}
	}
}

// Clone copies the subgraph reachable from begin (inclusive of end, which
// is assumed reachable) into this same arena, returning the cloned
// (begin, end) pair. Every reachable state is duplicated exactly once
// (an identity map keyed by source StateID, built iteratively) so the
// clone has the same shape as the original — this is what lets a
// Fragment be built once and instantiated many times at distinct call
// sites without the instances aliasing each other's transitions.
func (g *Graph) Clone(begin, end StateID) (StateID, StateID) {
	remap := make(map[StateID]StateID)

	var getClone func(StateID) StateID
	getClone = func(id StateID) StateID {
		if cloned, ok := remap[id]; ok {
			return cloned
		}
		cloned := g.NewState()
		remap[id] = cloned
		return cloned
	}

	// First pass: assign a clone id to every reachable state so that
	// later AddEpsilon/AddTrans calls below see dense, addressable ids
	// even for structures that only appear deeper in the walk.
	var order []StateID
	g.Visit(begin, func(id StateID) { order = append(order, id) })
	for _, id := range order {
		getClone(id)
	}

	for _, id := range order {
		src := g.State(id)
		// src may be invalidated by append-driven reallocation inside
		// NewState, so re-fetch after any allocation; here there is none
		// left to do (ids were pre-assigned above), only edges to copy.
		cloned := remap[id]
		for _, to := range src.EpsilonTo {
			g.AddEpsilon(cloned, getClone(to))
		}
		for _, t := range src.Trans {
			g.AddTrans(cloned, t.Class, getClone(t.To))
		}
		g.State(cloned).Rule = src.Rule
	}

	return remap[begin], remap[end]
}
