package dfa

import (
	"sort"

	"github.com/lexforge/lexforge/nfa"
)

// sccIndex identifies a strongly connected component of the NFA's
// ε-transition graph, in the order Tarjan's algorithm closes them (every
// SCC a given SCC can reach via an ε edge is closed strictly earlier).
type sccIndex int

// sccInfo is everything the subset construction needs about one SCC: the
// NFA states it contains and its ε-closure, expressed as the sorted,
// deduplicated list of SCC indices reachable from it (including itself).
type sccInfo struct {
	states  []nfa.StateID
	closure []sccIndex
}

// tarjanResult is the output of running Tarjan's algorithm over a Graph's
// ε-transition edges starting from a single root state.
type tarjanResult struct {
	sccOf map[nfa.StateID]sccIndex
	sccs  []sccInfo
}

// runTarjan computes the SCC decomposition of the ε-transition graph over
// every state reachable from start (via either ε- or labeled transitions),
// with each SCC's ε-closure built eagerly as the SCC is closed (every SCC
// it can reach is already known at that point, since Tarjan closes
// components in reverse topological order of the condensation). Because
// the ε-graph alone need not be connected — two states can only be linked
// by a labeled transition — strongconnect is (re)rooted at every
// as-yet-unvisited state in traversal order, exactly as the ε-graph's own
// disjoint components would be discovered one at a time.
//
// Implemented with an explicit frame stack rather than recursion since
// deeply nested grammars (long concatenation or repetition chains) can
// exceed comfortable native stack depth.
func runTarjan(g *nfa.Graph, start nfa.StateID) *tarjanResult {
	var allStates []nfa.StateID
	g.Visit(start, func(id nfa.StateID) { allStates = append(allStates, id) })
	return runTarjanOver(g, allStates)
}

func runTarjanOver(g *nfa.Graph, allStates []nfa.StateID) *tarjanResult {
	type frame struct {
		v        nfa.StateID
		children []nfa.StateID
		ci       int
	}

	index := 0
	idx := make(map[nfa.StateID]int)
	low := make(map[nfa.StateID]int)
	onStack := make(map[nfa.StateID]bool)
	var stack []nfa.StateID

	res := &tarjanResult{sccOf: make(map[nfa.StateID]sccIndex)}

	var frames []frame
	push := func(v nfa.StateID) {
		idx[v] = index
		low[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true
		frames = append(frames, frame{v: v, children: g.State(v).EpsilonTo})
	}

	closeSCC := func(v nfa.StateID) {
		var states []nfa.StateID
		myIndex := sccIndex(len(res.sccs))
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			res.sccOf[w] = myIndex
			states = append(states, w)
			if w == v {
				break
			}
		}

		closureSet := map[sccIndex]bool{myIndex: true}
		for _, s := range states {
			for _, to := range g.State(s).EpsilonTo {
				otherSCC := res.sccOf[to]
				if otherSCC == myIndex {
					continue
				}
				closureSet[otherSCC] = true
				for _, c := range res.sccs[otherSCC].closure {
					closureSet[c] = true
				}
			}
		}
		closure := make([]sccIndex, 0, len(closureSet))
		for c := range closureSet {
			closure = append(closure, c)
		}
		sort.Slice(closure, func(i, j int) bool { return closure[i] < closure[j] })

		res.sccs = append(res.sccs, sccInfo{states: states, closure: closure})
	}

	run := func(root nfa.StateID) {
		push(root)
		for len(frames) > 0 {
			top := &frames[len(frames)-1]
			if top.ci < len(top.children) {
				w := top.children[top.ci]
				top.ci++
				if _, seen := idx[w]; !seen {
					push(w)
				} else if onStack[w] {
					if idx[w] < low[top.v] {
						low[top.v] = idx[w]
					}
				}
				continue
			}

			// All children processed; pop the frame and propagate lowlink.
			v := top.v
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if low[v] < low[parent.v] {
					low[parent.v] = low[v]
				}
			}
			if low[v] == idx[v] {
				closeSCC(v)
			}
		}
	}

	for _, s := range allStates {
		if _, seen := idx[s]; !seen {
			run(s)
		}
	}

	return res
}
