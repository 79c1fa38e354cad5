package dfa

import (
	"github.com/lexforge/lexforge/diag"
)

// Minimize collapses g into the unique minimal DFA recognizing the same
// language, by Hopcroft-style partition refinement: states start split
// into accept-equivalence classes, then classes are repeatedly split by
// transition equivalence until no further split is possible.
//
// Unlike the state-object graph this is ported from, which stashed a
// `repr` pointer directly on each state during refinement, class
// membership here lives in a side table (`repr`, indexed by StateID) kept
// alongside the State arena — the arena itself is never mutated mid-pass.
func Minimize(logf func(level int, format string, args ...any), g *Graph) *Graph {
	log := logf
	if log == nil {
		log = func(int, string, ...any) {}
	}
	log(1, "running DFA minimization")

	n := len(g.States)
	log(2, "total states: %d", n)

	classes := [][]StateID{make([]StateID, n)}
	for i := range classes[0] {
		classes[0][i] = StateID(i)
	}

	repr := make([]StateID, n)
	assignRepr := func() {
		for _, class := range classes {
			for _, id := range class {
				repr[id] = class[0]
			}
		}
	}
	assignRepr()

	sameClass := func(a, b StateID) bool {
		if a == Dead && b == Dead {
			return true
		}
		if (a == Dead) != (b == Dead) {
			return false
		}
		return repr[a] == repr[b]
	}

	sameAccept := func(a, b Rule) bool {
		if a == nil && b == nil {
			return true
		}
		if (a == nil) != (b == nil) {
			return false
		}
		return a.SameAccept(b)
	}

	refine := func(refiner func(a, b StateID) bool) bool {
		var newClasses [][]StateID
		progressed := false
		for _, class := range classes {
			if len(class) == 1 {
				newClasses = append(newClasses, class)
				continue
			}
			var groups [][]StateID
			for _, id := range class {
				placed := false
				for gi, group := range groups {
					if refiner(group[0], id) {
						groups[gi] = append(group, id)
						placed = true
						break
					}
				}
				if !placed {
					groups = append(groups, []StateID{id})
				}
			}
			if len(groups) > 1 {
				progressed = true
			}
			newClasses = append(newClasses, groups...)
		}
		classes = newClasses
		assignRepr()
		return progressed
	}

	refine(func(a, b StateID) bool {
		return sameAccept(g.States[a].Accept, g.States[b].Accept)
	})

	for {
		progressed := refine(func(a, b StateID) bool {
			for i := 0; i < 256; i++ {
				if !sameClass(g.States[a].Trans[i], g.States[b].Trans[i]) {
					return false
				}
			}
			return true
		})
		if !progressed {
			break
		}
	}

	// Discover every reachable representative state with an explicit
	// worklist rather than recursing over the transition graph: a large
	// grammar's minimized DFA can have a reachable-state graph deep
	// enough that a recursive remap would risk a stack overflow.
	out := &Graph{}
	newIDs := make(map[StateID]StateID)
	var reps []StateID

	idFor := func(id StateID) StateID {
		if id == Dead {
			return Dead
		}
		r := repr[id]
		if newID, ok := newIDs[r]; ok {
			return newID
		}
		newID := StateID(len(reps))
		newIDs[r] = newID
		reps = append(reps, r)
		return newID
	}

	out.Start = idFor(g.Start)
	for worklist := []StateID{g.Start}; len(worklist) > 0; {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if id == Dead {
			continue
		}
		r := repr[id]
		for i := 0; i < 256; i++ {
			next := g.States[r].Trans[i]
			if next == Dead {
				continue
			}
			if _, seen := newIDs[repr[next]]; !seen {
				idFor(next)
				worklist = append(worklist, next)
			}
		}
	}

	out.States = make([]State, len(reps))
	for newID, r := range reps {
		out.States[newID].Accept = g.States[r].Accept
		var trans [256]StateID
		for i := 0; i < 256; i++ {
			trans[i] = idFor(g.States[r].Trans[i])
		}
		out.States[newID].Trans = trans
	}
	log(2, "total states after minimization: %d", len(out.States))

	if out.Start == Dead {
		panic(diag.Internalf("minimized DFA has no start state"))
	}

	return out
}
