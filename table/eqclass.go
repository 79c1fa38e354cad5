package table

import (
	"sort"

	"github.com/lexforge/lexforge/charclass"
	"github.com/lexforge/lexforge/dfa"
	"github.com/lexforge/lexforge/grammar"
)

// computeEqClasses partitions the 256-byte alphabet into the coarsest set
// of classes such that every DFA state treats every byte of a class
// identically. It works by candidate-block refinement rather than
// tracking byte ranges during NFA construction: each DFA state's outgoing
// transitions are grouped by destination, and each such group is
// submitted as a candidate refinement of the running partition. A
// candidate already subsumed by (or disjoint from) every current class is
// skipped; a set already submitted is skipped too, via the seen cache.
func computeEqClasses(xstates []*grammar.XState) []charclass.Set {
	classes := []charclass.Set{charclass.All()}
	seen := make(map[charclass.Set]bool)

	refine := func(partition charclass.Set) {
		if seen[partition] {
			return
		}
		seen[partition] = true
		n := len(classes)
		for i := 0; i < n; i++ {
			cls := classes[i]
			inter := cls.Intersect(partition)
			if inter.IsEmpty() || inter.Equal(cls) {
				continue
			}
			classes[i] = cls.Difference(inter)
			classes = append(classes, inter)
		}
	}

	for _, xs := range xstates {
		xs.DFA.Visit(func(id dfa.StateID) {
			st := &xs.DFA.States[id]
			groups := make(map[dfa.StateID]charclass.Set)
			for b := 0; b < 256; b++ {
				target := st.Trans[b]
				g := groups[target]
				g.Add(byte(b))
				groups[target] = g
			}

			// Sort target keys for deterministic refinement order, so
			// the resulting class numbering doesn't depend on map
			// iteration order.
			targets := make([]dfa.StateID, 0, len(groups))
			for t := range groups {
				targets = append(targets, t)
			}
			sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
			for _, t := range targets {
				refine(groups[t])
			}
		})
	}

	return classes
}
