// Package rx is the regex AST compiled out of a grammar's rule and fragment
// bodies. Every node implements BuildNFA, which emits the node's subgraph
// into an nfa.Graph between a caller-supplied begin and end state — the
// same split-the-work-into-begin/end-pairs shape a Thompson construction
// always uses, just spelled as a method per node kind instead of one
// recursive function with a type switch.
package rx

import (
	"github.com/lexforge/lexforge/charclass"
	"github.com/lexforge/lexforge/nfa"
	"github.com/lexforge/lexforge/source"
)

// FragmentResolver looks up a named fragment and emits its (possibly
// shared, always freshly cloned) NFA subgraph between begin and end. It is
// implemented by the grammar package's build context; rx depends only on
// this narrow interface to avoid an import cycle with grammar, which in
// turn depends on rx to build its rules' regexes.
type FragmentResolver interface {
	BuildFragment(loc source.Loc, id string, g *nfa.Graph, begin, end nfa.StateID) error
}

// Node is one regex AST node.
type Node interface {
	// BuildNFA emits this node's subgraph into g, connecting begin to end.
	BuildNFA(g *nfa.Graph, ctx FragmentResolver, begin, end nfa.StateID) error
}

// Empty matches the empty string.
type Empty struct{}

// BuildNFA implements Node.
func (Empty) BuildNFA(g *nfa.Graph, _ FragmentResolver, begin, end nfa.StateID) error {
	g.AddEpsilon(begin, end)
	return nil
}

// Char matches any single byte in Class.
type Char struct {
	Class charclass.Set
}

// BuildNFA implements Node.
func (c Char) BuildNFA(g *nfa.Graph, _ FragmentResolver, begin, end nfa.StateID) error {
	g.AddTrans(begin, c.Class, end)
	return nil
}

// Ref is a reference to a named fragment, resolved at NFA-build time
// through ctx so a fragment is built at most once and cloned per use site.
type Ref struct {
	Loc source.Loc
	ID  string
}

// BuildNFA implements Node.
func (r Ref) BuildNFA(g *nfa.Graph, ctx FragmentResolver, begin, end nfa.StateID) error {
	return ctx.BuildFragment(r.Loc, r.ID, g, begin, end)
}

// Concat matches Left followed by Right.
type Concat struct {
	Left, Right Node
}

// BuildNFA implements Node.
func (c Concat) BuildNFA(g *nfa.Graph, ctx FragmentResolver, begin, end nfa.StateID) error {
	mid := g.NewState()
	if err := c.Left.BuildNFA(g, ctx, begin, mid); err != nil {
		return err
	}
	return c.Right.BuildNFA(g, ctx, mid, end)
}

// Alt matches Left or Right.
type Alt struct {
	Left, Right Node
}

// BuildNFA implements Node.
func (a Alt) BuildNFA(g *nfa.Graph, ctx FragmentResolver, begin, end nfa.StateID) error {
	leftBegin, leftEnd := g.NewState(), g.NewState()
	rightBegin, rightEnd := g.NewState(), g.NewState()

	g.AddEpsilon(begin, leftBegin)
	g.AddEpsilon(begin, rightBegin)
	g.AddEpsilon(leftEnd, end)
	g.AddEpsilon(rightEnd, end)

	if err := a.Left.BuildNFA(g, ctx, leftBegin, leftEnd); err != nil {
		return err
	}
	return a.Right.BuildNFA(g, ctx, rightBegin, rightEnd)
}

// Star matches Re repeated zero or more times.
type Star struct {
	Re Node
}

// BuildNFA implements Node.
func (s Star) BuildNFA(g *nfa.Graph, ctx FragmentResolver, begin, end nfa.StateID) error {
	midBegin, midEnd := g.NewState(), g.NewState()

	g.AddEpsilon(begin, midBegin)
	g.AddEpsilon(begin, end)
	g.AddEpsilon(midEnd, midBegin)
	g.AddEpsilon(midEnd, end)

	return s.Re.BuildNFA(g, ctx, midBegin, midEnd)
}

// Prefix matches every prefix of a string matched by Re, including the
// empty prefix and the full match — used
// to build the "incomplete input at EOF should still be consumed rather
// than rejected outright" rules (the `~re` operator).
type Prefix struct {
	Re Node
}

// BuildNFA implements Node.
func (p Prefix) BuildNFA(g *nfa.Graph, ctx FragmentResolver, begin, end nfa.StateID) error {
	midBegin, midEnd := g.NewState(), g.NewState()
	if err := p.Re.BuildNFA(g, ctx, midBegin, midEnd); err != nil {
		return err
	}

	// Every state reachable within the sub-construction can also finish
	// the match early — an ε-transition straight to end from each one —
	// which is exactly what "any prefix of a full match" means.
	g.Visit(midBegin, func(id nfa.StateID) {
		if id != end {
			g.AddEpsilon(id, end)
		}
	})

	g.AddEpsilon(begin, midBegin)
	return nil
}
