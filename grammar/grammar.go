// Package grammar is the data model a project file populates: tokens,
// lexical states, rules, and reusable regex fragments. Context.Build wires
// every rule's regex into a shared NFA arena, completes each lexical state
// with its implicit error rule, and drives subset construction and
// minimization down to a finished per-state DFA.
package grammar

import (
	"github.com/lexforge/lexforge/charclass"
	"github.com/lexforge/lexforge/dfa"
	"github.com/lexforge/lexforge/diag"
	"github.com/lexforge/lexforge/nfa"
	"github.com/lexforge/lexforge/rx"
	"github.com/lexforge/lexforge/source"
)

// Token is an interned output token kind. Enumeration order follows
// first-use order, which is the order codegen emits token constants in.
type Token struct {
	Name  string
	order int
}

// Fragment is a named, reusable regex: compiled into NFA state at most
// once, then cloned at every reference site so distinct uses don't alias
// each other's states.
type Fragment struct {
	ID  string
	Loc source.Loc
	Re  rx.Node

	built      bool
	begin, end nfa.StateID
}

func (f *Fragment) build(ctx *Context) error {
	if f.built {
		return nil
	}
	f.begin = ctx.Graph.NewState()
	f.end = ctx.Graph.NewState()
	if err := f.Re.BuildNFA(&ctx.Graph, ctx, f.begin, f.end); err != nil {
		return err
	}
	f.built = true
	return nil
}

// Rule is one `pattern -> token` rule of a lexical state.
type Rule struct {
	XState      *XState
	Loc         source.Loc
	Token       *Token
	Re          rx.Node
	TargetState *XState

	order int // position within XState.Rules, 1-based; ties broken by earliest order
}

// Order implements dfa.Rule.
func (r *Rule) Order() int { return r.order }

// SameAccept implements dfa.Rule.
func (r *Rule) SameAccept(other dfa.Rule) bool {
	o, ok := other.(*Rule)
	if !ok {
		return false
	}
	return r.Token == o.Token && r.TargetState == o.TargetState
}

// XState is a named lexical state: an ordered list of rules sharing one
// NFA entry state, and (after Context.Build) one minimized DFA.
type XState struct {
	ID    string
	Rules []*Rule

	begin nfa.StateID
	DFA   *dfa.Graph
}

// Context owns every fragment, token, and lexical state of a grammar, plus
// the single shared NFA arena they all build into.
type Context struct {
	Graph nfa.Graph

	fragments map[string]*Fragment
	tokens    map[string]*Token
	tokenList []*Token
	xstates   map[string]*XState
	xstateIDs []string
}

// NewContext returns a Context with the predeclared "default" lexical
// state, matching every grammar's implicit entry point.
func NewContext() *Context {
	ctx := &Context{
		fragments: make(map[string]*Fragment),
		tokens:    make(map[string]*Token),
		xstates:   make(map[string]*XState),
	}
	ctx.AddXState("default")
	return ctx
}

// AddXState registers a new lexical state, or returns the existing one if
// id was already declared.
func (ctx *Context) AddXState(id string) *XState {
	if xs, ok := ctx.xstates[id]; ok {
		return xs
	}
	xs := &XState{ID: id}
	ctx.xstates[id] = xs
	ctx.xstateIDs = append(ctx.xstateIDs, id)
	return xs
}

// GetXState looks up a previously declared lexical state by name.
func (ctx *Context) GetXState(loc source.Loc, id string) (*XState, error) {
	xs, ok := ctx.xstates[id]
	if !ok {
		return nil, diag.Semanticf(loc, "no such state '%s'", id)
	}
	return xs, nil
}

// XStates returns every lexical state in declaration order.
func (ctx *Context) XStates() []*XState {
	out := make([]*XState, len(ctx.xstateIDs))
	for i, id := range ctx.xstateIDs {
		out[i] = ctx.xstates[id]
	}
	return out
}

// AddToken interns a token name, creating it on first use. Enumeration
// order (Tokens) reflects the order names were first seen.
func (ctx *Context) AddToken(name string) *Token {
	if tok, ok := ctx.tokens[name]; ok {
		return tok
	}
	tok := &Token{Name: name, order: len(ctx.tokenList)}
	ctx.tokens[name] = tok
	ctx.tokenList = append(ctx.tokenList, tok)
	return tok
}

// GetToken looks up a token that must already have been declared by use.
func (ctx *Context) GetToken(loc source.Loc, name string) (*Token, error) {
	tok, ok := ctx.tokens[name]
	if !ok {
		return nil, diag.Semanticf(loc, "no such token '%s'", name)
	}
	return tok, nil
}

// Tokens returns every interned token in first-use order.
func (ctx *Context) Tokens() []*Token {
	return ctx.tokenList
}

// AddFragment registers a new fragment. Reports a semantic error naming
// the original declaration site if id is already taken.
func (ctx *Context) AddFragment(f *Fragment) error {
	if existing, ok := ctx.fragments[f.ID]; ok {
		return diag.Semanticf(f.Loc, "duplicate fragment '%s', first declared at %s", f.ID, existing.Loc)
	}
	ctx.fragments[f.ID] = f
	return nil
}

// BuildFragment implements rx.FragmentResolver: it builds the named
// fragment's NFA at most once, then clones it fresh into g between begin
// and end.
func (ctx *Context) BuildFragment(loc source.Loc, id string, g *nfa.Graph, begin, end nfa.StateID) error {
	f, ok := ctx.fragments[id]
	if !ok {
		return diag.Semanticf(loc, "no such fragment '%s'", id)
	}
	if err := f.build(ctx); err != nil {
		return err
	}
	cb, ce := g.Clone(f.begin, f.end)
	g.AddEpsilon(begin, cb)
	g.AddEpsilon(ce, end)
	return nil
}

// AddRule appends a new rule to xstate, defaulting its target state to
// xstate itself (a rule with no explicit `{-> target}` tag stays in the
// same lexical state).
func (ctx *Context) AddRule(xstate *XState, loc source.Loc, token *Token, re rx.Node, targetState *XState) *Rule {
	if targetState == nil {
		targetState = xstate
	}
	r := &Rule{XState: xstate, Loc: loc, Token: token, Re: re, TargetState: targetState}
	xstate.Rules = append(xstate.Rules, r)
	r.order = len(xstate.Rules)
	return r
}

// Logf receives pipeline phase/detail messages during Build; pass nil to
// discard them.
type Logf func(level int, format string, args ...any)

// Build compiles every fragment, then every lexical state's rules, into
// minimized per-state DFAs. Non-fatal notices (a rule that never
// contributes an accept state, or one only reachable at EOF) are reported
// through sink rather than failing the build.
func (ctx *Context) Build(sink diag.Sink, logf Logf) error {
	if sink == nil {
		sink = diag.DiscardSink{}
	}
	if logf == nil {
		logf = func(int, string, ...any) {}
	}

	for _, id := range ctx.xstateIDs {
		ctx.xstates[id].begin = ctx.Graph.NewState()
	}

	for _, f := range ctx.fragments {
		if err := f.build(ctx); err != nil {
			return err
		}
	}

	for _, id := range ctx.xstateIDs {
		xs := ctx.xstates[id]
		logf(2, "state %s has %d rules", xs.ID, len(xs.Rules))
		if err := xs.build(ctx, sink, logf); err != nil {
			return err
		}
	}
	return nil
}

func (xs *XState) build(ctx *Context, sink diag.Sink, logf Logf) error {
	// compoundRe folds every rule's pattern into one alternation, used by
	// the implicit error rule's "longest matchable prefix" fallback.
	var compoundRe rx.Node = rx.Empty{}
	for _, r := range xs.Rules {
		compoundRe = rx.Alt{Left: r.Re, Right: compoundRe}
	}

	buildRuleNFA := func(r *Rule, re rx.Node) error {
		state := ctx.Graph.NewState()
		ctx.Graph.SetRule(state, r)
		return re.BuildNFA(&ctx.Graph, ctx, xs.begin, state)
	}

	for _, r := range xs.Rules {
		if err := buildRuleNFA(r, r.Re); err != nil {
			return err
		}
	}

	// nonstartChars is the set of bytes that cannot begin any rule in this
	// state: every byte except those on a labeled transition out of a
	// state in xs.begin's ε-closure. Only ε-edges are followed to build that
	// closure — a labeled transition's target is never itself explored —
	// since that target is only reachable after a byte has already been
	// consumed, not as a first byte.
	nonstartChars := charclass.All()
	visited := make(map[nfa.StateID]bool)
	stack := []nfa.StateID{xs.begin}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		st := ctx.Graph.State(id)
		for _, t := range st.Trans {
			nonstartChars = nonstartChars.Difference(t.Class)
		}
		stack = append(stack, st.EpsilonTo...)
	}

	errorToken := ctx.AddToken("error")
	errorRe := rx.Alt{
		Left:  rx.Star{Re: rx.Char{Class: nonstartChars}},
		Right: rx.Prefix{Re: compoundRe},
	}
	errorRule := ctx.AddRule(xs, source.Loc{}, errorToken, errorRe, xs)
	if err := buildRuleNFA(errorRule, errorRe); err != nil {
		return err
	}

	full := dfa.Build(&ctx.Graph, xs.begin)
	// The start state's own accept (if subset construction happened to
	// set one) is discarded: a lexical state never accepts on zero
	// consumed input.
	full.States[full.Start].Accept = nil

	marked := make(map[*Rule]bool)
	nonEOF := make(map[*Rule]bool)
	full.Visit(func(id dfa.StateID) {
		st := &full.States[id]
		if st.Accept == nil {
			return
		}
		r := st.Accept.(*Rule)
		marked[r] = true
		for _, t := range st.Trans {
			if t == dfa.Dead {
				nonEOF[r] = true
				break
			}
		}
	})
	for _, r := range xs.Rules {
		if !marked[r] {
			sink.Warn(r.Loc, "rule unused in state %s", xs.ID)
		} else if !nonEOF[r] {
			sink.Warn(r.Loc, "in state %s, this rule is only usable at the end of file", xs.ID)
		}
	}

	xs.DFA = dfa.Minimize(func(level int, format string, args ...any) {
		logf(level, format, args...)
	}, full)
	return nil
}
