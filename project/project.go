// Package project reads a project file's `[section]`/`key value`
// surface syntax into a grammar.Context: general state declarations,
// reusable regex fragments, and the rules of the grammar section, each
// rule optionally tagged with the lexical states it applies in and the
// state a match transitions to.
package project

import (
	"strings"

	"github.com/lexforge/lexforge/diag"
	"github.com/lexforge/lexforge/grammar"
	"github.com/lexforge/lexforge/rx"
	"github.com/lexforge/lexforge/source"
)

// Section is one `[name]` or `[name(params)]` block and the key/value
// pairs declared under it.
type Section struct {
	Loc    source.Loc
	Name   string
	Params []string
	Values []*Value
	Used   bool
}

// MarkUsed records that a recognized pass consumed this section, so
// CheckUsed doesn't flag it as dead.
func (s *Section) MarkUsed() { s.Used = true }

// Value is one `key value` pair (possibly spanning several indented
// continuation lines) declared under a Section.
type Value struct {
	Loc  source.Loc
	Key  string
	Span *source.Span
}

// Project is a parsed project file: its declared sections and the
// grammar.Context those sections populate.
type Project struct {
	Name     string
	Sections []*Section
	Grammar  *grammar.Context
}

// New returns an empty project named name, with its grammar context's
// implicit "default" lexical state already registered.
func New(name string) *Project {
	return &Project{Name: name, Grammar: grammar.NewContext()}
}

// GetSections returns every section with the given name, in declaration
// order.
func (p *Project) GetSections(name string) []*Section {
	var out []*Section
	for _, s := range p.Sections {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// CheckUsed reports a semantic error naming the first section no
// recognized pass consumed.
func (p *Project) CheckUsed() error {
	for _, s := range p.Sections {
		if !s.Used {
			return diag.Semanticf(s.Loc, "unused section")
		}
	}
	return nil
}

// Parse walks every recognized section (general, fragments, grammar) and
// populates p.Grammar accordingly. Call Build afterward to compile the
// grammar into per-state DFAs.
func (p *Project) Parse() error {
	for _, s := range p.GetSections("general") {
		s.MarkUsed()
		for _, v := range s.Values {
			switch v.Key {
			case "state":
				p.Grammar.AddXState(strings.TrimSpace(v.Span.Text))
			default:
				return diag.Semanticf(v.Loc, "unknown key")
			}
		}
	}

	for _, s := range p.GetSections("fragments") {
		s.MarkUsed()
		for _, v := range s.Values {
			re, err := rx.Parse(v.Span)
			if err != nil {
				return err
			}
			if err := p.Grammar.AddFragment(&grammar.Fragment{ID: v.Key, Loc: v.Loc, Re: re}); err != nil {
				return err
			}
		}
	}

	for _, s := range p.GetSections("grammar") {
		s.MarkUsed()
		for _, v := range s.Values {
			if err := p.parseGrammarValue(v); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *Project) parseGrammarValue(v *Value) error {
	parsed, err := rx.ParseRule(v.Span)
	if err != nil {
		return err
	}

	ruleXStates := make(map[*grammar.XState]bool)
	for _, tag := range parsed.XStates {
		if tag.ID == "all" {
			for _, xs := range p.Grammar.XStates() {
				ruleXStates[xs] = true
			}
			continue
		}
		xs, err := p.Grammar.GetXState(tag.Loc, tag.ID)
		if err != nil {
			return err
		}
		ruleXStates[xs] = true
	}

	var targetState *grammar.XState
	if parsed.Target != nil {
		xs, err := p.Grammar.GetXState(parsed.Target.Loc, parsed.Target.ID)
		if err != nil {
			return err
		}
		targetState = xs
	}

	if len(ruleXStates) == 0 {
		xs, err := p.Grammar.GetXState(v.Loc, "default")
		if err != nil {
			return err
		}
		ruleXStates[xs] = true
	}

	token := p.Grammar.AddToken(v.Key)
	// Iterate in declaration order rather than over the map directly, so
	// rule order (and therefore maximal-munch tie-breaking) doesn't
	// depend on Go's randomized map iteration.
	for _, xs := range p.Grammar.XStates() {
		if ruleXStates[xs] {
			p.Grammar.AddRule(xs, v.Loc, token, parsed.Re, targetState)
		}
	}
	return nil
}

// Build compiles the parsed grammar into a minimized DFA per lexical
// state.
func (p *Project) Build(sink diag.Sink, logf grammar.Logf) error {
	return p.Grammar.Build(sink, logf)
}
