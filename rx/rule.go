package rx

import (
	"github.com/lexforge/lexforge/diag"
	"github.com/lexforge/lexforge/source"
)

// Tag is a `{id}` or `{-> id}` rule annotation: the lexical states a rule
// applies in, or the state a matched rule transitions to.
type Tag struct {
	Loc source.Loc
	ID  string
}

// ParsedRule is the result of parsing one grammar-section value's body: a
// rule's lexical-state tags, optional target-state tag, and regex.
type ParsedRule struct {
	XStates []Tag
	Target  *Tag
	Re      Node
}

// ParseRule parses a rule body of the form `{state1}{state2}{-> target} re`
// (every `{...}` tag optional and in any order, at most one `{-> ...}`),
// requiring the input be fully consumed.
func ParseRule(span *source.Span) (*ParsedRule, error) {
	p := NewParser(span)

	var xstates []Tag
	var target *Tag
	for {
		p.skipSpaces()
		b, ok := p.peek()
		if !ok || b != '{' {
			break
		}
		begin := p.r.Loc()
		p.r.Advance()
		p.skipSpaces()

		isTarget := false
		if b2, ok2 := p.peek(); ok2 && b2 == '-' {
			p.r.Advance()
			if err := p.expect('>'); err != nil {
				return nil, err
			}
			p.skipSpaces()
			isTarget = true
		}

		id, err := p.parseRefID()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if err := p.expect('}'); err != nil {
			return nil, err
		}

		tag := Tag{Loc: begin.To(p.r.Loc()), ID: id}
		if isTarget {
			if target != nil {
				return nil, diag.Syntaxf(tag.Loc, "only one target state allowed")
			}
			target = &tag
		} else {
			xstates = append(xstates, tag)
		}
	}

	re, err := p.parseRe(10)
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if !p.r.IsEOF() {
		return nil, diag.Syntaxf(p.r.Loc(), "unexpected trailing input in rule")
	}

	return &ParsedRule{XStates: xstates, Target: target, Re: re}, nil
}
