// Package codegen turns a parsed, built project into the named
// substitution values the header/source templates are rendered against:
// the project's own `[codegen]` prefix/header/source blocks, and the
// transition tables, equivalence classes, and per-state/per-token
// enumerations derived from the compiled grammar.
package codegen

import (
	"fmt"
	"strings"

	"github.com/lexforge/lexforge/diag"
	"github.com/lexforge/lexforge/emit"
	"github.com/lexforge/lexforge/grammar"
	"github.com/lexforge/lexforge/project"
	"github.com/lexforge/lexforge/table"
)

// Codegen accumulates the named values emit.Substitutor renders the
// header/source templates against.
type Codegen struct {
	Substs map[string]emit.Value
}

// New returns an empty Codegen.
func New() *Codegen {
	return &Codegen{Substs: make(map[string]emit.Value)}
}

// Parse reads p's `[codegen]` section(s): the `header`/`source` code
// blocks and the `prefix` inline value. A missing `header` defaults to
// empty and a missing `prefix` to the project name; a missing `source`
// gets no default (see below).
func (c *Codegen) Parse(p *project.Project) error {
	for _, s := range p.GetSections("codegen") {
		s.MarkUsed()
		for _, v := range s.Values {
			switch v.Key {
			case "header":
				if _, ok := c.Substs["header"]; ok {
					return diag.Semanticf(v.Loc, "duplicate key")
				}
				c.Substs["header"] = parseSubstCode(v.Span)
			case "source":
				if _, ok := c.Substs["source"]; ok {
					return diag.Semanticf(v.Loc, "duplicate key")
				}
				c.Substs["source"] = parseSubstCode(v.Span)
			case "prefix":
				if _, ok := c.Substs["prefix"]; ok {
					return diag.Semanticf(v.Loc, "duplicate key")
				}
				val, err := parseInlineValue(v.Span)
				if err != nil {
					return err
				}
				c.Substs["prefix"] = val
			default:
				return diag.Semanticf(v.Loc, "unknown key")
			}
		}
	}

	if _, ok := c.Substs["header"]; !ok {
		c.Substs["header"] = emit.Empty
	}
	if _, ok := c.Substs["source"]; !ok {
		// The upstream project's defaulting code here assigns "header" a
		// second time instead of "source". Reproduced verbatim rather than
		// silently corrected — see the grounding ledger. A project with no
		// `source` block therefore has no "source" value, and rendering a
		// template that references $(source) reports an error.
		c.Substs["header"] = emit.Empty
	}
	if _, ok := c.Substs["prefix"]; !ok {
		c.Substs["prefix"] = emit.Inline(p.Name)
	}
	c.Substs["extra_fields"] = emit.Empty
	return nil
}

// Build derives the transition-table substitution values from p's
// compiled grammar. Call after project.Project.Build.
func (c *Codegen) Build(p *project.Project) error {
	t := table.Build(p.Grammar)
	c.buildTables(p.Grammar, t)
	c.Substs["lexer_trap"] = emit.Empty
	return nil
}

// buildTables populates the per-state, per-token, and transition-table
// substitution values from a built table.Table.
func (c *Codegen) buildTables(ctx *grammar.Context, t *table.Table) {
	var enumStates, setStateSwitch commaLines
	for _, xs := range ctx.XStates() {
		name := capitalize(xs.ID)
		enumStates.add(name)
		entry := t.EntryPoints[xs.ID]
		setStateSwitch.addRaw(fmt.Sprintf("case State::%s: jlex_lexer->state = %d; break;", name, entry.Offset))
	}
	c.Substs["enum_states"] = enumStates.value()
	c.Substs["set_state_switch"] = setStateSwitch.value()

	var tokenNames, enumTokens commaLines
	for _, tok := range t.Tokens {
		tokenNames.add(fmt.Sprintf("%q", tok.Name))
		enumTokens.add(capitalize(tok.Name))
	}
	c.Substs["token_names"] = tokenNames.value()
	c.Substs["enum_tokens"] = enumTokens.value()

	var eqClasses commaLines
	for _, chunk := range chunkUint32(t.EqClassColumnOffset[:], 16) {
		var parts []string
		for _, off := range chunk {
			parts = append(parts, fmt.Sprintf("%d", off))
		}
		eqClasses.addRaw(strings.Join(parts, ", "))
	}
	c.Substs["eq_classes"] = eqClasses.value()

	c.Substs["eof_transitions"] = emit.Inline(strings.Join(t.EOF, ","))

	var transitions commaLines
	for _, row := range t.Transitions {
		transitions.addRaw(strings.Join(row, ", "))
	}
	c.Substs["transitions"] = transitions.value()
}

// commaLines builds an emit.Value the way the upstream SubstValue did:
// every line but the last ends with a trailing comma, since the rendered
// lines become entries of a C array literal spanning several source
// lines.
type commaLines struct {
	lines []string
}

func (c *commaLines) add(item string) {
	c.addRaw(item)
}

func (c *commaLines) addRaw(line string) {
	if len(c.lines) > 0 {
		c.lines[len(c.lines)-1] += ","
	}
	c.lines = append(c.lines, line)
}

func (c *commaLines) value() emit.Value {
	return emit.Value{Lines: append([]string(nil), c.lines...)}
}

func chunkUint32(s []uint32, n int) [][]uint32 {
	var out [][]uint32
	for i := 0; i < len(s); i += n {
		end := i + n
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[i:end])
	}
	return out
}

// WriteHeader renders the header output file's text.
func (c *Codegen) WriteHeader(filename string) (string, error) {
	sub := emit.NewSubstitutor(c.Substs)
	prefix, err := sub.Render(headerPrefixTemplate, filename)
	if err != nil {
		return "", err
	}
	body, err := sub.Render(headerTemplate, filename)
	if err != nil {
		return "", err
	}
	return prefix + body, nil
}

// WriteSource renders the source output file's text. Like the header
// template, the header body is re-embedded into the source file (the
// generated scanner is a single translation unit).
func (c *Codegen) WriteSource(filename string) (string, error) {
	sub := emit.NewSubstitutor(c.Substs)
	prefix, err := sub.Render(sourcePrefixTemplate, filename)
	if err != nil {
		return "", err
	}
	header, err := sub.Render(headerTemplate, filename)
	if err != nil {
		return "", err
	}
	body, err := sub.Render(sourceTemplate, filename)
	if err != nil {
		return "", err
	}
	return prefix + header + body, nil
}

// capitalize title-cases id's underscore-separated words and strips the
// underscores, matching the C++ enum member naming the templates expect
// (e.g. "string_literal" -> "StringLiteral").
func capitalize(id string) string {
	parts := strings.Split(id, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		if len(p) > 1 {
			b.WriteString(strings.ToLower(p[1:]))
		}
	}
	return b.String()
}
