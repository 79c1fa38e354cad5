// Package emit performs the `$(name)` template substitution codegen's
// header and source templates go through: each named value is a list of
// lines rather than a single string, so a multi-line substitution can
// splice itself into a template line while preserving that line's
// indentation on every continuation line, and resynchronizing `#line`
// directives whenever a substituted value carries its own source
// attribution (the codegen header/source blocks users write inline in a
// project file).
package emit

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/projectdiscovery/fasttemplate"
)

// Value is one substitutable value: a sequence of lines. A single-line
// Value splices inline; a multi-line Value's later lines are re-indented
// to match the template line's own leading whitespace.
type Value struct {
	Lines []string
	// ChangesLineInfo marks a value that embeds its own `#line` directives
	// (typically a user-authored codegen block copied verbatim from a
	// project file), which forces the emitter to re-synchronize its own
	// line counter immediately afterward.
	ChangesLineInfo bool
}

// Inline wraps a single-line value.
func Inline(s string) Value {
	return Value{Lines: []string{s}}
}

// Empty is the substitution for a name with nothing to emit.
var Empty = Value{}

// Substitutor renders template text against a fixed set of named values.
type Substitutor struct {
	Values map[string]Value
}

// NewSubstitutor returns a Substitutor bound to values.
func NewSubstitutor(values map[string]Value) *Substitutor {
	return &Substitutor{Values: values}
}

// Render processes every line of a template's text, substituting
// `$(name)` placeholders, and resynchronizes `#line filename` directives
// so downstream compiler diagnostics still point at the project file that
// produced a substituted block. filename is the name reported in emitted
// `#line` directives.
func (s *Substitutor) Render(templateText, filename string) (string, error) {
	var out bytes.Buffer
	lineNum := 1

	lines := splitKeepEnds(templateText)
	for _, line := range lines {
		indent := leadingWhitespace(line)
		shouldResync := false

		tpl, err := fasttemplate.New(line, "$(", ")")
		if err != nil {
			// No placeholder on this line; fasttemplate errors when the
			// tags are unbalanced, which never happens for a line with
			// no `$(` at all — but guard defensively rather than assume.
			out.WriteString(line)
			lineNum += strings.Count(line, "\n")
			continue
		}

		var werr error
		_, execErr := tpl.ExecuteFunc(&out, func(w io.Writer, tag string) (int, error) {
			val, ok := s.Values[tag]
			if !ok {
				werr = fmt.Errorf("substitution for %q not found", tag)
				return 0, werr
			}
			if val.ChangesLineInfo {
				shouldResync = true
			}
			lineNum += maxInt(0, len(val.Lines)-1)
			return writeValue(w, val, indent)
		})
		if execErr != nil {
			return "", execErr
		}
		if werr != nil {
			return "", werr
		}

		if strings.HasSuffix(line, "\n") {
			lineNum++
		}
		if shouldResync {
			lineNum++
			fmt.Fprintf(&out, "#line %d %q\n", lineNum, filename)
		}
	}

	return out.String(), nil
}

func writeValue(w io.Writer, val Value, indent string) (int, error) {
	if len(val.Lines) == 0 {
		return 0, nil
	}
	if len(val.Lines) == 1 {
		return w.Write([]byte(val.Lines[0]))
	}
	var b strings.Builder
	b.WriteString(val.Lines[0])
	for _, l := range val.Lines[1:] {
		b.WriteByte('\n')
		b.WriteString(indent)
		b.WriteString(l)
	}
	return w.Write([]byte(b.String()))
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// splitKeepEnds splits text into lines, keeping the trailing newline on
// every line but the (possibly absent) final one.
func splitKeepEnds(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
