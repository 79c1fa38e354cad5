package codegen

import (
	"fmt"
	"strconv"

	"github.com/lexforge/lexforge/diag"
	"github.com/lexforge/lexforge/emit"
	"github.com/lexforge/lexforge/source"
)

// parseSubstCode reads a codegen `header`/`source` block verbatim, line by
// line, inserting a `#line` directive into the resulting value whenever a
// line's source attribution jumps from the line before it. A project
// file's multi-line values are stitched together from non-contiguous
// fragments of indent-stripped text (see source.Builder), so a block
// copied in from several places in the file needs its own line tracking
// independent of the project file's physical lines.
func parseSubstCode(span *source.Span) emit.Value {
	r := source.NewReader(span)

	var val emit.Value
	var curLine []byte
	curLineOpen := false
	var curStartLine int
	var curStartFile string
	preprocessorLine := -1
	preprocessorFile := ""

	startLine := func() {
		loc := r.Loc()
		line, _ := loc.File.LineCol(loc.Begin)
		curStartLine = line
		curStartFile = loc.File.Name
		curLine = nil
		curLineOpen = true
	}

	commitLine := func() {
		if !curLineOpen {
			return
		}
		if curStartLine != preprocessorLine || curStartFile != preprocessorFile {
			val.Lines = append(val.Lines, fmt.Sprintf("#line %d %s", curStartLine, strconv.Quote(curStartFile)))
			preprocessorLine = curStartLine
			preprocessorFile = curStartFile
			val.ChangesLineInfo = true
		}
		val.Lines = append(val.Lines, string(curLine))
		curLineOpen = false
		preprocessorLine++
	}

	startLine()
	for {
		b, ok := r.Peek()
		if !ok {
			break
		}
		if b == '\n' {
			r.Advance()
			if b2, ok2 := r.Peek(); ok2 && b2 == '\r' {
				r.Advance()
			}
			commitLine()
			startLine()
			continue
		}
		curLine = append(curLine, b)
		r.Advance()
	}
	commitLine()
	return val
}

// parseInlineValue reads a codegen `prefix` value: a single logical line.
// Interior whitespace collapses to whatever was written (preserved
// verbatim between non-space characters); newlines before the content and
// after it are skipped, but a newline followed by further content is an
// error.
func parseInlineValue(span *source.Span) (emit.Value, error) {
	r := source.NewReader(span)

	for {
		b, ok := r.Peek()
		if !ok || !isInlineSpace(b) {
			break
		}
		r.Advance()
	}

	var s, suffix []byte
	raiseOnNonspace := false
	for {
		b, ok := r.Peek()
		if !ok {
			break
		}
		switch {
		case isInlineSpace(b):
			if len(s) > 0 {
				suffix = append(suffix, b)
			}
			r.Advance()
		case isInlineNewline(b):
			if len(s) > 0 {
				raiseOnNonspace = true
			}
			r.Advance()
		default:
			if raiseOnNonspace {
				return emit.Value{}, diag.Syntaxf(r.Loc(), "expected inline value, not multiline value")
			}
			s = append(s, suffix...)
			suffix = nil
			s = append(s, b)
			r.Advance()
		}
	}
	return emit.Inline(string(s)), nil
}

func isInlineSpace(b byte) bool   { return b == ' ' || b == '\t' }
func isInlineNewline(b byte) bool { return b == '\n' || b == '\r' }
