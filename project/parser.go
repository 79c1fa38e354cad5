package project

import (
	"github.com/lexforge/lexforge/diag"
	"github.com/lexforge/lexforge/source"
)

func isLower(b byte) bool      { return b >= 'a' && b <= 'z' }
func isUpper(b byte) bool      { return b >= 'A' && b <= 'Z' }
func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isWhitespace(b byte) bool { return b == ' ' || b == '\t' }
func isLineEnd(b byte) bool    { return b == '\n' || b == '\r' }

// isWordChar is the character set a section name, parameter, or value key
// may be made of.
func isWordChar(b byte) bool {
	return isLower(b) || isUpper(b) || isDigit(b) || b == '_' || b == '-' || b == '+'
}

// Parser reads a project file's line-oriented surface syntax: `[section]`
// headers, `key value` pairs, `#` comments, and indent-delimited
// multi-line values.
type Parser struct {
	proj *Project
	file *source.File
	r    *source.Reader

	activeSection *Section

	activeValueKey     string
	activeValueLoc     source.Loc
	activeValueBuilder *source.Builder
	activeValueEmpty   bool
	activeIndent       []byte
	activeNewlineLoc   source.Loc
}

// NewParser returns a parser that populates proj's Sections by reading
// file.
func NewParser(proj *Project, file *source.File) *Parser {
	return &Parser{proj: proj, file: file, r: source.NewReader(source.NewSpan(file))}
}

// ParseFile reads a named project file's syntax and semantics, returning
// a Project whose grammar is populated but not yet built.
func ParseFile(name string, data []byte) (*Project, error) {
	file := source.NewFile(name, data)
	proj := New(name)
	p := NewParser(proj, file)
	if err := p.Run(); err != nil {
		return nil, err
	}
	if err := proj.Parse(); err != nil {
		return nil, err
	}
	return proj, nil
}

// Run reads every line of the file into Sections/Values, without
// interpreting them semantically.
func (p *Parser) Run() error {
	for !p.r.IsEOF() {
		if err := p.parseLine(); err != nil {
			return err
		}
	}
	// Flush a value left open by a trailing indented continuation line
	// with no following section, comment, or key to close it.
	return p.closeLastValue()
}

func (p *Parser) parseLine() error {
	begin := p.r.Loc()
	b, _ := p.r.Peek()

	switch {
	case b == '[':
		if err := p.closeLastValue(); err != nil {
			return err
		}
		return p.parseSectionHeader(begin)
	case b == '#':
		if err := p.closeLastValue(); err != nil {
			return err
		}
		p.r.Advance()
		p.consumeCommentLine()
		return nil
	case isWordChar(b):
		return p.parseNewKey()
	default:
		return p.parseValue()
	}
}

func (p *Parser) parseSectionHeader(begin source.Loc) error {
	p.r.Advance() // consume '['
	p.skipWS()
	name, _, err := p.parseWord()
	if err != nil {
		return err
	}
	p.skipWS()

	var params []string
	if b, ok := p.r.Peek(); ok && b == '(' {
		p.r.Advance()
		p.skipWS()
		if b2, ok2 := p.r.Peek(); ok2 && isWordChar(b2) {
			param, _, err := p.parseWord()
			if err != nil {
				return err
			}
			params = append(params, param)
			for {
				p.skipWS()
				b3, ok3 := p.r.Peek()
				if !ok3 || b3 != ',' {
					break
				}
				p.r.Advance()
				p.skipWS()
				param, _, err = p.parseWord()
				if err != nil {
					return err
				}
				params = append(params, param)
			}
		}
		if err := p.expect(')'); err != nil {
			return err
		}
	}
	if err := p.expect(']'); err != nil {
		return err
	}
	end := p.r.Loc()

	sec := &Section{Loc: begin.To(end), Name: name, Params: params}
	p.proj.Sections = append(p.proj.Sections, sec)
	p.activeSection = sec
	return p.consumeEmptyLine()
}

func (p *Parser) parseNewKey() error {
	if err := p.closeLastValue(); err != nil {
		return err
	}
	if p.activeSection == nil {
		return diag.Syntaxf(p.r.Loc(), "no open section")
	}

	key, loc, err := p.parseWord()
	if err != nil {
		return err
	}

	p.activeValueKey = key
	p.activeValueLoc = loc
	p.activeValueBuilder = source.NewBuilder(p.file)
	p.activeValueEmpty = true
	p.activeIndent = nil

	p.skipWS()
	if b, ok := p.r.Peek(); !ok || isLineEnd(b) {
		p.consumeNewline()
		return nil
	}
	if err := p.parseSpanFrom(p.r.Tell()); err != nil {
		return err
	}
	return p.closeLastValue()
}

// parseValue handles one line that is neither a section header, comment,
// nor new key: either the first continuation line of a multi-line value
// (establishing its indent) or a later one (which must match it).
func (p *Parser) parseValue() error {
	if p.activeIndent == nil {
		return p.parseIndentAndValue()
	}

	for i := 0; i < len(p.activeIndent); i++ {
		b, ok := p.r.Peek()
		if !ok || b != p.activeIndent[i] {
			if p.activeValueBuilder != nil && !p.activeValueEmpty {
				p.addNewline()
			}
			p.activeNewlineLoc = p.r.Loc()
			return p.consumeEmptyLine()
		}
		p.r.Advance()
	}
	return p.parseSpanFrom(p.r.Tell())
}

// parseIndentAndValue consumes the leading whitespace of a value's first
// continuation line, fixing activeIndent to match, then parses the rest
// of the line as content.
func (p *Parser) parseIndentAndValue() error {
	if p.activeValueBuilder == nil {
		return p.consumeEmptyLine()
	}

	var indent []byte
	for {
		b, ok := p.r.Peek()
		switch {
		case ok && isWhitespace(b):
			p.r.Advance()
			indent = append(indent, b)
		case !ok || isLineEnd(b):
			p.consumeNewline()
			return nil
		default:
			if len(indent) == 0 {
				return diag.Syntaxf(p.r.Loc(), "unexpected character")
			}
			p.activeIndent = indent
			return p.parseSpanFrom(p.r.Tell())
		}
	}
}

// parseSpanFrom appends the content from pos to the end of the current
// line (trailing whitespace trimmed) to the value under construction,
// inserting a synthetic newline first if this isn't the value's first
// line.
func (p *Parser) parseSpanFrom(pos int) error {
	if p.activeValueBuilder == nil {
		return diag.Syntaxf(p.r.Loc(), "unexpected indented value")
	}

	posEnd := pos
	for {
		b, ok := p.r.Peek()
		if !ok || isLineEnd(b) {
			break
		}
		p.r.Advance()
		if !isWhitespace(b) {
			posEnd = p.r.Tell()
		}
	}
	p.consumeNewline()

	if !p.activeValueEmpty {
		p.addNewline()
	}
	p.activeValueBuilder.AddSlice(pos, posEnd)
	p.activeNewlineLoc = p.r.Loc()
	p.activeValueEmpty = false
	return nil
}

func (p *Parser) addNewline() {
	p.activeValueBuilder.AddSynthetic('\n', p.activeNewlineLoc.Begin)
}

func (p *Parser) closeLastValue() error {
	if p.activeValueBuilder == nil {
		return nil
	}
	if p.activeValueEmpty {
		return diag.Syntaxf(p.activeValueLoc, "key '%s' does not have associated value", p.activeValueKey)
	}
	span := p.activeValueBuilder.Build(p.r.Tell())
	v := &Value{Loc: p.activeValueLoc, Key: p.activeValueKey, Span: span}
	p.activeSection.Values = append(p.activeSection.Values, v)

	p.activeValueKey = ""
	p.activeValueBuilder = nil
	p.activeValueLoc = source.Loc{}
	p.activeValueEmpty = false
	p.activeIndent = nil
	return nil
}

func (p *Parser) consumeCommentLine() {
	for {
		b, ok := p.r.Peek()
		if !ok {
			return
		}
		if isLineEnd(b) {
			p.consumeNewline()
			return
		}
		p.r.Advance()
	}
}

func (p *Parser) consumeEmptyLine() error {
	for {
		b, ok := p.r.Peek()
		if !ok {
			return nil
		}
		if isLineEnd(b) {
			p.consumeNewline()
			return nil
		}
		if isWhitespace(b) {
			p.r.Advance()
			continue
		}
		return diag.Syntaxf(p.r.Loc(), "unexpected character, expected empty line")
	}
}

func (p *Parser) consumeNewline() {
	b, ok := p.r.Peek()
	if !ok {
		return
	}
	if b == '\n' {
		p.r.Advance()
		return
	}
	if b == '\r' {
		p.r.Advance()
		if b2, ok2 := p.r.Peek(); ok2 && b2 == '\n' {
			p.r.Advance()
		}
	}
}

func (p *Parser) parseWord() (string, source.Loc, error) {
	begin := p.r.Loc()
	var chars []byte
	for {
		b, ok := p.r.Peek()
		if !ok || !isWordChar(b) {
			break
		}
		p.r.Advance()
		chars = append(chars, b)
	}
	if len(chars) == 0 {
		return "", source.Loc{}, diag.Syntaxf(begin, "expected word")
	}
	return string(chars), begin.To(p.r.Loc()), nil
}

func (p *Parser) skipWS() {
	for {
		b, ok := p.r.Peek()
		if !ok || !isWhitespace(b) {
			return
		}
		p.r.Advance()
	}
}

func (p *Parser) expect(b byte) error {
	got, ok := p.r.Peek()
	if !ok || got != b {
		return diag.Syntaxf(p.r.Loc(), "expected '%c'", b)
	}
	p.r.Advance()
	return nil
}
