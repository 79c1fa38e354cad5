// Package source tracks byte positions inside project-file input well
// enough to report "file(line,col)"-style diagnostics, including for text
// that was reassembled from several non-contiguous fragments of the
// original file (the project format's indent-stripped multi-line values,
// see the project package).
package source

import (
	"fmt"
	"sort"
)

// File is a named, fully-read source file. Line/column lookup is done by
// binary search over precomputed line-start offsets, following the
// approach used throughout this corpus for source location tracking.
type File struct {
	Name string
	Data []byte

	lineStarts []int
}

// NewFile wraps raw bytes as a named source file.
func NewFile(name string, data []byte) *File {
	f := &File{Name: name, Data: data}
	f.lineStarts = []int{0}
	for i, b := range data {
		if b == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
	return f
}

// LineCol returns the 1-based line and column for a byte offset into Data.
func (f *File) LineCol(offset int) (line, col int) {
	i := sort.Search(len(f.lineStarts), func(i int) bool { return f.lineStarts[i] > offset })
	line = i // i is 1-based line index since lineStarts[0]==0 covers line 1
	lineStart := f.lineStarts[i-1]
	col = offset - lineStart + 1
	return line, col
}

// Loc returns a zero-width location at the given byte offset.
func (f *File) Loc(offset int) Loc {
	return Loc{File: f, Begin: offset, End: offset}
}

// Loc is a span, possibly zero-width, within a File.
type Loc struct {
	File       *File
	Begin, End int
}

// To returns a Loc spanning from l's start to other's end. Both must share
// the same File.
func (l Loc) To(other Loc) Loc {
	return Loc{File: l.File, Begin: l.Begin, End: other.End}
}

// String renders a Loc as "file(line,col)" for a point, or
// "file(line1,col1:line2,col2)" for a range, matching the teacher corpus's
// diagnostic convention of always naming the originating file.
func (l Loc) String() string {
	if l.File == nil {
		return "<unknown>"
	}
	if l.Begin == l.End {
		line, col := l.File.LineCol(l.Begin)
		return fmt.Sprintf("%s(%d,%d)", l.File.Name, line, col)
	}
	line1, col1 := l.File.LineCol(l.Begin)
	line2, col2 := l.File.LineCol(l.End)
	return fmt.Sprintf("%s(%d,%d:%d,%d)", l.File.Name, line1, col1, line2, col2)
}

// Span is a contiguous run of text together with a per-byte backmap to the
// File offset it originated from. A Span's Text need not be a literal
// substring of File.Data: the project parser reassembles multi-line values
// from several indent-stripped line fragments, joined by synthetic
// newlines, and still wants every byte of the reassembled text to report
// an accurate source location.
type Span struct {
	File    *File
	Text    string
	offsets []int // offsets[i] is the File offset of Text[i]; len(offsets) == len(Text)+1, the last entry is the EOF loc
}

// NewSpan wraps an entire file as a single span with an identity backmap.
func NewSpan(f *File) *Span {
	offsets := make([]int, len(f.Data)+1)
	for i := range offsets {
		offsets[i] = i
	}
	return &Span{File: f, Text: string(f.Data), offsets: offsets}
}

// Slice returns the span of f.Data[begin:end] with an identity backmap.
func Slice(f *File, begin, end int) *Span {
	offsets := make([]int, end-begin+1)
	for i := range offsets {
		offsets[i] = begin + i
	}
	return &Span{File: f, Text: string(f.Data[begin:end]), offsets: offsets}
}

// Builder assembles a Span out of fragments drawn from one File, tracking
// the originating offset of every byte so the result can still be
// diagnosed precisely. Used by the project parser to stitch together
// multi-line indented values.
type Builder struct {
	file    *File
	text    []byte
	offsets []int
}

// NewBuilder starts an empty span builder rooted at f.
func NewBuilder(f *File) *Builder {
	return &Builder{file: f}
}

// AddSlice appends f.Data[begin:end] to the span under construction.
func (b *Builder) AddSlice(begin, end int) {
	for i := begin; i < end; i++ {
		b.text = append(b.text, b.file.Data[i])
		b.offsets = append(b.offsets, i)
	}
}

// AddSynthetic appends a byte that did not appear verbatim in the file
// (the newline stitched between two indent-stripped value lines) and
// attributes it to the given file offset for diagnostics.
func (b *Builder) AddSynthetic(ch byte, atOffset int) {
	b.text = append(b.text, ch)
	b.offsets = append(b.offsets, atOffset)
}

// Empty reports whether nothing has been added yet.
func (b *Builder) Empty() bool {
	return len(b.text) == 0
}

// Build finalizes the span. endOffset is the file offset reported for a
// position exactly at EOF of the built span (used for "expected X" errors
// that point just past the last consumed byte).
func (b *Builder) Build(endOffset int) *Span {
	offsets := append(append([]int{}, b.offsets...), endOffset)
	return &Span{File: b.file, Text: string(b.text), offsets: offsets}
}

// Reader is a cursor over a Span supporting one-byte lookahead.
type Reader struct {
	span *Span
	pos  int
}

// NewReader returns a Reader positioned at the start of span.
func NewReader(span *Span) *Reader {
	return &Reader{span: span, pos: 0}
}

// IsEOF reports whether the cursor has consumed the whole span.
func (r *Reader) IsEOF() bool {
	return r.pos >= len(r.span.Text)
}

// Peek returns the byte under the cursor without consuming it. ok is false
// at EOF.
func (r *Reader) Peek() (byte, bool) {
	if r.IsEOF() {
		return 0, false
	}
	return r.span.Text[r.pos], true
}

// Advance consumes one byte. A no-op at EOF.
func (r *Reader) Advance() {
	if !r.IsEOF() {
		r.pos++
	}
}

// Take consumes and returns the byte under the cursor. ok is false at EOF.
func (r *Reader) Take() (byte, bool) {
	b, ok := r.Peek()
	if ok {
		r.Advance()
	}
	return b, ok
}

// Loc returns the zero-width location of the cursor's current position.
func (r *Reader) Loc() Loc {
	idx := r.pos
	if idx >= len(r.span.offsets) {
		idx = len(r.span.offsets) - 1
	}
	return r.span.File.Loc(r.span.offsets[idx])
}

// Tell returns an opaque cursor position for later Rewind.
func (r *Reader) Tell() int {
	return r.pos
}

// Rewind resets the cursor to a position previously returned by Tell.
func (r *Reader) Rewind(pos int) {
	r.pos = pos
}

// Span returns the underlying span.
func (r *Reader) Span() *Span {
	return r.span
}
