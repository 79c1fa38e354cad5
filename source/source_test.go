package source

import "testing"

func TestLineCol(t *testing.T) {
	f := NewFile("t.lex", []byte("abc\ndef\nghi"))
	line, col := f.LineCol(0)
	if line != 1 || col != 1 {
		t.Errorf("expected (1,1), got (%d,%d)", line, col)
	}
	line, col = f.LineCol(5) // 'e' on second line
	if line != 2 || col != 2 {
		t.Errorf("expected (2,2), got (%d,%d)", line, col)
	}
	line, col = f.LineCol(8) // 'g' on third line
	if line != 3 || col != 1 {
		t.Errorf("expected (3,1), got (%d,%d)", line, col)
	}
}

func TestLocString(t *testing.T) {
	f := NewFile("t.lex", []byte("abc\ndef"))
	l := f.Loc(5)
	if l.String() != "t.lex(2,2)" {
		t.Errorf("unexpected loc string: %s", l.String())
	}
}

func TestReaderOverSpan(t *testing.T) {
	f := NewFile("t.lex", []byte("abc"))
	span := NewSpan(f)
	r := NewReader(span)
	var got []byte
	for !r.IsEOF() {
		b, _ := r.Take()
		got = append(got, b)
	}
	if string(got) != "abc" {
		t.Errorf("expected abc, got %s", got)
	}
}

func TestBuilderSyntheticBackmap(t *testing.T) {
	f := NewFile("t.lex", []byte("abc\n   def"))
	b := NewBuilder(f)
	b.AddSlice(0, 3) // "abc"
	b.AddSynthetic('\n', 3)
	b.AddSlice(7, 10) // "def"
	span := b.Build(10)

	r := NewReader(span)
	if span.Text != "abc\ndef" {
		t.Fatalf("unexpected reassembled text: %q", span.Text)
	}
	// Walk to the 'd' and confirm its location points at the real file offset 7.
	for i := 0; i < 4; i++ {
		r.Advance()
	}
	line, col := f.LineCol(7)
	loc := r.Loc()
	wantLine, wantCol := line, col
	gotLine, gotCol := loc.File.LineCol(loc.Begin)
	if gotLine != wantLine || gotCol != wantCol {
		t.Errorf("expected (%d,%d), got (%d,%d)", wantLine, wantCol, gotLine, gotCol)
	}
}
