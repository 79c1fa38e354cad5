package grammar

import (
	"testing"

	"github.com/lexforge/lexforge/charclass"
	"github.com/lexforge/lexforge/rx"
	"github.com/lexforge/lexforge/source"
)

func TestSingleRuleAccepts(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	tok := ctx.AddToken("IDENT")
	re := rx.Star{Re: rx.Char{Class: charclass.Range('a', 'z')}}
	ctx.AddRule(xs, source.Loc{}, tok, re, nil)

	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := xs.DFA
	s := d.Start
	for _, ch := range []byte("abc") {
		next := d.States[s].Trans[ch]
		if next == -1 {
			t.Fatalf("unexpected dead transition on %q", ch)
		}
		s = next
	}
	accept, ok := d.States[s].Accept.(*Rule)
	if !ok || accept.Token != tok {
		t.Fatalf("expected IDENT accept, got %#v", d.States[s].Accept)
	}
}

func TestPriorityBreaksMaximalMunchTie(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	kwTok := ctx.AddToken("IF")
	identTok := ctx.AddToken("IDENT")

	// "if" declared first should win over the identifier rule when both
	// match the same text, since earlier declaration order breaks ties.
	literalIf := rx.Concat{Left: rx.Char{Class: charclass.Byte('i')}, Right: rx.Char{Class: charclass.Byte('f')}}
	ctx.AddRule(xs, source.Loc{}, kwTok, literalIf, nil)
	identRe := rx.Star{Re: rx.Char{Class: charclass.Range('a', 'z')}}
	ctx.AddRule(xs, source.Loc{}, identTok, identRe, nil)

	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := xs.DFA
	s := d.Start
	for _, ch := range []byte("if") {
		s = d.States[s].Trans[ch]
	}
	accept := d.States[s].Accept.(*Rule)
	if accept.Token != kwTok {
		t.Fatalf("expected IF to win priority tie, got %s", accept.Token.Name)
	}
}

func TestFragmentReuse(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	digit := &Fragment{ID: "digit", Re: rx.Char{Class: charclass.Range('0', '9')}}
	if err := ctx.AddFragment(digit); err != nil {
		t.Fatalf("AddFragment: %v", err)
	}
	tok := ctx.AddToken("NUM")
	re := rx.Concat{
		Left:  rx.Ref{ID: "digit"},
		Right: rx.Star{Re: rx.Ref{ID: "digit"}},
	}
	ctx.AddRule(xs, source.Loc{}, tok, re, nil)

	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := xs.DFA
	s := d.Start
	for _, ch := range []byte("123") {
		next := d.States[s].Trans[ch]
		if next == -1 {
			t.Fatalf("fragment reuse broke matching on %q", ch)
		}
		s = next
	}
	if accept, ok := d.States[s].Accept.(*Rule); !ok || accept.Token != tok {
		t.Fatalf("expected NUM accept after matching digits")
	}
}

func TestUnusedRuleWarning(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	broad := ctx.AddToken("ANY")
	narrow := ctx.AddToken("A")
	ctx.AddRule(xs, source.Loc{}, broad, rx.Star{Re: rx.Char{Class: charclass.All()}}, nil)
	ctx.AddRule(xs, source.Loc{}, narrow, rx.Char{Class: charclass.Byte('a')}, nil)

	sink := &collectingSink{}
	if err := ctx.Build(sink, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(sink.warnings) == 0 {
		t.Fatalf("expected at least one warning for the shadowed rule")
	}
}

// TestStartStateTotalOnMultiByteLiteral guards against computing
// nonstartChars by following labeled transitions instead of stopping at
// the ε-closure: a rule matching only the literal "->" makes '-' a
// first byte but never '>', since '>' only appears after '-' has already
// been consumed. The implicit error rule's (nonstart_chars)* branch must
// still cover '>', so the combined start state stays total on every
// byte.
func TestStartStateTotalOnMultiByteLiteral(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	tok := ctx.AddToken("ARROW")
	arrow := rx.Concat{Left: rx.Char{Class: charclass.Byte('-')}, Right: rx.Char{Class: charclass.Byte('>')}}
	ctx.AddRule(xs, source.Loc{}, tok, arrow, nil)

	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := xs.DFA
	for _, b := range charclass.All().Bytes() {
		if d.States[d.Start].Trans[b] == -1 {
			t.Fatalf("start state has no transition on byte %q, expected totality", b)
		}
	}
}

type collectingSink struct {
	warnings []string
}

func (s *collectingSink) Warn(loc source.Loc, format string, args ...any) {
	s.warnings = append(s.warnings, format)
}

// mustParseRe parses text as a regex AST, failing the test on error.
func mustParseRe(t *testing.T, text string) rx.Node {
	t.Helper()
	f := source.NewFile("t.re", []byte(text))
	re, err := rx.Parse(source.NewSpan(f))
	if err != nil {
		t.Fatalf("rx.Parse(%q): %v", text, err)
	}
	return re
}

// lexToken is one token emitted by lexOne/lexAll.
type lexToken struct {
	name string
	text string
}

// lexOne runs a single longest-match-with-backtracking step starting at
// xs's start state, the way the generated table-driven scanner would:
// extend the match while the DFA keeps a live transition, remembering the
// most recent accepting state, then resetting to the accepting rule's
// target lexical state. Returns the matched token (whose text is the
// consumed input) and the lexical state to resume in; ok is false at a
// clean EOF with nothing left to match.
func lexOne(t *testing.T, xs *XState, input string) (tok lexToken, next *XState, ok bool) {
	t.Helper()
	if input == "" {
		return lexToken{}, xs, false
	}

	d := xs.DFA
	s := d.Start
	i := 0
	acceptLen := -1
	var acceptRule *Rule
	if d.States[s].Accept != nil {
		acceptLen = 0
		acceptRule = d.States[s].Accept.(*Rule)
	}
	for i < len(input) {
		target := d.States[s].Trans[input[i]]
		if target == -1 {
			break
		}
		s = target
		i++
		if d.States[s].Accept != nil {
			acceptLen = i
			acceptRule = d.States[s].Accept.(*Rule)
		}
	}
	if acceptRule == nil {
		t.Fatalf("no accepting state reached scanning %q in state %s (total-automaton invariant violated)", input, xs.ID)
	}
	return lexToken{name: acceptRule.Token.Name, text: input[:acceptLen]}, acceptRule.TargetState, true
}

// lexAll repeatedly applies lexOne until input is exhausted.
func lexAll(t *testing.T, start *XState, input string) []lexToken {
	t.Helper()
	var toks []lexToken
	xs := start
	for input != "" {
		tok, next, ok := lexOne(t, xs, input)
		if !ok {
			break
		}
		toks = append(toks, tok)
		input = input[len(tok.text):]
		xs = next
	}
	return toks
}

// TestClosureCorrectness exercises property 1 (spec.md §8): an NFA
// fragment built from branching ε-transitions that converge back to a
// single continuation must behave as if every ε-reachable state were
// folded into one, regardless of how many ε-hops separate them. `(a|)b`
// accepts both "ab" and "b" only if the optional branch's ε-closure is
// computed correctly across the alternation join point.
func TestClosureCorrectness(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	tok := ctx.AddToken("AB")
	re := rx.Concat{
		Left:  rx.Alt{Left: rx.Char{Class: charclass.Byte('a')}, Right: rx.Empty{}},
		Right: rx.Char{Class: charclass.Byte('b')},
	}
	ctx.AddRule(xs, source.Loc{}, tok, re, nil)
	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, in := range []string{"ab", "b"} {
		toks := lexAll(t, xs, in)
		if len(toks) != 1 || toks[0].name != "AB" || toks[0].text != in {
			t.Fatalf("input %q: expected single AB token spanning the whole input, got %#v", in, toks)
		}
	}
}

// TestPowersetEquivalence exercises property 2 (spec.md §8): the
// constructed (minimized) DFA's accept/first-token/longest-match
// behavior over several grammars matches what the regex the grammar was
// built from should accept.
func TestPowersetEquivalence(t *testing.T) {
	cases := []struct {
		name  string
		re    string
		input string
		want  string // expected matched text of the first token
	}{
		{"star", "[a-z]+", "abc123", "abc"},
		{"alt", "(\"if\"|[a-z]+)", "iffy", "iffy"},
		{"bounded", "[0-9]{2,4}", "12345", "1234"},
		{"prefix", "~\"hello\"", "hellp", "hell"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := NewContext()
			xs, _ := ctx.GetXState(source.Loc{}, "default")
			tok := ctx.AddToken("T")
			ctx.AddRule(xs, source.Loc{}, tok, mustParseRe(t, c.re), nil)
			if err := ctx.Build(nil, nil); err != nil {
				t.Fatalf("Build: %v", err)
			}
			toks := lexAll(t, xs, c.input)
			if len(toks) == 0 || toks[0].name != "T" || toks[0].text != c.want {
				t.Fatalf("%s: expected first token %q, got %#v", c.name, c.want, toks)
			}
		})
	}
}

// TestRulePriority exercises property 8 (spec.md §8) in full: maximal
// munch always wins regardless of declaration order, and declaration
// order only breaks a tie between rules that match the same length.
func TestRulePriority(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	kwTok := ctx.AddToken("IF")
	identTok := ctx.AddToken("IDENT")
	ctx.AddRule(xs, source.Loc{}, kwTok, mustParseRe(t, `"if"`), nil)
	ctx.AddRule(xs, source.Loc{}, identTok, mustParseRe(t, `[a-z]+`), nil)
	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if toks := lexAll(t, xs, "if"); len(toks) != 1 || toks[0].name != "IF" {
		t.Fatalf(`expected "if" to win the equal-length tie by declaration order, got %#v`, toks)
	}
	if toks := lexAll(t, xs, "ifx"); len(toks) != 1 || toks[0].name != "IDENT" || toks[0].text != "ifx" {
		t.Fatalf(`expected "ifx" to match IDENT by maximal munch despite IF's earlier order, got %#v`, toks)
	}
}

// TestScenarioS1 — spec.md §8 S1: single rule, error fallback, clean EOF.
func TestScenarioS1(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	ctx.AddToken("error")
	word := ctx.AddToken("word")
	ctx.AddRule(xs, source.Loc{}, word, mustParseRe(t, `[a-z]+`), nil)
	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	toks := lexAll(t, xs, "abc")
	if len(toks) != 1 || toks[0].name != "word" || toks[0].text != "abc" {
		t.Fatalf(`"abc": expected a single word token, got %#v`, toks)
	}

	toks = lexAll(t, xs, "abc1")
	if len(toks) != 2 || toks[0].name != "word" || toks[0].text != "abc" || toks[1].name != "error" || toks[1].text != "1" {
		t.Fatalf(`"abc1": expected word("abc") then error("1"), got %#v`, toks)
	}

	if toks := lexAll(t, xs, ""); len(toks) != 0 {
		t.Fatalf(`"": expected no tokens at a clean EOF, got %#v`, toks)
	}
}

// TestScenarioS2 — spec.md §8 S2: priority tie-break vs. maximal munch.
// Same grammar as TestRulePriority, kept as its own scenario case per
// the spec's S1-S6 list.
func TestScenarioS2(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	kwTok := ctx.AddToken("kw_if")
	identTok := ctx.AddToken("ident")
	ctx.AddRule(xs, source.Loc{}, kwTok, mustParseRe(t, `"if"`), nil)
	ctx.AddRule(xs, source.Loc{}, identTok, mustParseRe(t, `[a-z]+`), nil)
	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if toks := lexAll(t, xs, "if"); len(toks) != 1 || toks[0].name != "kw_if" {
		t.Fatalf(`"if": expected kw_if, got %#v`, toks)
	}
	if toks := lexAll(t, xs, "ifx"); len(toks) != 1 || toks[0].name != "ident" || toks[0].text != "ifx" {
		t.Fatalf(`"ifx": expected ident of length 3, got %#v`, toks)
	}
}

// TestScenarioS3 — spec.md §8 S3: fragment reuse inside a `+` repetition.
func TestScenarioS3(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	digit := &Fragment{ID: "digit", Re: mustParseRe(t, "[0-9]")}
	if err := ctx.AddFragment(digit); err != nil {
		t.Fatalf("AddFragment: %v", err)
	}
	num := ctx.AddToken("num")
	ctx.AddRule(xs, source.Loc{}, num, mustParseRe(t, "<digit>+"), nil)
	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	toks := lexAll(t, xs, "007")
	if len(toks) != 1 || toks[0].name != "num" || toks[0].text != "007" {
		t.Fatalf(`"007": expected a single num token of length 3, got %#v`, toks)
	}
}

// TestScenarioS4 — spec.md §8 S4: the prefix-of operator accepts every
// prefix of its operand, including the empty string.
func TestScenarioS4(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	partial := ctx.AddToken("partial")
	ctx.AddRule(xs, source.Loc{}, partial, mustParseRe(t, `~"hello"`), nil)
	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, in := range []string{"h", "he", "hell", "hello"} {
		toks := lexAll(t, xs, in)
		if len(toks) != 1 || toks[0].name != "partial" || toks[0].text != in {
			t.Fatalf("%q: expected a single partial token spanning the whole input, got %#v", in, toks)
		}
	}

	// "" is also a valid match of ~"hello" (the prefix operator accepts the
	// empty prefix too), but XState.build always clears the start state's
	// Accept so no lexical state ever emits a token for zero consumed
	// bytes — a clean EOF with no input left produces no tokens, same as
	// every other scenario's EOF case.
	if toks := lexAll(t, xs, ""); len(toks) != 0 {
		t.Fatalf(`"": expected no tokens at a clean EOF, got %#v`, toks)
	}

	toks := lexAll(t, xs, "hellp")
	if len(toks) != 2 || toks[0].name != "partial" || toks[0].text != "hell" || toks[1].name != "error" || toks[1].text != "p" {
		t.Fatalf(`"hellp": expected partial("hell") then error("p"), got %#v`, toks)
	}
}

// TestScenarioS5 — spec.md §8 S5: lexical-state transitions on a quoted
// string.
func TestScenarioS5(t *testing.T) {
	ctx := NewContext()
	def, _ := ctx.GetXState(source.Loc{}, "default")
	str := ctx.AddXState("str")

	openQ := ctx.AddToken("open_q")
	closeQ := ctx.AddToken("close_q")
	body := ctx.AddToken("body")
	ctx.AddRule(def, source.Loc{}, openQ, mustParseRe(t, `"\""`), str)
	ctx.AddRule(str, source.Loc{}, closeQ, mustParseRe(t, `"\""`), def)
	ctx.AddRule(str, source.Loc{}, body, mustParseRe(t, `[^"]+`), nil)
	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	toks := lexAll(t, def, `"abc"`)
	if len(toks) != 3 ||
		toks[0].name != "open_q" ||
		toks[1].name != "body" || toks[1].text != "abc" ||
		toks[2].name != "close_q" {
		t.Fatalf(`"\"abc\"": expected open_q, body("abc"), close_q, got %#v`, toks)
	}
}

// TestScenarioS6 — spec.md §8 S6: bounded repetition `{2,4}`.
func TestScenarioS6(t *testing.T) {
	ctx := NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	ctx.AddToken("error")
	num := ctx.AddToken("num")
	ctx.AddRule(xs, source.Loc{}, num, mustParseRe(t, "[0-9]{2,4}"), nil)
	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if toks := lexAll(t, xs, "1"); len(toks) != 1 || toks[0].name != "error" {
		t.Fatalf(`"1": expected a lone error token, got %#v`, toks)
	}
	if toks := lexAll(t, xs, "12"); len(toks) != 1 || toks[0].name != "num" || toks[0].text != "12" {
		t.Fatalf(`"12": expected a single num token, got %#v`, toks)
	}
	toks := lexAll(t, xs, "12345")
	if len(toks) != 2 || toks[0].name != "num" || toks[0].text != "1234" || toks[1].name != "error" || toks[1].text != "5" {
		t.Fatalf(`"12345": expected num("1234") then error("5"), got %#v`, toks)
	}
}
