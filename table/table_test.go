package table

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/lexforge/lexforge/charclass"
	"github.com/lexforge/lexforge/dfa"
	"github.com/lexforge/lexforge/grammar"
	"github.com/lexforge/lexforge/rx"
	"github.com/lexforge/lexforge/source"
)

func buildSimpleCtx(t *testing.T) *grammar.Context {
	t.Helper()
	ctx := grammar.NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	tok := ctx.AddToken("IDENT")
	re := rx.Star{Re: rx.Char{Class: charclass.Range('a', 'z')}}
	ctx.AddRule(xs, source.Loc{}, tok, re, nil)
	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("grammar Build: %v", err)
	}
	return ctx
}

func TestEqClassesPartitionAllBytes(t *testing.T) {
	ctx := buildSimpleCtx(t)
	tbl := Build(ctx)

	var total int
	for _, c := range tbl.Classes {
		total += c.Len()
	}
	if total != 256 {
		t.Fatalf("expected classes to cover all 256 bytes exactly once, got %d", total)
	}

	// a-z should land in the same class since the DFA treats every
	// letter identically.
	if tbl.ClassOf['a'] != tbl.ClassOf['m'] || tbl.ClassOf['a'] != tbl.ClassOf['z'] {
		t.Fatalf("expected a-z to share one equivalence class")
	}
}

func TestEntryPointsCoverEveryXState(t *testing.T) {
	ctx := buildSimpleCtx(t)
	tbl := Build(ctx)
	if tbl.EntryPoints["default"] == nil {
		t.Fatalf("expected an entry point for the default state")
	}
}

func TestTransitionsCarryTokenOnAccept(t *testing.T) {
	ctx := buildSimpleCtx(t)
	tbl := Build(ctx)

	// The start state never accepts, so look at the state reached from it
	// on 'a', which accepts IDENT.
	entry := tbl.EntryPoints["default"]
	afterA := entry.XState.DFA.States[entry.Local].Trans['a']
	accepting := tbl.stateIndex[stateKey{entry.XState, afterA}]
	clsA := tbl.ClassOf['a']
	word := tbl.Transitions[clsA][accepting.Index]
	if !strings.Contains(word, "TOKEN(IDENT)") {
		t.Fatalf("expected accepting row to carry TOKEN(IDENT), got %s", word)
	}
}

func TestEOFHasOneEntryPerState(t *testing.T) {
	ctx := buildSimpleCtx(t)
	tbl := Build(ctx)
	if len(tbl.EOF) != len(tbl.States) {
		t.Fatalf("expected one EOF word per state, got %d for %d states", len(tbl.EOF), len(tbl.States))
	}
}

// buildOverlappingCtx builds a grammar with two rules sharing a prefix so
// the resulting DFA has states whose bytes split into non-trivial
// equivalence classes (not just "everything behaves the same").
func buildOverlappingCtx(t *testing.T) *grammar.Context {
	t.Helper()
	ctx := grammar.NewContext()
	xs, _ := ctx.GetXState(source.Loc{}, "default")
	kw := ctx.AddToken("IF")
	ident := ctx.AddToken("IDENT")
	ctx.AddRule(xs, source.Loc{}, kw, mustParseTableRe(t, `"if"`), nil)
	ctx.AddRule(xs, source.Loc{}, ident, mustParseTableRe(t, `[a-z]+`), nil)
	if err := ctx.Build(nil, nil); err != nil {
		t.Fatalf("grammar Build: %v", err)
	}
	return ctx
}

func mustParseTableRe(t *testing.T, text string) rx.Node {
	t.Helper()
	f := source.NewFile("t.re", []byte(text))
	re, err := rx.Parse(source.NewSpan(f))
	if err != nil {
		t.Fatalf("rx.Parse(%q): %v", text, err)
	}
	return re
}

// TestEquivalenceClassSoundness exercises property 5 (spec.md §8): two
// bytes placed in the same equivalence class must be indistinguishable
// to every state's DFA transition, not just the states used to discover
// the partition.
func TestEquivalenceClassSoundness(t *testing.T) {
	ctx := buildOverlappingCtx(t)
	tbl := Build(ctx)

	for _, xs := range ctx.XStates() {
		xs.DFA.Visit(func(id dfa.StateID) {
			st := &xs.DFA.States[id]
			for _, cls := range tbl.Classes {
				bytes := cls.Bytes()
				if len(bytes) < 2 {
					continue
				}
				want := st.Trans[bytes[0]]
				for _, b := range bytes[1:] {
					if st.Trans[b] != want {
						t.Fatalf("state %d: bytes %q and %q are in the same equivalence class but transition differently (%v vs %v)", id, bytes[0], b, want, st.Trans[b])
					}
				}
			}
		})
	}
}

var wordRe = regexp.MustCompile(`^0x([0-9a-fA-F]+)(?:\|\(\(TOKEN\((\w+)\)\)<<16\)\)?)?$`)

// decodeWord parses a transition word emitted by encodeWord back into its
// raw value (offset plus accept bit, if set) and the token name (if any)
// embedded in its high bits.
func decodeWord(t *testing.T, word string) (raw uint32, tokenName string) {
	t.Helper()
	m := wordRe.FindStringSubmatch(word)
	if m == nil {
		t.Fatalf("transition word %q did not match the expected encoding", word)
	}
	n, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		t.Fatalf("transition word %q: bad hex payload: %v", word, err)
	}
	return uint32(n), m[2]
}

// TestTableRoundTrip exercises property 6 (spec.md §8): every transition
// word the table encodes decodes back to exactly the state, accept flag,
// and token the DFA it was built from actually has — round-tripping
// through the string encoding loses nothing a generated scanner needs.
func TestTableRoundTrip(t *testing.T) {
	ctx := buildOverlappingCtx(t)
	tbl := Build(ctx)

	offsetToState := make(map[uint32]*CodegenState)
	for _, cs := range tbl.States {
		offsetToState[cs.Offset] = cs
	}

	for _, cs := range tbl.States {
		st := &cs.XState.DFA.States[cs.Local]
		resetSt := &cs.resetXState.DFA.States[cs.resetLocal]
		accepts := st.Accept != nil
		var wantToken string
		if accepts {
			wantToken = st.Accept.(*grammar.Rule).Token.Name
		}

		for clsIdx, cls := range tbl.Classes {
			rep, _ := cls.Min()
			word := tbl.Transitions[clsIdx][cs.Index]
			raw, tokenName := decodeWord(t, word)

			if accepts {
				if tokenName != wantToken {
					t.Fatalf("state %d class %d: decoded token %q, want %q", cs.Index, clsIdx, tokenName, wantToken)
				}
			} else if tokenName != "" {
				t.Fatalf("state %d class %d: non-accepting state encoded a token %q", cs.Index, clsIdx, tokenName)
			}

			offset := raw &^ acceptBit
			if target := st.Trans[rep]; target != dfa.Dead {
				want := offsetToState[offset]
				if want == nil || want.XState != cs.XState || want.Local != target {
					t.Fatalf("state %d class %d: live transition decoded to the wrong state", cs.Index, clsIdx)
				}
				if raw&acceptBit != 0 {
					t.Fatalf("state %d class %d: accept bit set on a live (non-backtracking) transition", cs.Index, clsIdx)
				}
			} else if resetTarget := resetSt.Trans[rep]; resetTarget != dfa.Dead {
				want := offsetToState[offset]
				if want == nil || want.XState != cs.resetXState || want.Local != resetTarget {
					t.Fatalf("state %d class %d: backtracking transition decoded to the wrong state", cs.Index, clsIdx)
				}
				if accepts && raw&acceptBit == 0 {
					t.Fatalf("state %d class %d: expected accept bit set on this state's backtracking transition", cs.Index, clsIdx)
				}
			} else if offset != 0 {
				t.Fatalf("state %d class %d: dead end encoded a non-zero offset %d", cs.Index, clsIdx, offset)
			}
		}
	}
}
