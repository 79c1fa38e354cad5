// Package diag defines the diagnostic vocabulary shared by every parsing
// and compilation stage: the three error kinds from the error handling
// design (syntax, semantic, internal invariant) and the warning channel
// used for non-fatal notices (unused rule, EOF-only rule).
package diag

import (
	"fmt"

	"github.com/lexforge/lexforge/source"
)

// Kind classifies an Error by where in the pipeline it was detected and
// whether it indicates a bug in the generator itself.
type Kind int

const (
	// Syntax covers malformed regex, malformed project sections, bad
	// escapes, invalid bracket ranges, unterminated strings.
	Syntax Kind = iota
	// Semantic covers unknown fragment/state ids, duplicate fragments,
	// duplicate codegen keys, unused sections, missing values.
	Semantic
	// Internal indicates an invariant the pipeline should never violate;
	// surfaced without a source location since it reflects a generator
	// bug, not bad input.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax error"
	case Semantic:
		return "error"
	case Internal:
		return "internal error"
	default:
		return "error"
	}
}

// Error is the single error type the pipeline reports to its caller.
// Every syntax and semantic error carries the source location that
// detected it; internal invariant failures carry a zero Loc and are
// rendered without one.
type Error struct {
	Kind    Kind
	Loc     source.Loc
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == Internal || e.Loc.File == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Loc, e.Kind, e.Message)
}

// Syntaxf reports a syntax error at loc.
func Syntaxf(loc source.Loc, format string, args ...any) *Error {
	return &Error{Kind: Syntax, Loc: loc, Message: fmt.Sprintf(format, args...)}
}

// Semanticf reports a semantic error at loc.
func Semanticf(loc source.Loc, format string, args ...any) *Error {
	return &Error{Kind: Semantic, Loc: loc, Message: fmt.Sprintf(format, args...)}
}

// Internalf reports an internal invariant failure, with no source
// location since it indicates a generator bug rather than bad input.
func Internalf(format string, args ...any) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...)}
}

// Warning is a non-fatal notice: the pipeline keeps running after emitting
// one. Used for the unused-rule and EOF-only-rule notices from the
// implicit error rule construction.
type Warning struct {
	Loc     source.Loc
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: warning: %s", w.Loc, w.Message)
}

// Sink receives warnings as the pipeline runs. Stages that can produce
// warnings (currently grammar.Build) take a Sink rather than reaching for
// a global logger, so they stay testable without a live logging backend.
type Sink interface {
	Warn(loc source.Loc, format string, args ...any)
}

// DiscardSink drops every warning. Useful in tests that don't care about
// diagnostics.
type DiscardSink struct{}

// Warn implements Sink.
func (DiscardSink) Warn(source.Loc, string, ...any) {}

// CollectSink records every warning it receives, in order. Useful in tests
// that assert on which warnings were raised.
type CollectSink struct {
	Warnings []Warning
}

// Warn implements Sink.
func (s *CollectSink) Warn(loc source.Loc, format string, args ...any) {
	s.Warnings = append(s.Warnings, Warning{Loc: loc, Message: fmt.Sprintf(format, args...)})
}
