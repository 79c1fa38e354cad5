package diag

import (
	"github.com/lexforge/lexforge/source"
	"github.com/projectdiscovery/gologger"
)

// GologgerSink routes warnings to gologger's Warning level, matching the
// `{loc}: rule unused in state {state}`-style stderr lines the original
// generator printed directly, but through the corpus's structured logger
// instead of a bare print to stderr.
type GologgerSink struct{}

// Warn implements Sink.
func (GologgerSink) Warn(loc source.Loc, format string, args ...any) {
	gologger.Warning().Msgf("%s: "+format, append([]any{loc}, args...)...)
}

// Verbosity mirrors the original generator's `-v`/`-vv` counter: level 1
// logs major pipeline phases, level 2 adds per-state/per-rule detail.
// jellylib.log's numbered log(level, ...) calls map onto gologger's
// Verbose (level 1) and Debug (level 2) levels.
type Verbosity int

const (
	// Quiet disables all phase logging; only warnings and errors are shown.
	Quiet Verbosity = 0
	// Phases logs major pipeline phases (parsing, building, codegen).
	Phases Verbosity = 1
	// Detail additionally logs per-state and per-rule detail.
	Detail Verbosity = 2
)

// Logf logs a pipeline phase message at the given verbosity level, if the
// configured verbosity permits it.
func Logf(configured, level Verbosity, format string, args ...any) {
	if configured < level {
		return
	}
	switch level {
	case Detail:
		gologger.Debug().Msgf(format, args...)
	default:
		gologger.Verbose().Msgf(format, args...)
	}
}
