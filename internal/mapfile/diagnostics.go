package mapfile

import "github.com/rs/zerolog"

// Diagnostic describes a brush that was dropped from the output.
type Diagnostic struct {
	Entity  int
	Brush   int
	Sides   int
	Message string
}

// Diagnostics receives non-fatal encoding problems.
type Diagnostics interface {
	Warn(d Diagnostic)
}

// DiagnosticsFunc adapts a function to Diagnostics.
type DiagnosticsFunc func(d Diagnostic)

// Warn calls f(d).
func (f DiagnosticsFunc) Warn(d Diagnostic) { f(d) }

type zerologDiagnostics struct {
	log zerolog.Logger
}

// ZerologDiagnostics logs every diagnostic at warn level on l.
func ZerologDiagnostics(l zerolog.Logger) Diagnostics {
	return zerologDiagnostics{log: l}
}

func (z zerologDiagnostics) Warn(d Diagnostic) {
	z.log.Warn().
		Int("entity", d.Entity).
		Int("brush", d.Brush).
		Int("sides", d.Sides).
		Msg(d.Message)
}
