package mapfile

import (
	"strconv"
	"strings"
)

const (
	// DefaultFractionDigits is the precision of ordinary map numbers.
	DefaultFractionDigits = 10
	// PatchFractionDigits is the precision of patch control points.
	PatchFractionDigits = 5
)

// NumberFormat renders floats in fixed point with at most FractionDigits
// digits after the decimal point. Output never depends on the host locale.
type NumberFormat struct {
	FractionDigits int
}

// Format renders v: no exponent, no grouping, trailing zeros trimmed.
func (nf NumberFormat) Format(v float64) string {
	digits := nf.FractionDigits
	if digits < 0 {
		digits = 0
	}
	s := strconv.FormatFloat(v, 'f', digits, 64)
	if strings.IndexByte(s, '.') >= 0 {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// Config controls one encode call.
type Config struct {
	Numbers      NumberFormat
	PatchNumbers NumberFormat
	Newline      string
	Diagnostics  Diagnostics
}

// DefaultConfig returns the Radiant map conventions: 10 fractional digits,
// 5 for patch control points, CRLF line endings and no diagnostics sink.
func DefaultConfig() Config {
	return Config{
		Numbers:      NumberFormat{FractionDigits: DefaultFractionDigits},
		PatchNumbers: NumberFormat{FractionDigits: PatchFractionDigits},
		Newline:      "\r\n",
	}
}

func (c Config) newline() string {
	if c.Newline == "" {
		return "\r\n"
	}
	return c.Newline
}
