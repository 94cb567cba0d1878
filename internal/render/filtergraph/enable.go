// Package filtergraph builds deterministic ffmpeg filter-graph strings with
// append-only label tracking.
package filtergraph

import (
	"fmt"
	"strings"
)

type enableKind int

const (
	enableAlways enableKind = iota
	enableBetween
	enablePeriodic
)

// Enable is a time-gating expression for an overlay. The zero value gates
// nothing (always visible).
type Enable struct {
	kind   enableKind
	start  float64
	end    float64
	repeat float64
}

// Always returns an ungated Enable.
func Always() Enable {
	return Enable{kind: enableAlways}
}

// Between gates visibility to the closed window [start, end] seconds.
func Between(start, end float64) Enable {
	return Enable{kind: enableBetween, start: start, end: end}
}

// Periodic gates visibility to the instants start, start+repeat,
// start+2*repeat, and so on. The repeat interval must be positive; callers
// validate it before building a graph.
func Periodic(start, repeat float64) (Enable, error) {
	if repeat <= 0 {
		return Enable{}, fmt.Errorf("periodic enable: repeat interval must be positive, got %g", repeat)
	}
	return Enable{kind: enablePeriodic, start: start, repeat: repeat}, nil
}

// Gated reports whether the expression restricts visibility at all.
func (e Enable) Gated() bool {
	return e.kind != enableAlways
}

// Expr serializes the gate for an enable= filter option. Ungated expressions
// serialize to the empty string.
func (e Enable) Expr() string {
	switch e.kind {
	case enableBetween:
		return fmt.Sprintf("between(t,%s,%s)", formatSeconds(e.start), formatSeconds(e.end))
	case enablePeriodic:
		start := formatSeconds(e.start)
		return fmt.Sprintf("gte(t,%s)*eq(mod(t-%s,%s),0)", start, start, formatSeconds(e.repeat))
	default:
		return ""
	}
}

// formatSeconds renders a duration with fixed millisecond precision and no
// trailing zeros, so identical inputs always serialize identically.
func formatSeconds(value float64) string {
	s := fmt.Sprintf("%.3f", value)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
