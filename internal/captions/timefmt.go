package captions

import (
	"fmt"
	"math"
)

// FormatSRT renders seconds as HH:MM:SS,mmm.
func FormatSRT(seconds float64) string {
	ms := int(math.Round(math.Max(0, seconds) * 1000))
	h := ms / 3_600_000
	r := ms % 3_600_000
	m := r / 60_000
	r %= 60_000
	s := r / 1000
	ms = r % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatVTT renders seconds as HH:MM:SS.mmm.
func FormatVTT(seconds float64) string {
	ms := int(math.Round(math.Max(0, seconds) * 1000))
	h := ms / 3_600_000
	r := ms % 3_600_000
	m := r / 60_000
	r %= 60_000
	s := r / 1000
	ms = r % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// FormatASS renders seconds as H:MM:SS.cc (centisecond precision, hours not
// zero-padded).
func FormatASS(seconds float64) string {
	cs := int(math.Round(math.Max(0, seconds) * 100))
	h := cs / 360_000
	r := cs % 360_000
	m := r / 6_000
	r %= 6_000
	s := r / 100
	cs = r % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// ClampWindow applies offset to a start/end pair and forces a valid visible
// window: both floored at 0, end at least 1 ms after start. Non-finite input
// collapses to the default 1 ms window at zero.
func ClampWindow(start, end, offset float64) (float64, float64) {
	s := math.Max(0, start+offset)
	e := math.Max(0, end+offset)
	if !finite(s) || !finite(e) {
		return 0, 0.001
	}
	if e < s+0.001 {
		e = s + 0.001
	}
	return s, e
}
