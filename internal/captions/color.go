package captions

import (
	"fmt"
	"strings"
)

const defaultBGR = "FFFFFF"

// HexToBGR converts "#RRGGBB" to the "BBGGRR" ordering used by ASS styling.
// Malformed input falls back to white.
func HexToBGR(hexRGB string) string {
	h := strings.TrimPrefix(strings.TrimSpace(hexRGB), "#")
	if !isHex6(h) {
		return defaultBGR
	}
	return strings.ToUpper(h[4:6] + h[2:4] + h[0:2])
}

// BGRToHex reverses HexToBGR, restoring the "#RRGGBB" form.
func BGRToHex(bgr string) string {
	b := strings.TrimSpace(bgr)
	if !isHex6(b) {
		return "#" + defaultBGR
	}
	return "#" + strings.ToUpper(b[4:6]+b[2:4]+b[0:2])
}

// ASSColor renders a BGR triplet as an &HAABBGGRR& color. Alpha 00 is fully
// opaque, FF fully transparent.
func ASSColor(bgr, alpha string) string {
	if alpha == "" {
		alpha = "00"
	}
	return fmt.Sprintf("&H%s%s&", alpha, bgr)
}

func isHex6(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
