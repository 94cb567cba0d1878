package captions

import "strings"

// SanitizeASS strips control characters and replaces the characters that are
// structurally significant in ASS override markup. Backslash becomes a
// visually similar set-minus rune; braces become parentheses.
func SanitizeASS(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 0x00 && r <= 0x08, r >= 0x0B && r <= 0x1F, r == 0x7F:
			// dropped
		case r == '\\':
			b.WriteRune('⧵')
		case r == '{':
			b.WriteByte('(')
		case r == '}':
			b.WriteByte(')')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SanitizePlain collapses whitespace runs for SRT/VTT text lines.
func SanitizePlain(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
