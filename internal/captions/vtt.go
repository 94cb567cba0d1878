package captions

import (
	"fmt"
	"strings"
)

// EncodeVTT renders chunks as a WebVTT document.
func EncodeVTT(chunks []Chunk, offset float64) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		start, end := ClampWindow(chunk.Start(), chunk.End(), offset)
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			FormatVTT(start), FormatVTT(end), SanitizePlain(chunkText(chunk)))
	}
	return b.String()
}
