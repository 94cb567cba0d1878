package captions

import (
	"fmt"
	"strings"
)

// EncodeSRT renders chunks as a numbered SRT document.
func EncodeSRT(chunks []Chunk, offset float64) string {
	var b strings.Builder
	index := 0
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		index++
		start, end := ClampWindow(chunk.Start(), chunk.End(), offset)
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			index, FormatSRT(start), FormatSRT(end), SanitizePlain(chunkText(chunk)))
	}
	return b.String()
}

func chunkText(chunk Chunk) string {
	parts := make([]string, 0, len(chunk))
	for _, word := range chunk {
		parts = append(parts, word.Text)
	}
	return strings.Join(parts, " ")
}
