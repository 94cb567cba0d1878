package captions

import (
	"fmt"
	"strings"
)

// ASSEncoder renders chunks into an Advanced SubStation Alpha document with
// per-word color animation.
type ASSEncoder struct {
	Style    Style
	PlayResX int
	PlayResY int
}

// Encode builds the complete ASS document. Keywords must be lowercased;
// words whose normalized text appears in the set animate to the keyword
// color instead of the active color.
func (e ASSEncoder) Encode(chunks []Chunk, keywords map[string]struct{}, offset float64) string {
	style := e.Style.normalized()

	var b strings.Builder
	b.WriteString(e.header(style))
	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		b.WriteString(e.dialogue(style, chunk, keywords, offset))
	}
	return b.String()
}

func (e ASSEncoder) header(style Style) string {
	return fmt.Sprintf(
		"[Script Info]\n"+
			"Title: clipforge captions\n"+
			"ScriptType: v4.00+\n"+
			"PlayResX: %d\n"+
			"PlayResY: %d\n"+
			"WrapStyle: 1\n"+
			"ScaledBorderAndShadow: yes\n"+
			"\n"+
			"[V4+ Styles]\n"+
			"Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, "+
			"OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, "+
			"ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, "+
			"Alignment, MarginL, MarginR, MarginV, Encoding\n"+
			"Style: Default,%s,%d,&H00FFFFFF,&H00FFFFFF,&H00000000,&H64000000,"+
			"-1,0,0,0,100,100,0,0,1,%d,3,%d,80,80,%d,1\n"+
			"\n",
		e.PlayResX, e.PlayResY,
		style.FontName, style.FontSize,
		style.BorderThickness, style.Position.Alignment(), style.MarginV,
	)
}

func (e ASSEncoder) dialogue(style Style, chunk Chunk, keywords map[string]struct{}, offset float64) string {
	start, end := ClampWindow(chunk.Start(), chunk.End(), offset)
	chunkStart := chunk.Start()

	lines := splitDisplayLines(chunk, style.MaxWordsPerLine)
	animated := make([]string, 0, len(lines))
	for _, line := range lines {
		animated = append(animated, e.animateLine(style, line, keywords, chunkStart))
	}

	return fmt.Sprintf("Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
		FormatASS(start), FormatASS(end), strings.Join(animated, "\\N"))
}

func splitDisplayLines(chunk Chunk, maxWords int) []Chunk {
	var lines []Chunk
	var current Chunk
	for _, word := range chunk {
		current = append(current, word)
		if len(current) >= maxWords {
			lines = append(lines, current)
			current = nil
		}
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return lines
}

// animateLine emits one override-tag run per word: start white, transition
// to the highlight color over the word's own window relative to the chunk
// start, then snap back to white 1 ms later.
func (e ASSEncoder) animateLine(style Style, line Chunk, keywords map[string]struct{}, chunkStart float64) string {
	var b strings.Builder
	for _, word := range line {
		startMS := int((word.Start - chunkStart) * 1000)
		if startMS < 0 {
			startMS = 0
		}
		endMS := int((word.End - chunkStart) * 1000)
		if endMS <= startMS {
			endMS = startMS + 1
		}

		highlight := style.ActiveColor
		if _, ok := keywords[word.NormalizedText()]; ok {
			highlight = style.KeywordColor
		}
		bgr := HexToBGR(highlight)

		fmt.Fprintf(&b, "{\\bord%d}{\\1c&HFFFFFF&}{\\t(%d,%d,\\1c&H%s&)}{\\t(%d,%d,\\1c&HFFFFFF&)}%s ",
			style.BorderThickness, startMS, endMS, bgr, endMS, endMS+1, SanitizeASS(word.Text))
	}
	return strings.TrimSpace(b.String())
}
