package filtergraph

import (
	"fmt"
	"strings"
)

// FinalLabel is the label of the finalized video stream, for -map.
const FinalLabel = "vout"

// Builder accumulates filter chains against a fixed canvas size. Labels are
// allocated in strict call order, so an identical call sequence always
// yields a byte-identical graph. A Builder is single-use and not safe for
// concurrent access.
type Builder struct {
	width   int
	height  int
	chains  []string
	counter int
	current string
}

// NewBuilder creates a builder for the given canvas resolution.
func NewBuilder(width, height int) *Builder {
	return &Builder{width: width, height: height}
}

func (b *Builder) nextLabel() string {
	label := fmt.Sprintf("v%d", b.counter)
	b.counter++
	return label
}

func (b *Builder) append(chain, label string) {
	b.chains = append(b.chains, chain)
	b.current = label
}

// AddBase starts the graph from a raw input with the given filter expression
// and makes the result the current stream.
func (b *Builder) AddBase(inputIndex int, filterExpr string) string {
	label := b.nextLabel()
	b.append(fmt.Sprintf("[%d:v]%s[%s]", inputIndex, filterExpr, label), label)
	return label
}

// AddScaledInput prepares an overlay source: scaled to fit the canvas,
// converted to an alpha-capable pixel format, timestamps reset. The returned
// label feeds Overlay; the current stream is unchanged.
func (b *Builder) AddScaledInput(inputIndex int) string {
	label := b.nextLabel()
	chain := fmt.Sprintf("[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,format=yuva420p,setpts=PTS-STARTPTS[%s]",
		inputIndex, b.width, b.height, label)
	b.chains = append(b.chains, chain)
	return label
}

// Overlay composites label onto the current stream, centered, optionally
// gated by enable.
func (b *Builder) Overlay(label string, enable Enable) string {
	out := b.nextLabel()
	overlay := "overlay=(W-w)/2:(H-h)/2"
	if enable.Gated() {
		overlay += fmt.Sprintf(":enable='%s'", enable.Expr())
	}
	b.append(fmt.Sprintf("[%s][%s]%s[%s]", b.current, label, overlay, out), out)
	return out
}

// ChromaKeyOverlay scales and formats the source, keys out keyColor within
// the similarity tolerance blended by blend, then composites it gated by
// enable. keyColor is a "#RRGGBB" hex string.
func (b *Builder) ChromaKeyOverlay(inputIndex int, keyColor string, similarity, blend float64, enable Enable) string {
	keyed := b.nextLabel()
	chain := fmt.Sprintf("[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,format=yuva420p,setpts=PTS-STARTPTS,chromakey=0x%s:%s:%s[%s]",
		inputIndex, b.width, b.height,
		normalizeHex(keyColor), formatSeconds(similarity), formatSeconds(blend), keyed)
	b.chains = append(b.chains, chain)
	return b.Overlay(keyed, enable)
}

// BurnSubtitles appends a subtitle-burn stage on the current stream,
// pointing the renderer at a private font directory and overriding the style
// font and vertical margin.
func (b *Builder) BurnSubtitles(assPath, fontsDir, fontName string, marginV int) string {
	out := b.nextLabel()
	filter := fmt.Sprintf("subtitles=filename='%s':fontsdir='%s':force_style='FontName=%s,MarginV=%d'",
		escapeFilterValue(assPath), escapeFilterValue(fontsDir), fontName, marginV)
	b.append(fmt.Sprintf("[%s]%s[%s]", b.current, filter, out), out)
	return out
}

// Finalize appends the pixel-format normalization stage and returns the
// whole graph joined by ';'. The chain history stays readable afterwards.
func (b *Builder) Finalize() string {
	b.append(fmt.Sprintf("[%s]format=yuv420p[%s]", b.current, FinalLabel), FinalLabel)
	return strings.Join(b.chains, ";")
}

// Current returns the label of the current output stream.
func (b *Builder) Current() string {
	return b.current
}

// Chains returns the appended chain strings in order, for diagnostics.
func (b *Builder) Chains() []string {
	out := make([]string, len(b.chains))
	copy(out, b.chains)
	return out
}

// StageCount reports how many chains have been appended.
func (b *Builder) StageCount() int {
	return len(b.chains)
}

func normalizeHex(keyColor string) string {
	h := strings.TrimPrefix(strings.TrimSpace(keyColor), "#")
	if len(h) != 6 {
		return "00FF00"
	}
	return strings.ToUpper(h)
}

// escapeFilterValue escapes the characters ffmpeg treats specially inside a
// quoted filter option value.
func escapeFilterValue(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
	)
	return replacer.Replace(value)
}
