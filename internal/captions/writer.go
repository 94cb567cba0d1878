package captions

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/logging"
)

// Burn file lives in the temp directory under a fixed name so the filter
// graph can reference it before the output stem is known.
const assFileName = "subs.ass"

// Output holds the paths of the generated subtitle files. ASS goes to the
// temp directory for burning; SRT and VTT are delivery sidecars.
type Output struct {
	ASSPath string
	SRTPath string
	VTTPath string
}

// Writer generates the three subtitle artifacts for a render job.
type Writer struct {
	tempDir string
	outDir  string
	logger  *slog.Logger
}

// NewWriter creates both directories if needed.
func NewWriter(tempDir, outDir string, logger *slog.Logger) (*Writer, error) {
	if strings.TrimSpace(tempDir) == "" || strings.TrimSpace(outDir) == "" {
		return nil, fmt.Errorf("captions writer: temp and output directories required")
	}
	for _, dir := range []string{tempDir, outDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return &Writer{
		tempDir: tempDir,
		outDir:  outDir,
		logger:  logging.NewComponentLogger(logger, "captions"),
	}, nil
}

// Write validates and sorts words, segments them, and writes the ASS, SRT,
// and VTT files. Malformed words are dropped; zero valid words still produce
// header-only files so downstream paths stay resolvable.
func (w *Writer) Write(words []Word, style Style, keywords []string, offset float64, stem string, playResX, playResY int) (Output, error) {
	out := Output{
		ASSPath: filepath.Join(w.tempDir, assFileName),
		SRTPath: filepath.Join(w.outDir, stem+".srt"),
		VTTPath: filepath.Join(w.outDir, stem+".vtt"),
	}

	valid := make([]Word, 0, len(words))
	for _, word := range words {
		if checked, ok := NewWord(word.Start, word.End, word.Text); ok {
			valid = append(valid, checked)
		}
	}
	SortWords(valid)
	if dropped := len(words) - len(valid); dropped > 0 {
		w.logger.Warn("dropped malformed transcript words", logging.Args(logging.Int("dropped", dropped))...)
	}

	keywordSet := make(map[string]struct{}, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			keywordSet[keyword] = struct{}{}
		}
	}

	chunks := Segment(valid, style)
	encoder := ASSEncoder{Style: style, PlayResX: playResX, PlayResY: playResY}

	if err := writeFile(out.ASSPath, encoder.Encode(chunks, keywordSet, offset)); err != nil {
		return Output{}, err
	}
	if err := writeFile(out.SRTPath, EncodeSRT(chunks, offset)); err != nil {
		return Output{}, err
	}
	if err := writeFile(out.VTTPath, EncodeVTT(chunks, offset)); err != nil {
		return Output{}, err
	}

	w.logger.Info("subtitles written",
		logging.Args(
			logging.Int("words", len(valid)),
			logging.Int("chunks", len(chunks)),
			logging.Int("keywords", len(keywordSet)),
		)...)
	return out, nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write subtitle file %s: %w", path, err)
	}
	return nil
}
