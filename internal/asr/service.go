// Package asr shells out to a Whisper-compatible CLI for word-level
// transcription and derives highlight keywords from transcripts.
package asr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"clipforge/internal/captions"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Runner executes an external command and returns stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

// Service wraps the transcription CLI. The binary must produce JSON output
// with segment and word timing (whisper-ctranslate2 and compatible tools).
type Service struct {
	binary  string
	tempDir string
	logger  *slog.Logger
	runner  Runner
}

// NewService builds a transcription service writing intermediate JSON under
// tempDir.
func NewService(binary, tempDir string, logger *slog.Logger) *Service {
	if strings.TrimSpace(binary) == "" {
		binary = "whisper-ctranslate2"
	}
	return &Service{
		binary:  binary,
		tempDir: tempDir,
		logger:  logging.NewComponentLogger(logger, "asr"),
		runner:  runCommand,
	}
}

// WithRunner overrides command execution (for testing).
func (s *Service) WithRunner(runner Runner) {
	if runner != nil {
		s.runner = runner
	}
}

// TranscribeWords transcribes audioPath and returns word timings sorted by
// start. Words with missing or non-finite timing are dropped.
func (s *Service) TranscribeWords(ctx context.Context, audioPath, modelSize string, useVAD bool) ([]captions.Word, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, services.Wrap(services.ErrAsset, "asr", "transcribe", fmt.Sprintf("audio file not found: %s", audioPath), err)
	}
	if strings.TrimSpace(modelSize) == "" {
		modelSize = "medium"
	}
	outputDir := filepath.Join(s.tempDir, "transcript")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure transcript directory: %w", err)
	}

	args := []string{
		audioPath,
		"--model", modelSize,
		"--output_format", "json",
		"--output_dir", outputDir,
		"--word_timestamps", "True",
	}
	if useVAD {
		args = append(args, "--vad_filter", "True")
	}

	start := time.Now()
	if _, stderr, err := s.runner(ctx, s.binary, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "asr", "transcribe", strings.TrimSpace(stderr), err)
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, stem+".json")
	payload, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "asr", "transcribe", fmt.Sprintf("transcript output missing: %s", jsonPath), err)
	}

	words := ParseWords(string(payload))
	s.logger.Info("transcription complete",
		logging.Args(
			logging.Int("words", len(words)),
			logging.String("model", modelSize),
			logging.Duration("elapsed", time.Since(start)),
		)...)
	return words, nil
}

// ExtractKeywords ranks content words in the transcript text, satisfying
// the render pipeline's transcriber contract.
func (s *Service) ExtractKeywords(text string, topK int) []string {
	return ExtractKeywords(text, topK)
}

// ParseWords extracts word timings from whisper JSON output. Both the
// nested segments[].words[] layout and a flat word_segments[] layout are
// accepted; malformed rows are dropped.
func ParseWords(payload string) []captions.Word {
	parsed := gjson.Parse(payload)

	var words []captions.Word
	collect := func(row gjson.Result) {
		start := row.Get("start")
		end := row.Get("end")
		text := strings.TrimSpace(row.Get("word").String())
		if text == "" {
			text = strings.TrimSpace(row.Get("text").String())
		}
		if start.Type != gjson.Number || end.Type != gjson.Number || text == "" {
			return
		}
		if word, ok := captions.NewWord(start.Float(), end.Float(), text); ok {
			words = append(words, word)
		}
	}

	if segments := parsed.Get("segments"); segments.Exists() {
		segments.ForEach(func(_, segment gjson.Result) bool {
			segment.Get("words").ForEach(func(_, row gjson.Result) bool {
				collect(row)
				return true
			})
			return true
		})
	}
	if flat := parsed.Get("word_segments"); flat.Exists() {
		flat.ForEach(func(_, row gjson.Result) bool {
			collect(row)
			return true
		})
	}

	captions.SortWords(words)
	return words
}

func runCommand(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
