package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipforge/internal/asr"
	"clipforge/internal/captions"
	"clipforge/internal/logging"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var model string
	var offset float64

	cmd := &cobra.Command{
		Use:   "transcribe <audio file>",
		Short: "Transcribe an audio file and write subtitle artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger := ctx.rootLogger()
			tempDir := filepath.Join(cfg.Paths.TempDir, uuid.NewString())
			if err := os.MkdirAll(tempDir, 0o755); err != nil {
				return fmt.Errorf("create temp directory: %w", err)
			}
			defer os.RemoveAll(tempDir)

			service := asr.NewService(cfg.WhisperBinary(), tempDir,
				logging.NewComponentLogger(logger, "asr"))

			modelSize := cfg.Audio.WhisperModel
			if strings.TrimSpace(model) != "" {
				modelSize = model
			}
			words, err := service.TranscribeWords(cmd.Context(), args[0], modelSize, cfg.Audio.UseVAD)
			if err != nil {
				return err
			}

			var text strings.Builder
			for _, word := range words {
				text.WriteString(word.Text)
				text.WriteByte(' ')
			}
			keywords := service.ExtractKeywords(text.String(), cfg.Captions.KeywordCount)

			writer, err := captions.NewWriter(tempDir, cfg.Paths.OutputDir, logger)
			if err != nil {
				return err
			}
			style := captions.Style{
				FontName:           cfg.Captions.FontName,
				FontSize:           cfg.Captions.FontSize,
				ActiveColor:        cfg.Captions.ActiveColor,
				KeywordColor:       cfg.Captions.KeywordColor,
				BorderThickness:    cfg.Captions.BorderThickness,
				MaxWordsPerLine:    cfg.Captions.MaxWordsPerLine,
				MaxWordsPerCaption: cfg.Captions.MaxWordsPerCaption,
				MaxCaptionMS:       cfg.Captions.MaxCaptionMS,
				Position:           captions.Position(cfg.Captions.Position),
				MarginV:            cfg.Captions.MarginV,
			}
			width, height, err := cfg.Visual.Dimensions()
			if err != nil {
				return err
			}

			stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			output, err := writer.Write(words, style, keywords, offset, stem, width, height)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Transcribed %d words\n", len(words))
			fmt.Fprintf(out, "SRT: %s\n", output.SRTPath)
			fmt.Fprintf(out, "VTT: %s\n", output.VTTPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Whisper model size override")
	cmd.Flags().Float64Var(&offset, "offset", 0, "Seconds added to every caption timestamp")
	return cmd
}
