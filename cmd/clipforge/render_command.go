package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipforge/internal/asr"
	"clipforge/internal/logging"
	"clipforge/internal/render"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var outputName string
	var noCaptions bool
	var keepTemp bool

	cmd := &cobra.Command{
		Use:   "render [audio files...]",
		Short: "Render a captioned video from the configured assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCfg := *cfg
			if len(args) > 0 {
				runCfg.Audio.Files = args
			}
			if name := strings.TrimSpace(outputName); name != "" {
				if filepath.Ext(name) == "" {
					name += ".mp4"
				}
				runCfg.Render.OutputName = name
			}

			logger := ctx.rootLogger()
			tempDir := filepath.Join(runCfg.Paths.TempDir, uuid.NewString())
			if err := os.MkdirAll(tempDir, 0o755); err != nil {
				return fmt.Errorf("create temp directory: %w", err)
			}
			if !keepTemp {
				defer os.RemoveAll(tempDir)
			}

			var transcriber render.Transcriber
			if !noCaptions {
				transcriber = asr.NewService(runCfg.WhisperBinary(), tempDir,
					logging.NewComponentLogger(logger, "asr"))
			}

			orchestrator, err := render.NewOrchestrator(&runCfg, tempDir, transcriber, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			orchestrator.WithProgress(func(stage string) {
				fmt.Fprintf(out, "%s...\n", stage)
			})

			result, err := orchestrator.Render(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Rendered %s (%.1fs, %s)\n",
				result.OutputPath, result.TotalDuration, result.Encoder)
			if result.SubtitlePath != "" {
				fmt.Fprintf(out, "Subtitles: %s\n", result.SubtitlePath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputName, "output", "o", "", "Output file name inside the output directory")
	cmd.Flags().BoolVar(&noCaptions, "no-captions", false, "Skip transcription and caption burn-in")
	cmd.Flags().BoolVar(&keepTemp, "keep-temp", false, "Keep the render temp directory for debugging")
	return cmd
}
