package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/captions"
	"clipforge/internal/config"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/media/loudness"
	"clipforge/internal/render/filtergraph"
	"clipforge/internal/services"
)

// Transcriber supplies word-level timings and ranked keywords for caption
// generation. A nil Transcriber renders without captions.
type Transcriber interface {
	TranscribeWords(ctx context.Context, audioPath, modelSize string, useVAD bool) ([]captions.Word, error)
	ExtractKeywords(text string, topK int) []string
}

// Result describes a finished render.
type Result struct {
	OutputPath    string
	SubtitlePath  string
	TotalDuration float64
	Encoder       string
	GraphStages   int
}

// Orchestrator drives one render job end to end inside its own temp
// directory. Instances must not be shared across concurrent jobs: the
// intermediate file names inside the temp directory are fixed.
type Orchestrator struct {
	cfg         *config.Config
	tempDir     string
	logger      *slog.Logger
	runner      Runner
	transcriber Transcriber
	normalizer  *loudness.Normalizer
	probe       func(ctx context.Context, path string) float64
	progress    func(stage string)
}

// Stage names reported through the progress hook, in execution order.
const (
	StageNormalizing  = "normalizing"
	StageTranscribing = "transcribing"
	StageRendering    = "rendering"
)

// NewOrchestrator builds an orchestrator scoped to tempDir.
func NewOrchestrator(cfg *config.Config, tempDir string, transcriber Transcriber, logger *slog.Logger) (*Orchestrator, error) {
	normalizer, err := loudness.NewNormalizer(tempDir, cfg.FFmpegBinary(), cfg.FFprobeBinary(), logger)
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:         cfg,
		tempDir:     tempDir,
		logger:      logging.NewComponentLogger(logger, "render"),
		runner:      RunCommand,
		transcriber: transcriber,
		normalizer:  normalizer,
		progress:    func(string) {},
	}
	o.probe = func(ctx context.Context, path string) float64 {
		return ffprobe.Duration(ctx, cfg.FFprobeBinary(), path)
	}
	return o, nil
}

// WithRunner overrides command execution (for testing).
func (o *Orchestrator) WithRunner(runner Runner) {
	if runner != nil {
		o.runner = runner
		o.normalizer.WithRunner(loudness.Runner(runner))
	}
}

// WithDurationProbe overrides media duration probing (for testing).
func (o *Orchestrator) WithDurationProbe(probe func(ctx context.Context, path string) float64) {
	if probe != nil {
		o.probe = probe
	}
}

// WithProgress registers a callback invoked as each pipeline stage starts.
func (o *Orchestrator) WithProgress(progress func(stage string)) {
	if progress != nil {
		o.progress = progress
	}
}

// Normalizer exposes the job-scoped loudness normalizer.
func (o *Orchestrator) Normalizer() *loudness.Normalizer {
	return o.normalizer
}

// Render runs the full pipeline: audio preparation and normalization,
// transcription and caption encoding, filter graph assembly, the single
// compositing ffmpeg invocation, and the optional mirror copy.
func (o *Orchestrator) Render(ctx context.Context) (Result, error) {
	background, err := o.requiredAsset(o.cfg.Visual.BackgroundImage, "background image")
	if err != nil {
		return Result{}, err
	}
	audioSource, err := o.prepareAudio(ctx)
	if err != nil {
		return Result{}, err
	}

	o.progress(StageNormalizing)
	targets := loudness.Targets{
		IntegratedLUFS: o.cfg.Audio.TargetLUFS,
		RangeLU:        o.cfg.Audio.TargetLRA,
		TruePeakDB:     o.cfg.Audio.TargetTP,
	}
	normalized, err := o.normalizer.Normalize(ctx, audioSource, targets, o.cfg.Audio.Codec, o.cfg.Audio.Bitrate)
	if err != nil {
		return Result{}, err
	}
	mainDuration := o.probe(ctx, normalized)

	introPath, hasIntro := o.optionalAsset(o.cfg.IntroOutro.Intro)
	outroPath, hasOutro := o.optionalAsset(o.cfg.IntroOutro.Outro)
	ctaPath, hasCTA := o.optionalAsset(o.cfg.CTA.Loop)
	bgmPath, hasBGM := o.optionalMusic(o.cfg.BGM.File)

	var introDuration, outroDuration float64
	if hasIntro {
		introDuration = o.probe(ctx, introPath)
	}
	if hasOutro {
		outroDuration = o.probe(ctx, outroPath)
	}
	total := introDuration + mainDuration + outroDuration

	o.progress(StageTranscribing)
	subtitles, err := o.writeCaptions(ctx, normalized, introDuration)
	if err != nil {
		return Result{}, err
	}

	width, height, err := o.cfg.Visual.Dimensions()
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "render", "canvas", "invalid aspect", err)
	}

	inputs := &InputManager{}
	backgroundIndex := inputs.Add(background, "-loop", "1", "-framerate", fmt.Sprintf("%d", o.cfg.Visual.FPS))
	audioIndex := inputs.Add(normalized)
	introIndex, outroIndex, ctaIndex, bgmIndex := -1, -1, -1, -1
	if hasIntro {
		introIndex = inputs.Add(introPath)
	}
	if hasOutro {
		outroIndex = inputs.Add(outroPath)
	}
	if hasCTA {
		ctaIndex = inputs.Add(ctaPath, "-stream_loop", "-1")
	}
	if hasBGM {
		bgmIndex = inputs.Add(bgmPath, "-stream_loop", "-1")
	}

	builder := filtergraph.NewBuilder(width, height)
	if o.cfg.Visual.KenBurns {
		builder.AddBase(backgroundIndex, KenBurns(width, height, o.cfg.Visual.KenBurnsZoom, o.cfg.Visual.FPS, total))
	} else {
		builder.AddBase(backgroundIndex, StaticBackground(width, height))
	}
	if hasIntro {
		intro := builder.AddScaledInput(introIndex)
		builder.Overlay(intro, filtergraph.Between(0, introDuration))
	}
	if hasOutro {
		outro := builder.AddScaledInput(outroIndex)
		builder.Overlay(outro, filtergraph.Between(total-outroDuration, total))
	}
	if hasCTA {
		gate, err := filtergraph.Periodic(o.cfg.CTA.StartSeconds, o.cfg.CTA.RepeatSeconds)
		if err != nil {
			return Result{}, services.Wrap(services.ErrValidation, "render", "cta", "invalid schedule", err)
		}
		builder.ChromaKeyOverlay(ctaIndex, o.cfg.CTA.KeyColor, o.cfg.CTA.Similarity, o.cfg.CTA.Blend, gate)
	}
	if subtitles.ASSPath != "" {
		if HasSubtitlesFilter(ctx, o.runner, o.cfg.FFmpegBinary(), o.logger) {
			builder.BurnSubtitles(subtitles.ASSPath, o.cfg.Paths.FontsDir, o.cfg.Captions.FontName, o.cfg.Captions.MarginV)
		} else {
			o.logger.Warn("ffmpeg build lacks the subtitles filter, keeping sidecar files only",
				logging.Args(logging.String("ass", subtitles.ASSPath))...)
		}
	}
	graph := builder.Finalize()

	// Caption timestamps are shifted by the intro, so the voice stream has
	// to enter the output shifted by the same amount.
	audioMap := fmt.Sprintf("%d:a", audioIndex)
	voiceSource := fmt.Sprintf("[%d:a]", audioIndex)
	var audioChains []string
	if introDuration > 0 {
		delayMS := int(math.Round(introDuration * 1000))
		audioChains = append(audioChains, fmt.Sprintf("%sadelay=%d:all=1[voice]", voiceSource, delayMS))
		voiceSource = "[voice]"
		audioMap = "[voice]"
	}
	if hasBGM {
		audioChains = append(audioChains, buildAudioMix(voiceSource, bgmIndex, o.cfg.BGM))
		audioMap = "[aout]"
	}
	if len(audioChains) > 0 {
		graph += ";" + strings.Join(audioChains, ";")
	}

	o.progress(StageRendering)
	encoder := SelectEncoder(ctx, o.runner, o.cfg.FFmpegBinary(), o.cfg.Render.PreferHardware, o.cfg.Render.SoftwareCRF, o.logger)

	outputName := strings.TrimSpace(o.cfg.Render.OutputName)
	if outputName == "" {
		outputName = "final_video.mp4"
	}
	outputPath := filepath.Join(o.cfg.Paths.OutputDir, outputName)

	args := []string{"-y", "-hide_banner", "-nostats"}
	args = append(args, inputs.CommandArgs()...)
	args = append(args,
		"-filter_complex", graph,
		"-map", "["+filtergraph.FinalLabel+"]",
		"-map", audioMap,
		"-t", formatDuration(total),
		"-r", fmt.Sprintf("%d", o.cfg.Visual.FPS),
		"-c:v", encoder.Name,
	)
	args = append(args, encoder.Args...)
	args = append(args, "-c:a", "aac")
	if bitrate := strings.TrimSpace(o.cfg.Audio.Bitrate); bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	args = append(args, "-movflags", "+faststart", outputPath)

	o.logger.Info("compositing",
		logging.Args(
			logging.Int("inputs", inputs.Count()),
			logging.Int("graph_stages", builder.StageCount()),
			logging.Float64("total_duration", total),
			logging.String("encoder", encoder.Name),
		)...)
	if _, stderr, err := o.runner(ctx, o.cfg.FFmpegBinary(), args...); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "render", "compose", strings.TrimSpace(stderr), err)
	}

	o.mirror(outputPath, subtitles.SRTPath)

	return Result{
		OutputPath:    outputPath,
		SubtitlePath:  subtitles.SRTPath,
		TotalDuration: total,
		Encoder:       encoder.Name,
		GraphStages:   builder.StageCount(),
	}, nil
}

// prepareAudio resolves the configured voice files and, when more than one
// is given, concatenates them losslessly via the concat demuxer.
func (o *Orchestrator) prepareAudio(ctx context.Context) (string, error) {
	files := o.cfg.Audio.Files
	if len(files) == 0 {
		return "", services.Wrap(services.ErrValidation, "render", "audio", "no audio files configured", nil)
	}
	resolved := make([]string, 0, len(files))
	for _, file := range files {
		path, err := o.requiredAsset(file, "audio file")
		if err != nil {
			return "", err
		}
		resolved = append(resolved, path)
	}
	if len(resolved) == 1 {
		return resolved[0], nil
	}

	listPath := filepath.Join(o.tempDir, "audio_concat.txt")
	var list strings.Builder
	for _, path := range resolved {
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(path, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}

	output := filepath.Join(o.tempDir, "audio_concat.wav")
	args := []string{
		"-y", "-hide_banner", "-nostats",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c:a", "pcm_s16le",
		output,
	}
	if _, stderr, err := o.runner(ctx, o.cfg.FFmpegBinary(), args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "render", "concat", strings.TrimSpace(stderr), err)
	}
	o.logger.Debug("audio segments concatenated", logging.Args(logging.Int("segments", len(resolved)))...)
	return output, nil
}

// writeCaptions transcribes the normalized audio and writes the subtitle
// artifacts. With no transcriber configured the render proceeds uncaptioned.
func (o *Orchestrator) writeCaptions(ctx context.Context, audioPath string, introDuration float64) (captions.Output, error) {
	if o.transcriber == nil {
		return captions.Output{}, nil
	}

	words, err := o.transcriber.TranscribeWords(ctx, audioPath, o.cfg.Audio.WhisperModel, o.cfg.Audio.UseVAD)
	if err != nil {
		return captions.Output{}, services.Wrap(services.ErrExternalTool, "render", "transcribe", "transcription failed", err)
	}

	var text strings.Builder
	for _, word := range words {
		text.WriteString(word.Text)
		text.WriteByte(' ')
	}
	keywords := o.transcriber.ExtractKeywords(text.String(), o.cfg.Captions.KeywordCount)

	writer, err := captions.NewWriter(o.tempDir, o.cfg.Paths.OutputDir, o.logger)
	if err != nil {
		return captions.Output{}, err
	}
	style := captions.Style{
		FontName:           o.cfg.Captions.FontName,
		FontSize:           o.cfg.Captions.FontSize,
		ActiveColor:        o.cfg.Captions.ActiveColor,
		KeywordColor:       o.cfg.Captions.KeywordColor,
		BorderThickness:    o.cfg.Captions.BorderThickness,
		MaxWordsPerLine:    o.cfg.Captions.MaxWordsPerLine,
		MaxWordsPerCaption: o.cfg.Captions.MaxWordsPerCaption,
		MaxCaptionMS:       o.cfg.Captions.MaxCaptionMS,
		Position:           captions.Position(o.cfg.Captions.Position),
		MarginV:            o.cfg.Captions.MarginV,
	}

	width, height, err := o.cfg.Visual.Dimensions()
	if err != nil {
		return captions.Output{}, services.Wrap(services.ErrValidation, "render", "canvas", "invalid aspect", err)
	}
	stem := strings.TrimSuffix(o.outputName(), filepath.Ext(o.outputName()))
	offset := o.cfg.Render.TimestampOffset + introDuration
	return writer.Write(words, style, keywords, offset, stem, width, height)
}

// mirror copies the finished artifacts to the secondary destination. A
// failed mirror copy never fails the job.
func (o *Orchestrator) mirror(outputPath, srtPath string) {
	mirrorDir := strings.TrimSpace(o.cfg.Paths.MirrorDir)
	if mirrorDir == "" {
		return
	}
	if err := os.MkdirAll(mirrorDir, 0o755); err != nil {
		o.logger.Warn("mirror directory unavailable", logging.Args(logging.Error(err))...)
		return
	}
	for _, source := range []string{outputPath, srtPath} {
		if source == "" {
			continue
		}
		target := filepath.Join(mirrorDir, filepath.Base(source))
		if err := fileutil.CopyFileVerified(source, target); err != nil {
			o.logger.Warn("mirror copy failed",
				logging.Args(logging.String("source", source), logging.Error(err))...)
			continue
		}
		o.logger.Debug("mirrored artifact", logging.Args(logging.String("target", target))...)
	}
}

func (o *Orchestrator) outputName() string {
	if name := strings.TrimSpace(o.cfg.Render.OutputName); name != "" {
		return name
	}
	return "final_video.mp4"
}

// requiredAsset resolves name against the assets directory and fails when
// the file is missing.
func (o *Orchestrator) requiredAsset(name, kind string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", services.Wrap(services.ErrValidation, "render", "assets", kind+" not configured", nil)
	}
	path := o.resolveAsset(name, o.cfg.Paths.AssetsDir)
	if _, err := os.Stat(path); err != nil {
		return "", services.Wrap(services.ErrAsset, "render", "assets", fmt.Sprintf("%s not found: %s", kind, path), err)
	}
	return path, nil
}

// optionalAsset resolves name against the assets directory; absent files are
// skipped without error.
func (o *Orchestrator) optionalAsset(name string) (string, bool) {
	return o.optionalIn(name, o.cfg.Paths.AssetsDir)
}

func (o *Orchestrator) optionalMusic(name string) (string, bool) {
	return o.optionalIn(name, o.cfg.Paths.MusicDir)
}

func (o *Orchestrator) optionalIn(name, dir string) (string, bool) {
	if strings.TrimSpace(name) == "" {
		return "", false
	}
	path := o.resolveAsset(name, dir)
	if _, err := os.Stat(path); err != nil {
		o.logger.Debug("optional asset absent", logging.Args(logging.String("path", path))...)
		return "", false
	}
	return path, true
}

func (o *Orchestrator) resolveAsset(name, dir string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// buildAudioMix attaches the background music bed to the voice track. With
// ducking enabled the voice feeds the compressor sidechain so the bed drops
// under speech.
func buildAudioMix(voiceSource string, bgmIndex int, bgm config.BGM) string {
	if !bgm.AutoDuck {
		return fmt.Sprintf(
			"[%d:a]volume=%.1fdB[bgm];%s[bgm]amix=inputs=2:duration=first:dropout_transition=2[aout]",
			bgmIndex, bgm.GainDB, voiceSource)
	}
	// sidechaincompress takes a linear amplitude threshold; config holds dB.
	threshold := math.Pow(10, bgm.DuckThreshold/20)
	return fmt.Sprintf(
		"%sasplit=2[vmain][vside];"+
			"[%d:a]volume=%.1fdB[bgm];"+
			"[bgm][vside]sidechaincompress=threshold=%.5f:ratio=%.1f:attack=%d:release=%d[ducked];"+
			"[vmain][ducked]amix=inputs=2:duration=first:dropout_transition=2[aout]",
		voiceSource, bgmIndex, bgm.GainDB,
		threshold, bgm.DuckRatio, bgm.DuckAttackMS, bgm.DuckReleaseMS)
}

func formatDuration(seconds float64) string {
	s := fmt.Sprintf("%.3f", seconds)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
