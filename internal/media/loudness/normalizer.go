package loudness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/services"
)

// Runner executes an external command and returns its stdout and stderr.
// Measurement passes read the diagnostic stream even on success, so the
// two are kept separate.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

// Codecs that accept an explicit bitrate. Everything else (PCM, FLAC) ignores it.
var bitrateCodecs = map[string]struct{}{
	"aac":        {},
	"libfdk_aac": {},
	"libopus":    {},
	"libmp3lame": {},
}

// Fixed intermediate names inside the per-job temp directory. Concurrent jobs
// must not share a temp directory.
const (
	stereoFileName   = "audio_stereo.wav"
	balancedFileName = "audio_balanced.wav"
	normalizedStem   = "audio_loudnorm"
)

// Normalizer runs the four-stage loudness pipeline inside a temp directory.
type Normalizer struct {
	tempDir string
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
	runner  Runner
	prober  func(ctx context.Context, path string) int
}

// NewNormalizer constructs a normalizer scoped to tempDir, creating it if needed.
func NewNormalizer(tempDir, ffmpegBinary, ffprobeBinary string, logger *slog.Logger) (*Normalizer, error) {
	tempDir = strings.TrimSpace(tempDir)
	if tempDir == "" {
		return nil, services.Wrap(services.ErrValidation, "loudness", "new", "temp directory required", nil)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure temp directory: %w", err)
	}
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	normalizer := &Normalizer{
		tempDir: tempDir,
		ffmpeg:  ffmpegBinary,
		ffprobe: ffprobeBinary,
		logger:  logging.NewComponentLogger(logger, "loudness"),
		runner:  runCommand,
	}
	normalizer.prober = normalizer.probeChannels
	return normalizer, nil
}

// WithRunner sets a custom command runner (for testing).
func (n *Normalizer) WithRunner(runner Runner) {
	if runner != nil {
		n.runner = runner
	}
}

// WithChannelProber overrides audio channel detection (for testing).
func (n *Normalizer) WithChannelProber(prober func(ctx context.Context, path string) int) {
	if prober != nil {
		n.prober = prober
	}
}

func (n *Normalizer) probeChannels(ctx context.Context, path string) int {
	result, err := ffprobe.Inspect(ctx, n.ffprobe, path)
	if err != nil {
		return 0
	}
	return result.AudioChannels()
}

// Normalize runs the full pipeline on source and returns the path of the
// encoded, normalized audio file inside the temp directory.
func (n *Normalizer) Normalize(ctx context.Context, source string, targets Targets, codec, bitrate string) (string, error) {
	if _, err := os.Stat(source); err != nil {
		return "", services.Wrap(services.ErrAsset, "loudness", "normalize", fmt.Sprintf("audio file not found: %s", source), err)
	}
	if err := targets.Validate(); err != nil {
		return "", services.Wrap(services.ErrValidation, "loudness", "normalize", "invalid loudness targets", err)
	}
	codec = strings.TrimSpace(codec)
	if codec == "" {
		codec = "aac"
	}

	stereoFile, err := n.ensureStereo(ctx, source)
	if err != nil {
		return "", err
	}

	leftReport, leftOK := n.measureChannel(ctx, stereoFile, targets, 0)
	rightReport, rightOK := n.measureChannel(ctx, stereoFile, targets, 1)

	// A channel without a usable report gets the target loudness, which
	// yields a 0 dB gain rather than a wild correction.
	leftInput := targets.IntegratedLUFS
	if leftOK {
		leftInput = leftReport.InputI
	}
	rightInput := targets.IntegratedLUFS
	if rightOK {
		rightInput = rightReport.InputI
	}

	gainLeft := SanitizeDB(targets.IntegratedLUFS-leftInput, MinGainDB, MaxGainDB, 0)
	gainRight := SanitizeDB(targets.IntegratedLUFS-rightInput, MinGainDB, MaxGainDB, 0)

	balancedFile, err := n.applyChannelGains(ctx, stereoFile, gainLeft, gainRight)
	if err != nil {
		return "", err
	}

	output, err := n.normalizeTwoPass(ctx, balancedFile, targets, codec, bitrate)
	if err != nil {
		return "", err
	}

	n.logger.Info("normalization complete",
		logging.Args(
			logging.Float64("target_i", targets.IntegratedLUFS),
			logging.Float64("gain_left_db", gainLeft),
			logging.Float64("gain_right_db", gainRight),
			logging.String("codec", codec),
		)...)
	return output, nil
}

// ensureStereo re-encodes source as 48 kHz 16-bit stereo PCM. Mono input has
// its single channel duplicated to both sides.
func (n *Normalizer) ensureStereo(ctx context.Context, source string) (string, error) {
	output := filepath.Join(n.tempDir, stereoFileName)

	channels := n.prober(ctx, source)

	audioFilter := "aformat=sample_fmts=s16:sample_rates=48000:channel_layouts=stereo"
	if channels == 1 {
		audioFilter += ",pan=stereo|c0=FL|c1=FL"
	}

	args := []string{
		"-y", "-hide_banner", "-nostats",
		"-vn", "-sn",
		"-i", source,
		"-af", audioFilter,
		"-c:a", "pcm_s16le",
		output,
	}
	if _, stderr, err := n.runner(ctx, n.ffmpeg, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "loudness", "stereo", strings.TrimSpace(stderr), err)
	}
	n.logger.Debug("stereo enforcement complete", logging.Args(logging.Int("source_channels", channels))...)
	return output, nil
}

// measureChannel runs a loudnorm measurement pass on a single de-interleaved
// channel. The pass writes no output; the report arrives on stderr. A failed
// run is not fatal here, the caller falls back to a 0 dB gain.
func (n *Normalizer) measureChannel(ctx context.Context, wavFile string, targets Targets, channel int) (Report, bool) {
	args := []string{
		"-hide_banner", "-nostats",
		"-i", wavFile,
		"-map_channel", fmt.Sprintf("0.0.%d", channel),
		"-af", measureFilter(targets),
		"-f", "null", "-",
	}
	_, stderr, err := n.runner(ctx, n.ffmpeg, args...)
	if err != nil && strings.TrimSpace(stderr) == "" {
		return Report{}, false
	}
	report, ok := ExtractLastReport(stderr)
	if !ok {
		n.logger.Warn("channel measurement produced no report", logging.Args(logging.Int("channel", channel))...)
	}
	return report, ok
}

// applyChannelGains splits the stereo stream, applies one gain per channel,
// and rejoins. Gains are already sanitized by the caller.
func (n *Normalizer) applyChannelGains(ctx context.Context, wavFile string, gainLeft, gainRight float64) (string, error) {
	output := filepath.Join(n.tempDir, balancedFileName)

	filterComplex := fmt.Sprintf(
		"[0:a]channelsplit=channel_layout=stereo[FL][FR];"+
			"[FL]volume=%.3fdB[FL2];"+
			"[FR]volume=%.3fdB[FR2];"+
			"[FL2][FR2]join=inputs=2:channel_layout=stereo[aout]",
		gainLeft, gainRight,
	)

	args := []string{
		"-y", "-hide_banner", "-nostats",
		"-i", wavFile,
		"-filter_complex", filterComplex,
		"-map", "[aout]",
		"-ar", "48000",
		"-c:a", "pcm_s16le",
		output,
	}
	if _, stderr, err := n.runner(ctx, n.ffmpeg, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "loudness", "balance", strings.TrimSpace(stderr), err)
	}
	return output, nil
}

// normalizeTwoPass probes the balanced stream, then re-encodes with the
// measured statistics in linear mode. A pass-1 probe without a parseable
// report is fatal: normalization cannot guess measured loudness.
func (n *Normalizer) normalizeTwoPass(ctx context.Context, wavFile string, targets Targets, codec, bitrate string) (string, error) {
	probeArgs := []string{
		"-y", "-hide_banner", "-nostats",
		"-i", wavFile,
		"-af", measureFilter(targets),
		"-f", "null", "-",
	}
	_, probeStderr, _ := n.runner(ctx, n.ffmpeg, probeArgs...)
	report, ok := ExtractLastReport(probeStderr)
	if !ok {
		return "", services.Wrap(services.ErrMeasurement, "loudness", "two-pass probe", "loudnorm produced no parseable report", nil)
	}

	output := filepath.Join(n.tempDir, normalizedStem+codecExtension(codec))

	applyFilter := fmt.Sprintf(
		"loudnorm=I=%.2f:LRA=%.2f:TP=%.2f:measured_I=%.2f:measured_LRA=%.2f:measured_TP=%.2f:measured_thresh=%.2f:offset=%.2f:linear=true:print_format=summary",
		targets.IntegratedLUFS, targets.RangeLU, targets.TruePeakDB,
		report.InputI, report.InputLRA, report.InputTP, report.InputThresh,
		report.TargetOffset,
	)

	args := []string{
		"-y", "-hide_banner", "-nostats",
		"-i", wavFile,
		"-af", applyFilter,
		"-ar", "48000",
		"-c:a", codec,
	}
	if _, ok := bitrateCodecs[strings.ToLower(codec)]; ok && strings.TrimSpace(bitrate) != "" {
		args = append(args, "-b:a", bitrate)
	}
	args = append(args, output)

	if _, stderr, err := n.runner(ctx, n.ffmpeg, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "loudness", "two-pass apply", strings.TrimSpace(stderr), err)
	}
	n.logger.Debug("two-pass loudnorm complete",
		logging.Args(
			logging.Float64("measured_i", report.InputI),
			logging.Float64("measured_lra", report.InputLRA),
			logging.Float64("measured_tp", report.InputTP),
			logging.Float64("offset", report.TargetOffset),
		)...)
	return output, nil
}

func measureFilter(targets Targets) string {
	return fmt.Sprintf("loudnorm=I=%.2f:LRA=%.2f:TP=%.2f:print_format=json",
		targets.IntegratedLUFS, targets.RangeLU, targets.TruePeakDB)
}

func codecExtension(codec string) string {
	switch strings.ToLower(codec) {
	case "aac", "libfdk_aac":
		return ".m4a"
	case "libmp3lame":
		return ".mp3"
	case "libopus":
		return ".opus"
	case "flac":
		return ".flac"
	case "pcm_s16le":
		return ".wav"
	default:
		return ".m4a"
	}
}

func runCommand(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
