package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/captions"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

type fakeTranscriber struct {
	words    []captions.Word
	keywords []string
	err      error
}

func (f *fakeTranscriber) TranscribeWords(context.Context, string, string, bool) ([]captions.Word, error) {
	return f.words, f.err
}

func (f *fakeTranscriber) ExtractKeywords(string, int) []string {
	return f.keywords
}

// fakeFFmpeg answers measurement passes with a loudnorm report, creates the
// requested output file for encode passes, and records every invocation.
func fakeFFmpeg(t *testing.T, calls *[]string) Runner {
	t.Helper()
	const report = `{"input_i": "-18.20", "input_lra": "4.10", "input_tp": "-4.00", "input_thresh": "-28.90", "target_offset": "0.30"}`
	return func(_ context.Context, _ string, args ...string) (string, string, error) {
		joined := strings.Join(args, " ")
		*calls = append(*calls, joined)
		if strings.Contains(joined, "-f null") || strings.Contains(joined, "-map_channel") {
			return "", report, nil
		}
		if strings.Contains(joined, "-encoders") {
			return "", "", errors.New("probe disabled")
		}
		if strings.Contains(joined, "-filters") {
			return " T.C subtitles         V->V      Render text subtitles onto input video\n", "", nil
		}
		// Encode passes write their last argument.
		output := args[len(args)-1]
		if err := os.WriteFile(output, []byte("data"), 0o644); err != nil {
			t.Fatalf("write fake output: %v", err)
		}
		return "", "", nil
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	assets := t.TempDir()
	cfg.Paths.TempDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.AssetsDir = assets
	cfg.Paths.FontsDir = t.TempDir()
	cfg.Paths.MusicDir = t.TempDir()
	cfg.Render.PreferHardware = false
	cfg.Render.OutputName = "clip.mp4"
	cfg.Visual.BackgroundImage = "background.png"
	cfg.Audio.Files = []string{"voice.wav"}
	for _, name := range []string{"background.png", "voice.wav"} {
		if err := os.WriteFile(filepath.Join(assets, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write asset %s: %v", name, err)
		}
	}
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, transcriber Transcriber, calls *[]string) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(cfg, cfg.Paths.TempDir, transcriber, logging.NewNop())
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	o.WithRunner(fakeFFmpeg(t, calls))
	o.WithDurationProbe(func(_ context.Context, path string) float64 {
		switch {
		case strings.Contains(path, "audio_loudnorm"):
			return 60
		case strings.Contains(path, "intro"):
			return 3
		case strings.Contains(path, "outro"):
			return 5
		default:
			return 0
		}
	})
	return o
}

func finalCall(t *testing.T, calls []string) string {
	t.Helper()
	for i := len(calls) - 1; i >= 0; i-- {
		if strings.Contains(calls[i], "-filter_complex") {
			return calls[i]
		}
	}
	t.Fatal("no compositing invocation recorded")
	return ""
}

func TestRenderMinimalPipeline(t *testing.T) {
	cfg := testConfig(t)
	var calls []string
	o := newTestOrchestrator(t, cfg, nil, &calls)

	result, err := o.Render(context.Background())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if result.TotalDuration != 60 {
		t.Errorf("TotalDuration = %g, want 60", result.TotalDuration)
	}
	if filepath.Base(result.OutputPath) != "clip.mp4" {
		t.Errorf("OutputPath = %s", result.OutputPath)
	}
	if result.Encoder != "libx264" {
		t.Errorf("Encoder = %s", result.Encoder)
	}

	compose := finalCall(t, calls)
	if !strings.Contains(compose, "zoompan") {
		t.Errorf("Ken Burns stage missing: %s", compose)
	}
	if !strings.Contains(compose, "-map [vout] -map 1:a") {
		t.Errorf("stream mapping wrong: %s", compose)
	}
	if !strings.Contains(compose, "-t 60 ") {
		t.Errorf("duration cap missing: %s", compose)
	}
	if strings.Contains(compose, "subtitles=") {
		t.Errorf("no transcriber, no subtitle burn expected: %s", compose)
	}
}

func TestRenderWithOverlaysAndCaptions(t *testing.T) {
	cfg := testConfig(t)
	for _, name := range []string{"intro.mov", "outro.mov", "cta.mov"} {
		if err := os.WriteFile(filepath.Join(cfg.Paths.AssetsDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write asset: %v", err)
		}
	}
	cfg.IntroOutro.Intro = "intro.mov"
	cfg.IntroOutro.Outro = "outro.mov"
	cfg.CTA.Loop = "cta.mov"

	transcriber := &fakeTranscriber{
		words: []captions.Word{
			{Start: 0, End: 0.5, Text: "Hello"},
			{Start: 0.5, End: 1.0, Text: "world."},
		},
		keywords: []string{"world"},
	}
	var calls []string
	o := newTestOrchestrator(t, cfg, transcriber, &calls)

	result, err := o.Render(context.Background())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// intro 3 + main 60 + outro 5
	if result.TotalDuration != 68 {
		t.Errorf("TotalDuration = %g, want 68", result.TotalDuration)
	}
	if filepath.Base(result.SubtitlePath) != "clip.srt" {
		t.Errorf("SubtitlePath = %s", result.SubtitlePath)
	}

	compose := finalCall(t, calls)
	if !strings.Contains(compose, "enable='between(t,0,3)'") {
		t.Errorf("intro gate missing: %s", compose)
	}
	if !strings.Contains(compose, "enable='between(t,63,68)'") {
		t.Errorf("outro gate missing: %s", compose)
	}
	if !strings.Contains(compose, "gte(t,30)*eq(mod(t-30,120),0)") {
		t.Errorf("CTA periodic gate missing: %s", compose)
	}
	if !strings.Contains(compose, "chromakey=0x00FF00") {
		t.Errorf("chroma key missing: %s", compose)
	}
	if !strings.Contains(compose, "subtitles=") {
		t.Errorf("subtitle burn missing: %s", compose)
	}

	// Optional overlays take indices after background (0) and audio (1).
	if !strings.Contains(compose, "[2:v]") || !strings.Contains(compose, "[3:v]") || !strings.Contains(compose, "[4:v]") {
		t.Errorf("overlay input indices wrong: %s", compose)
	}
}

func TestRenderIntroDelaysVoiceToMatchCaptions(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.Paths.AssetsDir, "intro.mov"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	cfg.IntroOutro.Intro = "intro.mov"

	transcriber := &fakeTranscriber{
		words: []captions.Word{{Start: 0, End: 0.5, Text: "Hello."}},
	}
	var calls []string
	o := newTestOrchestrator(t, cfg, transcriber, &calls)

	result, err := o.Render(context.Background())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	// The 3 s intro shifts the captions, so the voice stream must enter
	// the mix 3 s late as well.
	compose := finalCall(t, calls)
	if !strings.Contains(compose, "adelay=3000:all=1[voice]") {
		t.Errorf("voice delay missing: %s", compose)
	}
	if !strings.Contains(compose, "-map [voice]") {
		t.Errorf("delayed voice not mapped: %s", compose)
	}

	srt, err := os.ReadFile(result.SubtitlePath)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	if !strings.Contains(string(srt), "00:00:03,000 --> 00:00:03,500") {
		t.Errorf("first caption not aligned with delayed voice: %s", srt)
	}
}

func TestRenderWithoutIntroKeepsVoiceUndelayed(t *testing.T) {
	cfg := testConfig(t)
	transcriber := &fakeTranscriber{
		words: []captions.Word{{Start: 0, End: 0.5, Text: "Hello."}},
	}
	var calls []string
	o := newTestOrchestrator(t, cfg, transcriber, &calls)

	result, err := o.Render(context.Background())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	compose := finalCall(t, calls)
	if strings.Contains(compose, "adelay") {
		t.Errorf("unexpected voice delay: %s", compose)
	}
	srt, err := os.ReadFile(result.SubtitlePath)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	if !strings.Contains(string(srt), "00:00:00,000 --> 00:00:00,500") {
		t.Errorf("caption should start with the voice at zero: %s", srt)
	}
}

func TestRenderIntroDelayFeedsDuckingMix(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.Paths.AssetsDir, "intro.mov"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.MusicDir, "bed.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write music: %v", err)
	}
	cfg.IntroOutro.Intro = "intro.mov"
	cfg.BGM.File = "bed.mp3"

	var calls []string
	o := newTestOrchestrator(t, cfg, nil, &calls)

	if _, err := o.Render(context.Background()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	compose := finalCall(t, calls)
	if !strings.Contains(compose, "adelay=3000:all=1[voice];[voice]asplit=2") {
		t.Errorf("ducking mix must consume the delayed voice: %s", compose)
	}
	if !strings.Contains(compose, "-map [aout]") {
		t.Errorf("mixed audio not mapped: %s", compose)
	}
}

func TestRenderSkipsBurnWithoutSubtitlesFilter(t *testing.T) {
	cfg := testConfig(t)
	transcriber := &fakeTranscriber{
		words: []captions.Word{{Start: 0, End: 0.5, Text: "Hello."}},
	}
	var calls []string
	o := newTestOrchestrator(t, cfg, transcriber, &calls)
	inner := o.runner
	o.WithRunner(func(ctx context.Context, name string, args ...string) (string, string, error) {
		if strings.Contains(strings.Join(args, " "), "-filters") {
			return " T.C drawtext          V->V      Draw text on top of video frames\n", "", nil
		}
		return inner(ctx, name, args...)
	})

	result, err := o.Render(context.Background())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	compose := finalCall(t, calls)
	if strings.Contains(compose, "subtitles=") {
		t.Errorf("burn stage must be skipped without the subtitles filter: %s", compose)
	}
	// Sidecar files are still produced.
	if result.SubtitlePath == "" {
		t.Error("sidecar subtitles missing")
	}
}

func TestRenderAbsentOptionalOverlaysConsumeNoIndex(t *testing.T) {
	cfg := testConfig(t)
	cfg.IntroOutro.Intro = "missing_intro.mov"
	var calls []string
	o := newTestOrchestrator(t, cfg, nil, &calls)

	if _, err := o.Render(context.Background()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	compose := finalCall(t, calls)
	if strings.Contains(compose, "[2:v]") {
		t.Errorf("absent optional input must not register: %s", compose)
	}
}

func TestRenderBGMDucking(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.Paths.MusicDir, "bed.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write music: %v", err)
	}
	cfg.BGM.File = "bed.mp3"
	var calls []string
	o := newTestOrchestrator(t, cfg, nil, &calls)

	if _, err := o.Render(context.Background()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	compose := finalCall(t, calls)
	if !strings.Contains(compose, "sidechaincompress") {
		t.Errorf("ducking chain missing: %s", compose)
	}
	if !strings.Contains(compose, "-map [aout]") {
		t.Errorf("mixed audio not mapped: %s", compose)
	}
}

func TestRenderMissingBackgroundIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Visual.BackgroundImage = "nope.png"
	var calls []string
	o := newTestOrchestrator(t, cfg, nil, &calls)

	_, err := o.Render(context.Background())
	if !errors.Is(err, services.ErrAsset) {
		t.Fatalf("expected asset error, got %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("no external tool should run before asset validation, got %d calls", len(calls))
	}
}

func TestRenderMirrorsArtifacts(t *testing.T) {
	cfg := testConfig(t)
	mirror := t.TempDir()
	cfg.Paths.MirrorDir = mirror
	var calls []string
	o := newTestOrchestrator(t, cfg, nil, &calls)

	if _, err := o.Render(context.Background()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := os.Stat(filepath.Join(mirror, "clip.mp4")); err != nil {
		t.Errorf("mirror copy missing: %v", err)
	}
}

func TestRenderConcatenatesMultipleAudioFiles(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.Paths.AssetsDir, "voice2.wav"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	cfg.Audio.Files = []string{"voice.wav", "voice2.wav"}
	var calls []string
	o := newTestOrchestrator(t, cfg, nil, &calls)

	if _, err := o.Render(context.Background()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	found := false
	for _, call := range calls {
		if strings.Contains(call, "-f concat") {
			found = true
		}
	}
	if !found {
		t.Error("concat demuxer pass missing")
	}
}
