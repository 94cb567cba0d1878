package ffprobe

import "testing"

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1080, Height: 1920},
			{CodecType: "audio", Channels: 2, SampleRate: "48000"},
		},
		Format: Format{Duration: "123.45"},
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.AudioChannels() != 2 {
		t.Fatalf("expected 2 channels, got %d", result.AudioChannels())
	}
	if result.AudioSampleRate() != 48000 {
		t.Fatalf("expected 48000 Hz, got %d", result.AudioSampleRate())
	}
}

func TestResultHelpersDegradeToZero(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "audio", SampleRate: "bad"}},
		Format:  Format{Duration: "nope"},
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected 0 duration, got %v", result.DurationSeconds())
	}
	if result.AudioSampleRate() != 0 {
		t.Fatalf("expected 0 sample rate, got %d", result.AudioSampleRate())
	}

	if _, ok := (Result{}).FirstAudioStream(); ok {
		t.Fatal("expected no audio stream")
	}
}
