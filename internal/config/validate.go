package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateVisual(); err != nil {
		return err
	}
	if err := c.validateCTA(); err != nil {
		return err
	}
	if err := c.validateBGM(); err != nil {
		return err
	}
	if err := c.validateBroll(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAudio() error {
	if err := floatRange("audio.target_lufs", c.Audio.TargetLUFS, -36.0, -6.0); err != nil {
		return err
	}
	if err := floatRange("audio.target_lra", c.Audio.TargetLRA, 1.0, 20.0); err != nil {
		return err
	}
	if err := floatRange("audio.target_tp", c.Audio.TargetTP, -6.0, -0.1); err != nil {
		return err
	}
	if strings.TrimSpace(c.Audio.Codec) == "" {
		return errors.New("audio.codec must be set")
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if err := intRange("captions.font_size", c.Captions.FontSize, 12, 150); err != nil {
		return err
	}
	if err := intRange("captions.border_thickness", c.Captions.BorderThickness, 0, 12); err != nil {
		return err
	}
	if err := intRange("captions.max_words_per_line", c.Captions.MaxWordsPerLine, 1, 20); err != nil {
		return err
	}
	if err := intRange("captions.max_words_per_caption", c.Captions.MaxWordsPerCaption, 1, 50); err != nil {
		return err
	}
	if err := intRange("captions.max_caption_ms", c.Captions.MaxCaptionMS, 250, 30000); err != nil {
		return err
	}
	if err := intRange("captions.margin_v", c.Captions.MarginV, 0, 300); err != nil {
		return err
	}
	if err := hexColor("captions.active_color", c.Captions.ActiveColor); err != nil {
		return err
	}
	if err := hexColor("captions.keyword_color", c.Captions.KeywordColor); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Captions.Position)) {
	case "top", "middle", "bottom":
	default:
		return fmt.Errorf("captions.position must be Top, Middle, or Bottom, got %q", c.Captions.Position)
	}
	return nil
}

func (c *Config) validateVisual() error {
	if _, _, err := c.Visual.Dimensions(); err != nil {
		return err
	}
	if err := intRange("visual.fps", c.Visual.FPS, 1, 120); err != nil {
		return err
	}
	if c.Visual.KenBurns {
		if err := floatRange("visual.ken_burns_zoom", c.Visual.KenBurnsZoom, 1.01, 3.0); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateCTA() error {
	if strings.TrimSpace(c.CTA.Loop) == "" {
		return nil
	}
	if err := floatRange("cta.start_seconds", c.CTA.StartSeconds, 0.0, 36000.0); err != nil {
		return err
	}
	// A zero repeat would make the periodic gate degenerate; reject it here so
	// it can never reach the graph builder.
	if err := floatRange("cta.repeat_seconds", c.CTA.RepeatSeconds, 0.01, 36000.0); err != nil {
		return err
	}
	if err := floatRange("cta.similarity", c.CTA.Similarity, 0.0, 1.0); err != nil {
		return err
	}
	if err := floatRange("cta.blend", c.CTA.Blend, 0.0, 1.0); err != nil {
		return err
	}
	return hexColor("cta.key_color", c.CTA.KeyColor)
}

func (c *Config) validateBGM() error {
	if strings.TrimSpace(c.BGM.File) == "" {
		return nil
	}
	if err := floatRange("bgm.gain_db", c.BGM.GainDB, -60.0, 12.0); err != nil {
		return err
	}
	if !c.BGM.AutoDuck {
		return nil
	}
	if err := floatRange("bgm.duck_threshold", c.BGM.DuckThreshold, -60.0, 0.0); err != nil {
		return err
	}
	if err := floatRange("bgm.duck_ratio", c.BGM.DuckRatio, 1.0, 30.0); err != nil {
		return err
	}
	if err := intRange("bgm.duck_attack_ms", c.BGM.DuckAttackMS, 1, 20000); err != nil {
		return err
	}
	return intRange("bgm.duck_release_ms", c.BGM.DuckReleaseMS, 1, 60000)
}

func (c *Config) validateBroll() error {
	if !c.Broll.Enabled {
		return nil
	}
	if err := floatRange("broll.first_at_seconds", c.Broll.FirstAtSeconds, 0.0, 36000.0); err != nil {
		return err
	}
	if err := floatRange("broll.every_seconds", c.Broll.EverySeconds, 0.1, 36000.0); err != nil {
		return err
	}
	return floatRange("broll.duration_seconds", c.Broll.DurationSeconds, 0.1, 36000.0)
}

func (c *Config) validateRender() error {
	if err := intRange("render.software_crf", c.Render.SoftwareCRF, 0, 51); err != nil {
		return err
	}
	if err := floatRange("render.timestamp_offset", c.Render.TimestampOffset, -36000.0, 36000.0); err != nil {
		return err
	}
	if strings.TrimSpace(c.Render.OutputName) == "" {
		return errors.New("render.output_name must be set")
	}
	return nil
}

// Dimensions maps the aspect string to its fixed canvas size.
func (v Visual) Dimensions() (int, int, error) {
	normalized := strings.TrimSpace(v.Aspect)
	normalized = strings.ReplaceAll(normalized, "x", ":")
	switch normalized {
	case "9:16":
		return 1080, 1920, nil
	case "1:1":
		return 1080, 1080, nil
	case "16:9":
		return 1920, 1080, nil
	default:
		return 0, 0, fmt.Errorf("visual.aspect must be 9:16, 1:1, or 16:9, got %q", v.Aspect)
	}
}

func floatRange(name string, value, min, max float64) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %g and %g, got %g", name, min, max, value)
	}
	return nil
}

func intRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, min, max, value)
	}
	return nil
}

func hexColor(name, value string) error {
	if !hexColorPattern.MatchString(strings.TrimSpace(value)) {
		return fmt.Errorf("%s must be a #RRGGBB color, got %q", name, value)
	}
	return nil
}
