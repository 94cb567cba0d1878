// Package config loads and validates the clipforge TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains resolved directory configuration. All directories are owned
// by the caller; the pipeline only creates them.
type Paths struct {
	TempDir   string `toml:"temp_dir"`
	OutputDir string `toml:"output_dir"`
	AssetsDir string `toml:"assets_dir"`
	FontsDir  string `toml:"fonts_dir"`
	MusicDir  string `toml:"music_dir"`
	BrollDir  string `toml:"broll_dir"`
	LogDir    string `toml:"log_dir"`
	// MirrorDir is an optional secondary destination for finished renders.
	MirrorDir string `toml:"mirror_dir"`
}

// Audio contains the voice track and loudness normalization targets.
type Audio struct {
	Files        []string `toml:"files"`
	TargetLUFS   float64  `toml:"target_lufs"`
	TargetLRA    float64  `toml:"target_lra"`
	TargetTP     float64  `toml:"target_tp"`
	Codec        string   `toml:"codec"`
	Bitrate      string   `toml:"bitrate"`
	WhisperModel string   `toml:"whisper_model"`
	UseVAD       bool     `toml:"use_vad"`
}

// Captions contains subtitle styling and segmentation limits.
type Captions struct {
	FontName           string `toml:"font_name"`
	FontSize           int    `toml:"font_size"`
	ActiveColor        string `toml:"active_color"`
	KeywordColor       string `toml:"keyword_color"`
	BorderThickness    int    `toml:"border_thickness"`
	MaxWordsPerLine    int    `toml:"max_words_per_line"`
	MaxWordsPerCaption int    `toml:"max_words_per_caption"`
	MaxCaptionMS       int    `toml:"max_caption_ms"`
	Position           string `toml:"position"`
	MarginV            int    `toml:"margin_v"`
	KeywordCount       int    `toml:"keyword_count"`
}

// Visual contains canvas and background settings.
type Visual struct {
	BackgroundImage string  `toml:"background_image"`
	Aspect          string  `toml:"aspect"`
	KenBurns        bool    `toml:"ken_burns"`
	KenBurnsZoom    float64 `toml:"ken_burns_zoom"`
	FPS             int     `toml:"fps"`
}

// IntroOutro names optional bookend clips relative to the assets directory.
type IntroOutro struct {
	Intro string `toml:"intro"`
	Outro string `toml:"outro"`
}

// CTA configures the chroma-keyed call-to-action overlay loop.
type CTA struct {
	Loop          string  `toml:"loop"`
	StartSeconds  float64 `toml:"start_seconds"`
	RepeatSeconds float64 `toml:"repeat_seconds"`
	KeyColor      string  `toml:"key_color"`
	Similarity    float64 `toml:"similarity"`
	Blend         float64 `toml:"blend"`
}

// BGM configures the background music bed mixed under the voice track.
type BGM struct {
	File          string  `toml:"file"`
	GainDB        float64 `toml:"gain_db"`
	AutoDuck      bool    `toml:"auto_duck"`
	DuckThreshold float64 `toml:"duck_threshold"`
	DuckRatio     float64 `toml:"duck_ratio"`
	DuckAttackMS  int     `toml:"duck_attack_ms"`
	DuckReleaseMS int     `toml:"duck_release_ms"`
}

// Broll carries b-roll scheduling parameters.
type Broll struct {
	Enabled         bool    `toml:"enabled"`
	FirstAtSeconds  float64 `toml:"first_at_seconds"`
	EverySeconds    float64 `toml:"every_seconds"`
	DurationSeconds float64 `toml:"duration_seconds"`
}

// Render contains external tool selection and encoder preferences.
type Render struct {
	FFmpegBinary    string  `toml:"ffmpeg_binary"`
	FFprobeBinary   string  `toml:"ffprobe_binary"`
	WhisperBinary   string  `toml:"whisper_binary"`
	PreferHardware  bool    `toml:"prefer_hardware"`
	SoftwareCRF     int     `toml:"software_crf"`
	OutputName      string  `toml:"output_name"`
	TimestampOffset float64 `toml:"timestamp_offset"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

// Config is the root configuration document.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Audio      Audio      `toml:"audio"`
	Captions   Captions   `toml:"captions"`
	Visual     Visual     `toml:"visual"`
	IntroOutro IntroOutro `toml:"intro_outro"`
	CTA        CTA        `toml:"cta"`
	BGM        BGM        `toml:"bgm"`
	Broll      Broll      `toml:"broll"`
	Render     Render     `toml:"render"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the standard location of the config file.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "clipforge", "config.toml"), nil
}

// Load reads the configuration from path (or the default location when path
// is empty), applies defaults, expands paths, and validates the result. The
// second return value is the resolved path, the third reports whether the
// file existed.
func Load(path string) (*Config, string, bool, error) {
	resolved, found, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if found {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, resolved, true, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, resolved, true, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, resolved, found, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, found, err
	}
	return cfg, resolved, found, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		info, statErr := os.Stat(expanded)
		if statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", statErr)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, statErr := os.Stat(defaultPath); statErr != nil {
		return defaultPath, false, nil
	}
	return defaultPath, true, nil
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(expanded); statErr == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates every directory the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.TempDir,
		c.Paths.OutputDir,
		c.Paths.AssetsDir,
		c.Paths.FontsDir,
		c.Paths.MusicDir,
		c.Paths.BrollDir,
		c.Paths.LogDir,
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the configured ffmpeg binary or the PATH default.
func (c *Config) FFmpegBinary() string {
	if binary := strings.TrimSpace(c.Render.FFmpegBinary); binary != "" {
		return binary
	}
	return "ffmpeg"
}

// FFprobeBinary returns the configured ffprobe binary or the PATH default.
func (c *Config) FFprobeBinary() string {
	if binary := strings.TrimSpace(c.Render.FFprobeBinary); binary != "" {
		return binary
	}
	return "ffprobe"
}

// WhisperBinary returns the configured transcription binary or the PATH default.
func (c *Config) WhisperBinary() string {
	if binary := strings.TrimSpace(c.Render.WhisperBinary); binary != "" {
		return binary
	}
	return "whisper-ctranslate2"
}

func (c *Config) expandPaths() error {
	fields := []*string{
		&c.Paths.TempDir,
		&c.Paths.OutputDir,
		&c.Paths.AssetsDir,
		&c.Paths.FontsDir,
		&c.Paths.MusicDir,
		&c.Paths.BrollDir,
		&c.Paths.LogDir,
		&c.Paths.MirrorDir,
	}
	for _, field := range fields {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := ExpandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

// ExpandPath resolves ~, environment variables, and relative segments.
func ExpandPath(pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", errors.New("empty path")
	}
	pathValue = os.ExpandEnv(pathValue)
	if pathValue == "~" || strings.HasPrefix(pathValue, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		pathValue = filepath.Join(home, strings.TrimPrefix(pathValue, "~"))
	}
	absolute, err := filepath.Abs(pathValue)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", pathValue, err)
	}
	return absolute, nil
}
