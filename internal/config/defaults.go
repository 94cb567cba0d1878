package config

// Default returns a configuration populated with working defaults. Paths are
// rooted under the current directory until the user overrides them.
func Default() *Config {
	return &Config{
		Paths: Paths{
			TempDir:   "work/tmp",
			OutputDir: "work/out",
			AssetsDir: "assets",
			FontsDir:  "assets/fonts",
			MusicDir:  "assets/music",
			BrollDir:  "assets/broll",
			LogDir:    "work/logs",
		},
		Audio: Audio{
			TargetLUFS:   -16.0,
			TargetLRA:    11.0,
			TargetTP:     -2.0,
			Codec:        "aac",
			Bitrate:      "192k",
			WhisperModel: "medium",
			UseVAD:       true,
		},
		Captions: Captions{
			FontName:           "DejaVu Sans",
			FontSize:           92,
			ActiveColor:        "#FFFFFF",
			KeywordColor:       "#FFD700",
			BorderThickness:    4,
			MaxWordsPerLine:    6,
			MaxWordsPerCaption: 12,
			MaxCaptionMS:       4500,
			Position:           "Bottom",
			MarginV:            70,
			KeywordCount:       12,
		},
		Visual: Visual{
			Aspect:       "9:16",
			KenBurns:     true,
			KenBurnsZoom: 1.12,
			FPS:          30,
		},
		CTA: CTA{
			StartSeconds:  30.0,
			RepeatSeconds: 120.0,
			KeyColor:      "#00FF00",
			Similarity:    0.23,
			Blend:         0.05,
		},
		BGM: BGM{
			GainDB:        -20.0,
			AutoDuck:      true,
			DuckThreshold: -30.0,
			DuckRatio:     12.0,
			DuckAttackMS:  20,
			DuckReleaseMS: 300,
		},
		Broll: Broll{
			FirstAtSeconds:  5.0,
			EverySeconds:    14.0,
			DurationSeconds: 4.0,
		},
		Render: Render{
			PreferHardware: true,
			SoftwareCRF:    20,
			OutputName:     "final.mp4",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
