package render

import (
	"context"
	"log/slog"
	"strings"

	"clipforge/internal/logging"
)

// HasSubtitlesFilter reports whether the ffmpeg build carries the subtitles
// filter (it needs libass compiled in). When the query itself fails the
// filter is assumed present so a broken build fails loudly at compose time
// instead of silently rendering without captions.
func HasSubtitlesFilter(ctx context.Context, runner Runner, ffmpegBinary string, logger *slog.Logger) bool {
	logger = logging.NewComponentLogger(logger, "render")
	stdout, stderr, err := runner(ctx, ffmpegBinary, "-hide_banner", "-filters")
	if err != nil {
		logger.Warn("filter listing failed, assuming subtitles filter is present", logging.Args(logging.Error(err))...)
		return true
	}
	available := stdout
	if strings.TrimSpace(available) == "" {
		available = stderr
	}
	return strings.Contains(available, " subtitles ")
}
