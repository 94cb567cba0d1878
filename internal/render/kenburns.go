package render

import (
	"fmt"
	"math"
)

// MaxFrames converts a duration to a zoompan frame count. The floor of 2
// keeps zoompan valid for zero or near-zero durations.
func MaxFrames(duration float64, fps int) int {
	frames := int(math.Round(duration * float64(fps)))
	if frames < 2 {
		return 2
	}
	return frames
}

// KenBurns builds the pan/zoom background filter. Zoom ramps linearly from
// full frame to the configured factor over the clip; the pan tracks the
// shrinking visible window so the motion stays centered. Expressions are
// linear in the output frame index, so the same inputs always produce the
// same string.
func KenBurns(width, height int, zoom float64, fps int, duration float64) string {
	if zoom < 1.0 {
		zoom = 1.0
	}
	frames := MaxFrames(duration, fps)
	span := frames - 1
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,"+
			"zoompan=z='1+%.4f*on/%d':x='(iw-iw/zoom)/2':y='(ih-ih/zoom)/2':d=%d:s=%dx%d:fps=%d",
		width, height, width, height,
		zoom-1.0, span, frames, width, height, fps,
	)
}

// StaticBackground scales and crops the background to fill the canvas with
// no motion.
func StaticBackground(width, height int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		width, height, width, height)
}
