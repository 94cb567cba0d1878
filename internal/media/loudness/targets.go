// Package loudness normalizes a voice track to EBU R128 targets using a
// four-stage ffmpeg pipeline: stereo enforcement, per-channel measurement,
// per-channel gain balancing, and two-pass loudnorm.
package loudness

import (
	"fmt"
	"math"
)

// Gain applied per channel is clamped to this symmetric range in dB.
const (
	MinGainDB = -24.0
	MaxGainDB = 24.0
)

// Targets holds the EBU R128 normalization goals.
type Targets struct {
	// IntegratedLUFS is the integrated loudness target (I), typically -16.
	IntegratedLUFS float64
	// RangeLU is the loudness range target (LRA), typically 11.
	RangeLU float64
	// TruePeakDB is the true peak ceiling (TP), typically -2.
	TruePeakDB float64
}

// Validate checks the targets against their allowed ranges.
func (t Targets) Validate() error {
	if !isFinite(t.IntegratedLUFS) || t.IntegratedLUFS < -36.0 || t.IntegratedLUFS > -6.0 {
		return fmt.Errorf("integrated loudness target must be in [-36, -6] LUFS, got %g", t.IntegratedLUFS)
	}
	if !isFinite(t.RangeLU) || t.RangeLU < 1.0 || t.RangeLU > 20.0 {
		return fmt.Errorf("loudness range target must be in [1, 20] LU, got %g", t.RangeLU)
	}
	if !isFinite(t.TruePeakDB) || t.TruePeakDB < -6.0 || t.TruePeakDB > -0.1 {
		return fmt.Errorf("true peak target must be in [-6, -0.1] dBFS, got %g", t.TruePeakDB)
	}
	return nil
}

// SanitizeDB clamps value to [min, max], substituting def for NaN and Inf.
// Non-finite gains must never reach a volume filter.
func SanitizeDB(value, min, max, def float64) float64 {
	if !isFinite(value) {
		return def
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
