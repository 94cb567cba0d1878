package loudness

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Report is a parsed loudnorm measurement block. The loudnorm filter prints
// its statistics as a JSON object on stderr when print_format=json is set.
type Report struct {
	InputI       float64
	InputLRA     float64
	InputTP      float64
	InputThresh  float64
	TargetOffset float64
}

// ExtractLastReport finds the last balanced JSON object in the diagnostic
// stream and parses it. ffmpeg emits earlier informational blocks during
// initialization; only the final block carries the measurement. The boolean
// is false when no well-formed block with loudnorm fields was found.
func ExtractLastReport(stderr string) (Report, bool) {
	block, ok := lastJSONBlock(stderr)
	if !ok {
		return Report{}, false
	}
	parsed := gjson.Parse(block)
	if !parsed.IsObject() {
		return Report{}, false
	}

	inputI, okI := loudnormField(parsed, "input_i", "measured_I")
	if !okI {
		return Report{}, false
	}
	report := Report{InputI: inputI}
	report.InputLRA, _ = loudnormFieldDefault(parsed, 11.0, "input_lra", "measured_LRA")
	report.InputTP, _ = loudnormFieldDefault(parsed, -2.0, "input_tp", "measured_TP")
	report.InputThresh, _ = loudnormFieldDefault(parsed, -70.0, "input_thresh", "measured_thresh")
	report.TargetOffset, _ = loudnormFieldDefault(parsed, 0.0, "target_offset", "offset")
	return report, true
}

// lastJSONBlock scans for the final balanced {...} region in text. Brace
// characters inside JSON strings are skipped.
func lastJSONBlock(text string) (string, bool) {
	var last string
	for i := 0; i < len(text); {
		if text[i] != '{' {
			i++
			continue
		}
		end, ok := matchBraces(text, i)
		if !ok {
			i++
			continue
		}
		last = text[i : end+1]
		i = end + 1
	}
	if strings.TrimSpace(last) == "" {
		return "", false
	}
	return last, true
}

func matchBraces(text string, start int) (int, bool) {
	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// loudnormField reads the first present key. loudnorm has used both the
// input_* and measured_* spellings across ffmpeg releases; values may be
// numbers or quoted strings ("-inf" included).
func loudnormField(parsed gjson.Result, keys ...string) (float64, bool) {
	for _, key := range keys {
		value := parsed.Get(key)
		if !value.Exists() {
			continue
		}
		text := strings.TrimSpace(value.String())
		if text == "" || strings.EqualFold(text, "-inf") || strings.EqualFold(text, "inf") || strings.EqualFold(text, "nan") {
			continue
		}
		return value.Float(), true
	}
	return 0, false
}

func loudnormFieldDefault(parsed gjson.Result, def float64, keys ...string) (float64, bool) {
	if value, ok := loudnormField(parsed, keys...); ok {
		return value, true
	}
	return def, false
}
