// Package captions segments word-level transcripts into caption chunks and
// encodes them as ASS (animated), SRT, and VTT subtitle files.
package captions

import (
	"math"
	"sort"
	"strings"
)

// Word is a single transcribed word with absolute timing in seconds.
type Word struct {
	Start float64
	End   float64
	Text  string
}

// NewWord validates timing and builds a Word. Non-finite timestamps reject
// the word entirely; an end before start is corrected backward to start.
func NewWord(start, end float64, text string) (Word, bool) {
	if !finite(start) || !finite(end) {
		return Word{}, false
	}
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	return Word{Start: start, End: end, Text: text}, true
}

// IsSentenceEnd reports whether the word closes a sentence.
func (w Word) IsSentenceEnd() bool {
	return strings.HasSuffix(w.Text, ".") ||
		strings.HasSuffix(w.Text, "?") ||
		strings.HasSuffix(w.Text, "!")
}

// NormalizedText strips surrounding punctuation and lowercases, for keyword
// matching.
func (w Word) NormalizedText() string {
	return strings.ToLower(strings.Trim(w.Text, ".,?!'\""))
}

// SortWords orders words ascending by start time, preserving the relative
// order of equal starts.
func SortWords(words []Word) {
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Start < words[j].Start
	})
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
