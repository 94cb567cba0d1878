package asr

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Common English words never worth highlighting.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "any": {}, "can": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "his": {}, "has": {}, "had": {},
	"how": {}, "man": {}, "new": {}, "now": {}, "old": {}, "see": {},
	"two": {}, "way": {}, "who": {}, "its": {}, "did": {}, "get": {},
	"him": {}, "she": {}, "too": {}, "use": {}, "that": {}, "with": {},
	"have": {}, "this": {}, "will": {}, "your": {}, "from": {}, "they": {},
	"know": {}, "want": {}, "been": {}, "good": {}, "much": {}, "some": {},
	"time": {}, "very": {}, "when": {}, "just": {}, "into": {}, "than": {},
	"them": {}, "only": {}, "over": {}, "also": {}, "like": {}, "then": {},
	"what": {}, "were": {}, "there": {}, "their": {}, "about": {},
	"which": {}, "would": {}, "could": {}, "should": {}, "because": {},
	"going": {}, "really": {}, "think": {}, "thing": {}, "things": {},
}

// ExtractKeywords ranks the most frequent content words in text. Matching
// and deduplication are case-insensitive via Unicode case folding; ranking
// ties break on first appearance so identical transcripts always yield the
// same ordering.
func ExtractKeywords(text string, topK int) []string {
	if topK <= 0 {
		return nil
	}
	folder := cases.Fold()

	type stat struct {
		count int
		first int
	}
	counts := make(map[string]*stat)
	var order []string

	position := 0
	for _, token := range strings.Fields(text) {
		token = folder.String(strings.Trim(token, ".,?!'\":;()[]"))
		if len(token) < 3 {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		if existing, ok := counts[token]; ok {
			existing.count++
		} else {
			counts[token] = &stat{count: 1, first: position}
			order = append(order, token)
		}
		position++
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := counts[order[i]], counts[order[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.first < b.first
	})

	if len(order) > topK {
		order = order[:topK]
	}
	return order
}
