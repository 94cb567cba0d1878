package captions

// Chunk is a non-empty run of consecutive words displayed as one caption.
type Chunk []Word

// Start returns the chunk's first word start.
func (c Chunk) Start() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[0].Start
}

// End returns the chunk's last word end.
func (c Chunk) End() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1].End
}

// Segment splits words into caption chunks. Words are first grouped into
// sentences on terminal punctuation, then each sentence is cut whenever the
// accumulating chunk reaches the word cap or the duration cap. Limits only
// stop accumulation: a single word that alone exceeds a cap still forms a
// one-word chunk, and a dangling partial at sentence end is emitted.
func Segment(words []Word, style Style) []Chunk {
	style = style.normalized()

	var chunks []Chunk
	for _, sentence := range splitSentences(words) {
		var current Chunk
		for _, word := range sentence {
			current = append(current, word)
			durationMS := int((current.End() - current.Start()) * 1000)
			if len(current) >= style.MaxWordsPerCaption || durationMS >= style.MaxCaptionMS {
				chunks = append(chunks, current)
				current = nil
			}
		}
		if len(current) > 0 {
			chunks = append(chunks, current)
		}
	}
	return chunks
}

func splitSentences(words []Word) []Chunk {
	var sentences []Chunk
	var current Chunk
	for _, word := range words {
		current = append(current, word)
		if word.IsSentenceEnd() {
			sentences = append(sentences, current)
			current = nil
		}
	}
	if len(current) > 0 {
		sentences = append(sentences, current)
	}
	return sentences
}
