package captions

// Position anchors the caption block on the canvas.
type Position string

const (
	PositionTop    Position = "Top"
	PositionMiddle Position = "Middle"
	PositionBottom Position = "Bottom"
)

// Alignment maps the position to its ASS numpad alignment value.
func (p Position) Alignment() int {
	switch p {
	case PositionTop:
		return 8
	case PositionMiddle:
		return 5
	default:
		return 2
	}
}

// Style carries the caption rendering parameters.
type Style struct {
	FontName           string
	FontSize           int
	ActiveColor        string
	KeywordColor       string
	BorderThickness    int
	MaxWordsPerLine    int
	MaxWordsPerCaption int
	MaxCaptionMS       int
	Position           Position
	MarginV            int
}

// DefaultStyle returns the baseline caption styling.
func DefaultStyle() Style {
	return Style{
		FontName:           "DejaVu Sans",
		FontSize:           48,
		ActiveColor:        "#FFFFFF",
		KeywordColor:       "#00FFFF",
		BorderThickness:    2,
		MaxWordsPerLine:    6,
		MaxWordsPerCaption: 8,
		MaxCaptionMS:       4500,
		Position:           PositionBottom,
		MarginV:            80,
	}
}

// normalized returns a copy with floors applied so malformed values cannot
// produce empty lines or invisible borders.
func (s Style) normalized() Style {
	if s.FontName == "" {
		s.FontName = "DejaVu Sans"
	}
	if s.FontSize <= 0 {
		s.FontSize = 48
	}
	if s.BorderThickness < 2 {
		s.BorderThickness = 2
	}
	if s.MaxWordsPerLine < 1 {
		s.MaxWordsPerLine = 1
	}
	if s.MaxWordsPerCaption < 1 {
		s.MaxWordsPerCaption = 1
	}
	if s.MaxCaptionMS <= 0 {
		s.MaxCaptionMS = 4500
	}
	return s
}
