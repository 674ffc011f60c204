package text

import "strings"

// Line is one normalized line of a file version together with the fingerprint
// of its surrounding context. Lines are values; nothing mutates them after
// construction.
type Line struct {
	Position    int    // 1-indexed, unique within its sequence
	Text        string // normalized content
	Fingerprint uint64 // SimHash of the context window around the line
}

// NewLine creates a line record from precomputed parts.
func NewLine(position int, text string, fingerprint uint64) Line {
	return Line{
		Position:    position,
		Text:        text,
		Fingerprint: fingerprint,
	}
}

// Tokens returns the whitespace-separated tokens of the line text.
func (l Line) Tokens() []string {
	return strings.Fields(l.Text)
}

// BuildLines turns normalized texts into line records. Position i+1 is assigned
// to texts[i]; its fingerprint covers texts[i-window : i+window] (inclusive,
// clipped to the sequence). A negative window is treated as 0; a window wider
// than the sequence is clamped to its length.
func BuildLines(texts []string, window int) []Line {
	window = max(0, min(window, len(texts)))

	lines := make([]Line, len(texts))
	for i, t := range texts {
		start := max(0, i-window)
		end := min(len(texts), i+window+1)
		context := strings.Join(texts[start:end], JoinSeparator)
		lines[i] = NewLine(i+1, t, Fingerprint(context))
	}
	return lines
}

// Texts extracts the text of each line, preserving order.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
