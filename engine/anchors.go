package engine

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

func findAnchors(strategy AnchorStrategy, old, new []string) []Anchor {
	if len(old) == 0 || len(new) == 0 {
		return nil
	}
	switch strategy {
	case AnchorMyers:
		return myersAnchors(old, new)
	default:
		return blockAnchors(old, new)
	}
}

// blockAnchors expands every matching block into its index pairs.
func blockAnchors(old, new []string) []Anchor {
	m := difflib.NewMatcher(old, new)

	var anchors []Anchor
	for _, block := range m.GetMatchingBlocks() {
		for k := 0; k < block.Size; k++ {
			anchors = append(anchors, Anchor{Old: block.A + k, New: block.B + k})
		}
	}
	return anchors
}

// myersAnchors walks a line-mode diff and pairs up the lines of every equal run.
func myersAnchors(old, new []string) []Anchor {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(joinLines(old), joinLines(new))
	diffs := dmp.DiffMain(chars1, chars2, false)
	lineDiffs := dmp.DiffCharsToLines(diffs, lineArray)

	var anchors []Anchor
	i, j := 0, 0
	for _, diff := range lineDiffs {
		n := len(splitLines(diff.Text))
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			for k := 0; k < n; k++ {
				anchors = append(anchors, Anchor{Old: i + k, New: j + k})
			}
			i += n
			j += n
		case diffmatchpatch.DiffDelete:
			i += n
		case diffmatchpatch.DiffInsert:
			j += n
		}
	}
	return anchors
}

// joinLines terminates every line with \n so the last line diffs like the others.
func joinLines(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
