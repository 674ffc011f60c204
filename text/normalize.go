package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Normalize prepares a raw source line for comparison: surrounding whitespace is
// trimmed, case is folded, every symbol rune is padded with spaces so it becomes
// its own token, and whitespace runs collapse to one space.
// A line containing a NUL byte is treated as binary and normalizes to "".
func Normalize(raw string) string {
	if strings.ContainsRune(raw, 0) {
		return ""
	}

	folded := cases.Fold().String(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(folded) + 8)
	for _, r := range folded {
		if isSymbol(r) {
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), JoinSeparator)
}

// NormalizeAll normalizes every line. When dropEmpty is set, lines that
// normalize to "" are skipped.
func NormalizeAll(raw []string, dropEmpty bool) []string {
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		n := Normalize(line)
		if dropEmpty && n == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// isSymbol reports whether r is neither a word character nor whitespace.
func isSymbol(r rune) bool {
	if r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
		return false
	}
	return !unicode.IsSpace(r)
}
