package input

import (
	"strings"

	"lhdiff/logger"
	"lhdiff/text"
)

const (
	DelimiterOld = "--- OLD FILE ---"
	DelimiterNew = "--- NEW FILE ---"
)

// CombinedParser reads one file holding both versions, each introduced by a
// delimiter line. Lines before the first delimiter belong to neither version.
type CombinedParser struct{}

func (CombinedParser) Parse(sourceA, _ string) ([]string, []string, error) {
	var old, new []string
	var section *[]string
	foundOld, foundNew := false, false

	err := readFile(sourceA, func(line string) {
		switch strings.TrimSpace(line) {
		case DelimiterOld:
			section, foundOld = &old, true
			return
		case DelimiterNew:
			section, foundNew = &new, true
			return
		}
		if section == nil {
			return
		}
		if n := text.Normalize(line); n != "" {
			*section = append(*section, n)
		}
	})
	if err != nil {
		return nil, nil, err
	}

	if !foundOld || !foundNew {
		logger.Warn("input: missing delimiters in %s (old: %t, new: %t)", sourceA, foundOld, foundNew)
	}
	return old, new, nil
}
