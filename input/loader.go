package input

import (
	"fmt"

	"lhdiff/logger"
	"lhdiff/text"
)

// Loader parses sources and builds line records with context fingerprints.
type Loader struct {
	Window int
}

func NewLoader(window int) *Loader {
	return &Loader{Window: window}
}

func (l *Loader) Load(sourceA, sourceB string) (old, new []text.Line, err error) {
	parser := ParserFor(sourceA, sourceB)

	oldTexts, newTexts, err := parser.Parse(sourceA, sourceB)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", sourceA, err)
	}
	logger.Debug("input: %T read %d old and %d new lines", parser, len(oldTexts), len(newTexts))

	return text.BuildLines(oldTexts, l.Window), text.BuildLines(newTexts, l.Window), nil
}
