package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lhdiff/text"
)

var (
	ErrMissingSource = errors.New("input: second source is required")
	ErrBadXML        = errors.New("input: malformed xml")
	ErrBadTruth      = errors.New("input: malformed ground truth")
)

// Parser turns one or two sources into the normalized texts of the old and
// new versions.
type Parser interface {
	Parse(sourceA, sourceB string) (old, new []string, err error)
}

// ParserFor picks a parser from the arguments: two sources are a raw file
// pair, a single .xml source holds <old> and <new> elements, and any other
// single source is a combined file with delimiter lines.
func ParserFor(sourceA, sourceB string) Parser {
	if sourceB != "" {
		return RawParser{}
	}
	if strings.EqualFold(filepath.Ext(sourceA), ".xml") {
		return XMLParser{}
	}
	return CombinedParser{}
}

// maxLineSize bounds a single source line. Minified files can have very long lines.
const maxLineSize = 16 * 1024 * 1024

// scanLines calls fn for every line of r with invalid UTF-8 dropped.
func scanLines(r io.Reader, fn func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		fn(strings.ToValidUTF8(scanner.Text(), ""))
	}
	return scanner.Err()
}

func readFile(path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := scanLines(f, fn); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// ReadNormalized reads a file and returns its normalized non-empty lines.
func ReadNormalized(path string) ([]string, error) {
	var lines []string
	err := readFile(path, func(line string) {
		if n := text.Normalize(line); n != "" {
			lines = append(lines, n)
		}
	})
	return lines, err
}

// RawParser reads two separate files. Blank and binary lines are dropped.
type RawParser struct{}

func (RawParser) Parse(sourceA, sourceB string) ([]string, []string, error) {
	if sourceB == "" {
		return nil, nil, ErrMissingSource
	}
	old, err := ReadNormalized(sourceA)
	if err != nil {
		return nil, nil, err
	}
	new, err := ReadNormalized(sourceB)
	if err != nil {
		return nil, nil, err
	}
	return old, new, nil
}
