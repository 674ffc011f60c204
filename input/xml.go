package input

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"lhdiff/text"
)

// XMLParser reads the first <old> and <new> elements found anywhere in the
// document. Every line of their text is kept, blank ones included.
type XMLParser struct{}

func (XMLParser) Parse(sourceA, _ string) ([]string, []string, error) {
	f, err := os.Open(sourceA)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", sourceA, err)
	}
	defer f.Close()

	oldText, newText, err := findOldNew(xml.NewDecoder(f))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrBadXML, sourceA, err)
	}
	return splitNormalized(oldText), splitNormalized(newText), nil
}

// findOldNew returns the direct character data of the first <old> and <new>
// elements.
func findOldNew(d *xml.Decoder) (oldText, newText string, err error) {
	var haveOld, haveNew bool
	for !(haveOld && haveNew) {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", "", err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case start.Name.Local == "old" && !haveOld:
			if oldText, err = elementText(d); err != nil {
				return "", "", err
			}
			haveOld = true
		case start.Name.Local == "new" && !haveNew:
			if newText, err = elementText(d); err != nil {
				return "", "", err
			}
			haveNew = true
		}
	}
	return oldText, newText, nil
}

// elementText consumes the current element and returns its own character
// data, ignoring text inside nested elements.
func elementText(d *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return b.String(), nil
			}
			depth--
		case xml.CharData:
			if depth == 0 {
				b.Write(t)
			}
		}
	}
}

func splitNormalized(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	raw := strings.Split(s, "\n")
	return text.NormalizeAll(raw, false)
}
