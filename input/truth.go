package input

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"lhdiff/types"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// LoadTruth reads an expected mapping. JSON files hold
// {"mappings": {"<old>": <new>, ...}}; XML files hold VERSION elements with
// LOCATION ORIG/NEW attributes, of which VERSION NUMBER="2" is used when
// present. Locations with NEW="-1" are skipped.
func LoadTruth(path string) (types.Truth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read truth %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseTruthJSON(data)
	case ".xml":
		return parseTruthXML(data)
	default:
		return nil, fmt.Errorf("%w: unsupported truth format %q", ErrBadTruth, filepath.Ext(path))
	}
}

func parseTruthJSON(data []byte) (types.Truth, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrBadTruth)
	}

	truth := make(types.Truth)
	var parseErr error
	gjson.GetBytes(data, "mappings").ForEach(func(key, value gjson.Result) bool {
		old, err := strconv.Atoi(key.String())
		if err != nil {
			parseErr = fmt.Errorf("%w: old line %q: %v", ErrBadTruth, key.String(), err)
			return false
		}
		if value.Type != gjson.Number {
			parseErr = fmt.Errorf("%w: new line for %d is %s", ErrBadTruth, old, value.Raw)
			return false
		}
		truth[old] = int(value.Int())
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return truth, nil
}

type truthVersion struct {
	Number    string          `xml:"NUMBER,attr"`
	Locations []truthLocation `xml:"LOCATION"`
}

type truthLocation struct {
	Orig string `xml:"ORIG,attr"`
	New  string `xml:"NEW,attr"`
}

func parseTruthXML(data []byte) (types.Truth, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	var versions []truthVersion
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadTruth, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "VERSION" {
			continue
		}
		var v truthVersion
		if err := d.DecodeElement(&v, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadTruth, err)
		}
		versions = append(versions, v)
	}

	truth := make(types.Truth)
	if len(versions) == 0 {
		return truth, nil
	}

	chosen := versions[0]
	for _, v := range versions {
		if v.Number == "2" {
			chosen = v
			break
		}
	}

	for _, loc := range chosen.Locations {
		if loc.Orig == "" || loc.New == "" {
			continue
		}
		old, err := strconv.Atoi(strings.TrimSpace(loc.Orig))
		if err != nil {
			return nil, fmt.Errorf("%w: ORIG %q: %v", ErrBadTruth, loc.Orig, err)
		}
		new, err := strconv.Atoi(strings.TrimSpace(loc.New))
		if err != nil {
			return nil, fmt.Errorf("%w: NEW %q: %v", ErrBadTruth, loc.New, err)
		}
		if new == types.Sentinel {
			continue
		}
		truth[old] = new
	}
	return truth, nil
}

// TruthFromMappings keeps the first target of every mapping with a real old
// and new position.
func TruthFromMappings(mappings []types.Mapping) types.Truth {
	truth := make(types.Truth)
	for _, m := range mappings {
		if m.IsAddition() || m.IsDeletion() || len(m.New) == 0 {
			continue
		}
		truth[m.Old] = m.New[0]
	}
	return truth
}

// EncodeTruth renders truth in the JSON layout LoadTruth reads, keys in
// ascending old order.
func EncodeTruth(truth types.Truth) ([]byte, error) {
	olds := make([]int, 0, len(truth))
	for old := range truth {
		olds = append(olds, old)
	}
	slices.Sort(olds)

	doc := []byte(`{"mappings":{}}`)
	for _, old := range olds {
		var err error
		doc, err = sjson.SetBytes(doc, "mappings."+strconv.Itoa(old), truth[old])
		if err != nil {
			return nil, fmt.Errorf("encode truth: %w", err)
		}
	}
	return doc, nil
}

func WriteTruth(path string, truth types.Truth) error {
	data, err := EncodeTruth(truth)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write truth %s: %w", path, err)
	}
	return nil
}
